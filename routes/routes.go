package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/surveyflow/controllers"
	"github.com/vnkhanh/surveyflow/middleware"
)

// Limiters throttle the unauthenticated write endpoints per client IP.
type Limiters struct {
	Submit *middleware.IPRateLimiter
	Login  *middleware.IPRateLimiter
}

func SetupRoutes(r *gin.Engine, h *controllers.Handler, lim Limiters) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})
	r.GET("/health", h.HealthCheck)

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", middleware.RateLimitByIP(lim.Login), h.Login)
		}

		public := api.Group("/public")
		{
			public.GET("/surveys/:id", h.GetPublicSurvey)
			public.POST("/surveys/:id/responses", middleware.RateLimitByIP(lim.Submit), h.SubmitResponse)
		}

		protected := api.Group("/")
		protected.Use(middleware.AuthJWT(h.Auth), middleware.RequireAdmin())
		{
			protected.POST("/auth/logout", h.Logout)
			protected.GET("/me", h.Me)
		}

		surveys := protected.Group("/surveys")
		{
			surveys.POST("", h.CreateSurvey)
			surveys.GET("", h.ListSurveys)
			surveys.GET("/:id", h.GetSurvey)
			surveys.PUT("/:id", h.UpdateSurvey)
			surveys.DELETE("/:id", h.DeleteSurvey)
			surveys.PUT("/:id/publish", h.PublishSurvey)
			surveys.PUT("/:id/close", h.CloseSurvey)

			surveys.GET("/:id/responses", h.ListResponses)
			surveys.GET("/:id/responses/:rid", h.GetResponse)

			surveys.GET("/:id/analytics", h.GetAnalytics)
			surveys.GET("/:id/report", h.DownloadReport)
			surveys.GET("/:id/export", h.ExportResponses)
			surveys.POST("/:id/report/publish", h.PublishReport)
		}

		links := protected.Group("/links")
		{
			links.POST("", h.CreateLink)
			links.GET("", h.ListLinks)
			links.PUT("/:id/deactivate", h.DeactivateLink)
		}
	}
}
