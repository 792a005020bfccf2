package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/surveyflow/models"
	"github.com/vnkhanh/surveyflow/services"
)

const (
	CtxUser    = "user"
	CtxSession = "session"
)

// AuthJWT checks Authorization: Bearer <token> against the active session
// and puts the session and its user into the context.
func AuthJWT(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Missing or invalid Authorization header"})
			return
		}
		rawToken := strings.TrimSpace(authHeader[7:])

		session, err := auth.Verify(c.Request.Context(), rawToken)
		if err != nil {
			if services.IsUnauthorized(err) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Invalid or expired token"})
				return
			}
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal", "message": "Could not verify session"})
			return
		}

		c.Set(CtxSession, session)
		c.Set(CtxUser, session.User)
		c.Next()
	}
}

// RequireAdmin blocks users without the admin role. It must run after
// AuthJWT.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Unauthorized"})
			return
		}
		if u.Role != models.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden", "message": "Forbidden"})
			return
		}
		c.Next()
	}
}

func CurrentUser(c *gin.Context) (models.User, bool) {
	v, ok := c.Get(CtxUser)
	if !ok {
		return models.User{}, false
	}
	u, ok := v.(models.User)
	return u, ok
}

func CurrentSession(c *gin.Context) (models.Session, bool) {
	v, ok := c.Get(CtxSession)
	if !ok {
		return models.Session{}, false
	}
	s, ok := v.(models.Session)
	return s, ok
}
