package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vnkhanh/surveyflow/config"
	"github.com/vnkhanh/surveyflow/config/configslog"
	"github.com/vnkhanh/surveyflow/controllers"
	"github.com/vnkhanh/surveyflow/middleware"
	"github.com/vnkhanh/surveyflow/routes"
	"github.com/vnkhanh/surveyflow/seeders"
	"github.com/vnkhanh/surveyflow/services"
	"github.com/vnkhanh/surveyflow/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := configslog.InitLogger(cfg.Debug); err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer configslog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		configslog.Log.Fatal("server stopped", zap.Error(err))
	}
	configslog.Log.Info("server stopped")
}

func run(ctx context.Context, cfg config.Config) error {
	st, closeStore, err := config.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			configslog.Log.Warn("close store", zap.Error(err))
		}
	}()

	surveys := services.NewSurveyService(st)
	responses := services.NewResponseService(st, surveys)
	links := services.NewLinkService(st, surveys, cfg.PublicBaseURL)

	authCfg := services.AuthConfig{Secret: cfg.JWTSecret, TTL: cfg.JWTTTL}
	if cfg.AdminEmail != "" {
		authCfg.Password = services.PasswordAuthenticator{
			Email:        cfg.AdminEmail,
			Name:         cfg.AdminName,
			PasswordHash: cfg.AdminPasswordHash,
		}
	}
	if cfg.GoogleClientID != "" {
		authCfg.Google = services.NewGoogleAuthenticator(cfg.GoogleClientID, cfg.GoogleAllowedEmails)
	}

	h := &controllers.Handler{
		Store:     st,
		Surveys:   surveys,
		Responses: responses,
		Links:     links,
		Auth:      services.NewAuthService(st, authCfg),
		Log:       configslog.Log,
	}
	if cfg.SupabaseEnabled() {
		h.Uploader = utils.NewReportUploader(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SupabaseBucket)
	}

	if cfg.SeedDemo {
		if err := seeders.SeedDemo(ctx, surveys, responses, time.Now().UnixNano()); err != nil {
			return err
		}
	}

	lim := routes.Limiters{
		Submit: middleware.NewIPRateLimiter(cfg.SubmitRatePerMin, cfg.SubmitBurst, 5*time.Minute),
		Login:  middleware.NewIPRateLimiter(10, 5, 5*time.Minute),
	}
	defer lim.Submit.Stop()
	defer lim.Login.Stop()

	scheduler := cron.New(cron.WithLocation(time.UTC))
	if _, err := scheduler.AddFunc(cfg.LinkSweepSpec, func() {
		n, err := links.RefreshStatuses(ctx, time.Now())
		if err != nil {
			configslog.Log.Error("link status sweep failed", zap.Error(err))
			return
		}
		if n > 0 {
			configslog.SLog.Infof("Deactivated %d expired links.", n)
		}
	}); err != nil {
		return err
	}

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.RequestLogger(configslog.Log), middleware.Recovery(configslog.Log))
	r.Use(cors.New(corsConfig(cfg)))
	if err := r.SetTrustedProxies(nil); err != nil {
		return err
	}

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Survey server is running")
	})
	routes.SetupRoutes(r, h, lim)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		configslog.SLog.Infof("Server listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		scheduler.Start()
		<-gctx.Done()
		<-scheduler.Stop().Done()
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		configslog.Log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func corsConfig(cfg config.Config) cors.Config {
	allowed := map[string]bool{cfg.PublicBaseURL: true}
	for _, o := range cfg.CORSOrigins {
		allowed[o] = true
	}
	return cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return allowed[origin]
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}
