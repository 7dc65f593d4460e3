package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/muni_commerce/internal/cache"
	"github.com/GTDGit/muni_commerce/internal/config"
	"github.com/GTDGit/muni_commerce/internal/database"
	"github.com/GTDGit/muni_commerce/internal/handler"
	"github.com/GTDGit/muni_commerce/internal/metrics"
	"github.com/GTDGit/muni_commerce/internal/middleware"
	"github.com/GTDGit/muni_commerce/internal/repository"
	"github.com/GTDGit/muni_commerce/internal/service"
	"github.com/GTDGit/muni_commerce/internal/utils"
	"github.com/GTDGit/muni_commerce/internal/web"
)

// main is the application entrypoint for the Muni-Commerce showcase site.
func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger
	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Msg("starting muni commerce")

	// 3. Connect database
	conn, err := database.Connect(&cfg.DB)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "database connection failed: %v\n", err)
		os.Exit(1)
	}
	db := conn.DB
	defer db.Close()

	fallbackReason := ""
	if conn.FellBack() {
		fallbackReason = conn.FallbackReason.Error()
		log.Warn().Str("path", cfg.DB.FallbackPath).Str("reason", fallbackReason).Msg("running on local sqlite fallback store")
	}
	log.Info().Str("driver", conn.Driver).Msg("database connected")

	// 3a. Run migrations
	if err := database.RunMigrations(db); err != nil {
		log.Error().Err(err).Msg("migration failed")
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}
	log.Info().Msg("migrations completed successfully")

	// 4. Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// 5. Initialize repositories and services
	tx := repository.NewTransactor(db)
	auditSvc := service.NewAuditService(repository.NewAdminLogRepository(db))
	flagSvc := service.NewFeatureFlagService(repository.NewFeatureFlagRepository(db), tx, auditSvc, m)

	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startCancel()

	if err := flagSvc.EnsureDefaults(startCtx, cfg.Catalog.Flags); err != nil {
		log.Error().Err(err).Msg("feature flag initialization failed")
		os.Exit(1)
	}

	// 5a. Asset host (optional)
	var assets service.AssetStore
	s3Svc, err := service.NewS3Service(startCtx, &cfg.S3)
	switch {
	case errors.Is(err, utils.ErrAssetsDisabled):
		log.Warn().Msg("S3_BUCKET not set - product images are disabled")
	case err != nil:
		log.Warn().Err(err).Msg("S3 service initialization failed - product images are disabled")
	default:
		assets = s3Svc
	}

	// 5b. Image moderation (optional)
	var moderator service.ImageModerator
	if cfg.Moderation.Enabled {
		rek, err := service.NewRekognitionModerator(startCtx, &cfg.Moderation, &cfg.S3)
		if err != nil {
			log.Warn().Err(err).Msg("Rekognition initialization failed - image moderation is disabled")
		} else {
			moderator = rek
		}
	}

	productSvc := service.NewProductService(repository.NewProductRepository(db), tx, auditSvc, assets, moderator, cfg.Catalog, m)
	postingSvc := service.NewPostingService(repository.NewPostingRepository(db), tx, auditSvc, m)
	contactSvc := service.NewContactService(&cfg.Contact)

	adminAuthSvc, err := service.NewAdminAuthService(&cfg.Admin, auditSvc, m)
	if err != nil {
		log.Error().Err(err).Msg("admin auth initialization failed")
		os.Exit(1)
	}

	// 5c. Rate limit store
	var rlStore service.RateLimitStore = repository.NewRateLimitRepository(db)
	if cfg.RateLimit.Backend == config.RateLimitBackendRedis {
		redisClient, err := cache.NewRedisClient(&cfg.Redis)
		if err != nil {
			log.Error().Err(err).Msg("redis connection failed")
			fmt.Fprintf(os.Stderr, "redis connection failed: %v\n", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		log.Info().Msg("redis connected successfully")
		rlStore = cache.NewRateLimitStore(redisClient)
	}
	limiter := service.NewRateLimiter(rlStore, cfg.RateLimit.Max, cfg.RateLimit.Window)

	// 6. Rendering
	tmpl, err := web.Templates()
	if err != nil {
		log.Error().Err(err).Msg("template parsing failed")
		os.Exit(1)
	}
	cookies := web.NewCookies(cfg.Admin.SessionSecret, cfg.Admin.CookieSecure)
	renderer := web.NewRenderer(cookies, flagSvc)

	// 7. Initialize middleware and handlers
	guard := middleware.NewAdminGuard(adminAuthSvc, cookies)
	mws := &handler.Middlewares{
		Gate:      middleware.NewFeatureGate(flagSvc, renderer, m),
		RateLimit: middleware.NewRateLimiter(limiter, cfg.RateLimit.Window, renderer, m),
		Guard:     guard,
	}
	handlers := &handler.Handlers{
		Public:  handler.NewPublicHandler(productSvc, postingSvc, contactSvc, renderer),
		Admin:   handler.NewAdminHandler(adminAuthSvc, guard, productSvc, postingSvc, flagSvc, auditSvc, renderer, cfg.MaxUploadBytes),
		Health:  handler.NewHealthHandler(db, fallbackReason),
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}

	// 8. Setup router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		log.Error().Err(err).Msg("invalid TRUSTED_PROXIES")
		os.Exit(1)
	}
	router.MaxMultipartMemory = cfg.MaxUploadBytes
	router.SetHTMLTemplate(tmpl)
	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware(m))
	handler.SetupRoutes(router, handlers, mws)

	// 9. Start HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// 10. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// 11. Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// setupLogger configures zerolog global logger based on environment.
func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
