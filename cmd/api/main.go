package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	pkgvalidator "github.com/assesshub/proctor-engine/pkg/validator"

	"github.com/assesshub/proctor-engine/internal/adapter/handler"
	"github.com/assesshub/proctor-engine/internal/adapter/repository"
	"github.com/assesshub/proctor-engine/internal/infrastructure/cache"
	"github.com/assesshub/proctor-engine/internal/infrastructure/database"
	httpmw "github.com/assesshub/proctor-engine/internal/infrastructure/http/middleware"
	"github.com/assesshub/proctor-engine/internal/usecase/proctoring"
	"github.com/assesshub/proctor-engine/pkg/config"
	"github.com/assesshub/proctor-engine/pkg/jwt"
	"github.com/assesshub/proctor-engine/pkg/videosearch"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Echo instance
	e := echo.New()

	// Register validator for request validation
	e.Validator = pkgvalidator.New()

	// Configure Echo
	e.HideBanner = true
	e.HidePort = false

	// Custom logger format
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} | ${status} | ${method} ${uri} | ${latency_human}\n",
	}))

	// Recover from panics
	e.Use(middleware.Recover())

	// CORS middleware
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))

	// Initialize dependencies
	log.Println("🔧 Initializing dependencies...")

	// Initialize Database
	log.Println("📦 Connecting to database...")
	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.CloseDB(db)

	// Run migrations only when explicitly enabled in config.
	// Production deployments should manage schema via sql-migrate.
	if cfg.Database.AutoMigrate {
		if cfg.Server.Environment == "production" {
			log.Fatalf("AutoMigrate is enabled in production. Disable DB_AUTO_MIGRATE or manage schema with sql-migrate.")
		}
		log.Println("🔄 Applying migrations (development only) ...")
		if err := database.AutoMigrate(db); err != nil {
			log.Fatalf("Failed to apply migrations: %v", err)
		}
	} else {
		log.Println("🔄 Skipping migrations; use sql-migrate for schema migrations in CI/CD/production")
	}

	// Initialize Redis
	log.Println("📦 Connecting to Redis...")
	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	reportCache := cache.NewRedisStore(redisClient)

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize repositories
	log.Println("⚙️  Initializing repositories...")
	analysisRepo := repository.NewAnalysisRepository(db)

	// Initialize behavior catalog
	log.Println("📋 Loading behavior catalog...")
	catalog, err := proctoring.LoadCatalog(cfg.Proctoring.Profile, cfg.Proctoring.CatalogPath)
	if err != nil {
		log.Fatalf("Failed to load behavior catalog: %v", err)
	}
	log.Printf("✅ Behavior catalog loaded: %d definitions (profile %s)", len(catalog.Definitions()), catalog.Profile())

	// Initialize video search client and orchestration strategy.
	// The strategy is selected once here; nothing downstream branches on mode.
	log.Println("🔍 Initializing video search client...")
	searcher := videosearch.NewClient(&cfg.VideoSearch)

	var strategy proctoring.SearchStrategy
	if cfg.Proctoring.Mode == config.ModeParallel {
		strategy = proctoring.NewParallelStrategy(searcher, logger, cfg.Proctoring.MaxConcurrentSearches)
	} else {
		strategy = proctoring.NewSequentialStrategy(searcher, logger)
	}
	log.Printf("✅ Search orchestration mode: %s", cfg.Proctoring.Mode)

	// Initialize analysis coordinator and service
	log.Println("🧠 Initializing analysis service...")
	coordinator := proctoring.NewCoordinator(
		strategy,
		catalog,
		searcher,
		analysisRepo,
		proctoring.DefaultScoringThresholds(cfg.Proctoring.ReviewThreshold),
		proctoring.RetryPolicy{
			MaxRetries:      cfg.Proctoring.MaxRetries,
			InitialInterval: cfg.Proctoring.RetryInitialInterval,
			MaxInterval:     cfg.Proctoring.RetryMaxInterval,
			AttemptDeadline: cfg.Proctoring.SearchDeadline,
		},
		logger,
	)
	proctoringService := proctoring.NewService(analysisRepo, coordinator, reportCache, proctoring.ServiceOptions{
		TopConcerns:      cfg.Proctoring.TopConcerns,
		ComparisonWindow: cfg.Proctoring.ComparisonWindow,
		TrendEpsilon:     cfg.Proctoring.TrendEpsilon,
		ReportCacheTTL:   cfg.Proctoring.ReportCacheTTL,
	}, logger)

	// Initialize JWT manager for the platform's access tokens
	log.Println("🔑 Initializing JWT manager...")
	jwtManager := jwt.NewManager(cfg.JWT.AccessSecret, cfg.JWT.AccessExpiry)
	authEchoMW := httpmw.EchoAuth(jwtManager)

	// Setup router with handlers
	log.Println("🛣️  Setting up routes...")
	proctoringHandler := handler.NewProctoring(proctoringService, logger)
	router := handler.NewRouter(cfg, proctoringHandler, authEchoMW)
	router.Setup(e)

	// Start server
	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
		log.Printf("🚀 Starting server on %s", addr)
		log.Printf("📝 Environment: %s", cfg.Server.Environment)
		log.Printf("🔗 Health check: http://%s/health", addr)

		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server stopped gracefully")
}
