package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	postingapp "github.com/salonerp/backend/internal/application/posting"
	"github.com/salonerp/backend/internal/application/stockquery"
	"github.com/salonerp/backend/internal/domain/shared"
	"github.com/salonerp/backend/internal/infrastructure/cache"
	"github.com/salonerp/backend/internal/infrastructure/config"
	"github.com/salonerp/backend/internal/infrastructure/logger"
	"github.com/salonerp/backend/internal/infrastructure/persistence"
	"github.com/salonerp/backend/internal/infrastructure/registry"
	"github.com/salonerp/backend/internal/interfaces/http/handler"
	"github.com/salonerp/backend/internal/interfaces/http/middleware"
	"github.com/salonerp/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

//	@title			Salon Stock API
//	@version		1.0
//	@description	Stock movement documents, batch allocation and ledger posting for salon and retail sites

//	@contact.name	API Support
//	@contact.email	support@salonerp.example.com

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Salon Stock Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	docRepo := persistence.NewGormDocumentRepository(db.DB)
	batchCatalog := persistence.NewGormBatchCatalog(db.DB)
	ledgerRepo := persistence.NewGormLedgerRepository(db.DB)
	balanceRepo := persistence.NewGormBalanceRepository(db.DB)

	// Feature switches come from config so sites can run with or without
	// batch tracking, expiry dates and posted-document editing
	features := postingapp.Features{
		BatchNoEnabled:              cfg.Features.BatchNoEnabled,
		ManualBatchSelectionEnabled: cfg.Features.ManualBatchSelectionEnabled,
		ExpiryDateEnabled:           cfg.Features.ExpiryDateEnabled,
		PostedDocumentEditEnabled:   cfg.Features.PostedDocumentEditEnabled,
	}

	// Initialize application services
	postingService := postingapp.NewPostingService(docRepo, batchCatalog, ledgerRepo, balanceRepo, features, log)
	previewService := postingapp.NewPreviewService(batchCatalog, features)
	queryService := stockquery.NewQueryService(batchCatalog, balanceRepo)
	queryService.SetExpiryAlertWindow(cfg.Expiry.AlertWindowDays)

	// Duplicate-posting guard
	if cfg.Idempotency.Enabled {
		idemStore, err := cache.NewIdempotencyStore(cfg, log)
		if err != nil {
			log.Fatal("Failed to create idempotency store", zap.Error(err))
		}
		defer func() {
			if err := idemStore.Close(); err != nil {
				log.Error("Error closing idempotency store", zap.Error(err))
			}
		}()
		postingService.SetIdempotencyStore(idemStore, shared.IdempotencyConfig{
			Enabled: true,
			TTL:     cfg.Idempotency.TTL,
		})
		log.Info("Idempotency guard enabled",
			zap.String("backend", cfg.Idempotency.Backend),
			zap.Duration("ttl", cfg.Idempotency.TTL),
		)
	}

	// External serial/batch registration side channel
	if cfg.Registry.URL != "" {
		timeout := time.Duration(cfg.Registry.TimeoutSeconds) * time.Second
		postingService.SetSerialBatchRegistry(registry.NewHTTPSerialBatchRegistry(cfg.Registry.URL, timeout, log))
		log.Info("Serial/batch registry enabled",
			zap.String("url", cfg.Registry.URL),
			zap.Duration("timeout", timeout),
		)
	} else {
		postingService.SetSerialBatchRegistry(registry.NoopSerialBatchRegistry{})
	}

	// Initialize HTTP handlers
	documentHandler := handler.NewDocumentHandler(postingService)
	stockHandler := handler.NewStockHandler(queryService, previewService)
	systemHandler := handler.NewSystemHandler()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Security - Add security headers
	// 5. CORS - Handle cross-origin requests
	// 6. BodyLimit - Limit request body size
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db))

	// Setup API routes
	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Register(documentHandler).
		Register(stockHandler).
		Register(systemHandler).
		Setup()

	// Also keep a simple ping at root API level for basic health checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
