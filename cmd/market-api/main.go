package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"carbon-exchange/marketplace-backend/internal/archive"
	"carbon-exchange/marketplace-backend/internal/auth"
	"carbon-exchange/marketplace-backend/internal/config"
	"carbon-exchange/marketplace-backend/internal/marketplace"
	"carbon-exchange/marketplace-backend/internal/registry"
	"carbon-exchange/marketplace-backend/internal/retirement"
	"carbon-exchange/marketplace-backend/internal/stats"
	"carbon-exchange/marketplace-backend/internal/verification"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Wire the ledgers
	registryService := registry.NewService(logger)
	marketplaceService := marketplace.NewService(registryService, marketplace.Config{
		FeeBasisPoints:    cfg.Market.FeeBasisPoints,
		MinPurchaseAmount: cfg.Market.MinPurchaseAmount,
	}, logger)
	retirementService := retirement.NewService(registryService, logger)
	verificationService := verification.NewService(registryService, logger)
	aggregator := stats.NewAggregator(marketplaceService, registryService, retirementService, logger)

	hub := stats.NewHub(aggregator, cfg.Market.StatsRefresh, logger)
	go hub.Run(ctx)

	sweeper, err := marketplace.NewSweeper(marketplaceService, cfg.Market.SweepSchedule, logger)
	if err != nil {
		logger.Fatal("Failed to schedule expiry sweeper", zap.Error(err))
	}
	sweeper.Start()

	// Connect the archive database.  The ledgers are authoritative either
	// way; without a database the history just does not survive restarts.
	if db, err := gorm.Open(postgres.Open(cfg.Database.GetDatabaseURL()), &gorm.Config{}); err != nil {
		logger.Warn("Archive database unavailable, running without history persistence", zap.Error(err))
	} else {
		if err := archive.AutoMigrate(db); err != nil {
			logger.Fatal("Failed to migrate archive schema", zap.Error(err))
		}
		recorder := archive.NewRecorder(db, marketplaceService, registryService, retirementService, logger)
		go recorder.Run(ctx, cfg.Market.ArchiveSyncInterval)
	}

	// Setup Router
	router := gin.Default()

	// CORS Middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	registryHandler := registry.NewHandler(registryService)
	marketplaceHandler := marketplace.NewHandler(marketplaceService)
	retirementHandler := retirement.NewHandler(retirementService)
	verificationHandler := verification.NewHandler(verificationService)
	statsHandler := stats.NewHandler(aggregator, hub)

	// Reads are public; mutations require the signing collaborator's token.
	api := router.Group("/api/v1")
	secured := api.Group("", auth.Middleware([]byte(cfg.Security.JWTSecret)))

	statsHandler.RegisterRoutes(api)
	registryHandler.RegisterRoutes(api, secured)
	marketplaceHandler.RegisterRoutes(api, secured)
	retirementHandler.RegisterRoutes(api, secured)
	verificationHandler.RegisterRoutes(api, secured)

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
		})
	})

	// Start Server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.Int("port", cfg.Server.Port))

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	cancel()
	sweeper.Stop()
	hub.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}
