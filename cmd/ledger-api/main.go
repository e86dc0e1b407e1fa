package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	v1 "github.com/canopylabs/treeledger/api/v1"
	"github.com/canopylabs/treeledger/internal/config"
	"github.com/canopylabs/treeledger/internal/rates"
	"github.com/canopylabs/treeledger/internal/treasury"
	"github.com/canopylabs/treeledger/pkg/clock"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load .env if present, then config
	if err := godotenv.Load(); err == nil {
		logger.Info("Loaded environment from .env")
	}
	cfg, err := config.LoadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Connect to database
	dbURL := cfg.Database.GetDatabaseURL()
	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to open gorm connection", zap.Error(err))
	}

	// Treasury: a real chain client when an RPC endpoint is configured,
	// otherwise the noop mover so local setups run without a chain.
	var mover treasury.Mover
	if cfg.Chain.RPCURL != "" {
		chain, err := treasury.NewChainClient(
			cfg.Chain.RPCURL, cfg.Chain.SigningKey, cfg.Chain.PayoutAddress,
			cfg.Chain.ChainID, logger)
		if err != nil {
			logger.Fatal("Failed to connect to chain", zap.Error(err))
		}
		mover = chain
	} else {
		logger.Warn("No chain RPC configured, funds forwarding disabled")
		mover = treasury.NewNoopMover(logger)
	}

	// Wire modules
	api, err := v1.Setup(db, gdb, cfg,
		mover,
		rates.NewFetcher(cfg.Rates.Endpoint, cfg.Rates.Currency),
		clock.System{}, logger)
	if err != nil {
		logger.Fatal("Failed to wire API", zap.Error(err))
	}
	defer api.Close()

	// Seed the rate cache; a failure here is not fatal, the refresher
	// retries on its schedule.
	if err := api.Rates.Refresh(); err != nil {
		logger.Warn("Initial rate fetch failed", zap.Error(err))
	}
	if err := api.Rates.StartRefresher(cfg.Rates.RefreshSpec); err != nil {
		logger.Fatal("Failed to start rate refresher", zap.Error(err))
	}

	// Setup router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept, Origin")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	api.RegisterRoutes(router, cfg.Auth.JWTSecret)

	// Start server
	srv := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("addr", srv.Addr))

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}
