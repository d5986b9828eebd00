package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/agri-advisor/platform/pkg/common/config"
	"github.com/agri-advisor/platform/pkg/common/database"
	"github.com/agri-advisor/platform/pkg/common/kafka"
	"github.com/agri-advisor/platform/pkg/common/logger"
	"github.com/agri-advisor/platform/pkg/gateway/httpclient"
	"github.com/agri-advisor/platform/pkg/gateway/routes"
	"github.com/agri-advisor/platform/pkg/market"
	"github.com/agri-advisor/platform/pkg/storage"
)

func main() {
	cfg := config.MustLoad()
	logger.Init(cfg.LogLevel)

	db, err := database.GetPostgres(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to database")
	}
	defer database.ClosePostgres()
	redisClient := database.GetRedis(cfg)
	defer database.CloseRedis()

	repo := market.NewRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to migrate market data")
	}

	var source market.Source = market.PlaceholderSource{Market: cfg.MarketName}
	if cfg.DataGovResourceURL != "" && cfg.DataGovAPIKey != "" {
		source = market.NewDataGovSource(
			cfg.DataGovResourceURL,
			cfg.DataGovAPIKey,
			cfg.MarketName,
			httpclient.New(30*time.Second),
			cfg.UpstreamRetries,
			cfg.UpstreamRetryDelay,
		)
	} else {
		logger.Log.Warn("data.gov.in resource not configured, using placeholder prices")
	}

	producer := kafka.NewProducer(cfg, cfg.MarketPricesUpdatedTopic)
	defer producer.Close()

	job := market.NewJob(
		source,
		repo,
		storage.NewPriceCache(redisClient, repo, cfg.MarketPriceCacheTTL),
		producer,
		cfg.MarketRefreshInterval,
	)

	router := mux.NewRouter()
	routes.NewHealthHandler(func() bool { return true }).Register(router)
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start health server")
		}
	}()

	go func() {
		logger.Log.WithField("interval", cfg.MarketRefreshInterval.String()).Info("Market Data Service started")
		job.Run(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Market Data Service...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("Health server forced to shutdown")
	}

	logger.Log.Info("Market Data Service stopped")
}
