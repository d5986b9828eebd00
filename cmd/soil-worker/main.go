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
	"github.com/agri-advisor/platform/pkg/farms"
	"github.com/agri-advisor/platform/pkg/gateway/httpclient"
	"github.com/agri-advisor/platform/pkg/gateway/routes"
	"github.com/agri-advisor/platform/pkg/ingestion"
)

func main() {
	cfg := config.MustLoad()
	logger.Init(cfg.LogLevel)

	db, err := database.GetPostgres(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to database")
	}
	defer database.ClosePostgres()

	farmRepo := farms.NewRepository(db)
	if err := farmRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to migrate farms")
	}

	soilEvents := kafka.NewProducer(cfg, cfg.SoilUpdatedTopic)
	defer soilEvents.Close()

	soilGrids := ingestion.NewSoilGridsClient(
		cfg.SoilGridsBaseURL,
		httpclient.New(cfg.SoilGridsTimeout),
		cfg.UpstreamRetries,
		cfg.UpstreamRetryDelay,
	)
	svc := ingestion.NewSoilService(soilGrids, farmRepo, soilEvents)

	consumer := kafka.NewConsumer(cfg, cfg.FarmCreatedTopic, cfg.KafkaGroupID+"-soil")
	defer consumer.Close()

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
		logger.Log.WithField("topic", cfg.FarmCreatedTopic).Info("Soil Worker started")
		if err := consumer.Consume(ctx, svc.HandleFarmCreated); err != nil && ctx.Err() == nil {
			logger.Log.WithError(err).Fatal("Consumer stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Soil Worker...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("Health server forced to shutdown")
	}

	logger.Log.Info("Soil Worker stopped")
}
