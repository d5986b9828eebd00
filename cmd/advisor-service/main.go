package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/agri-advisor/platform/pkg/chatbot"
	"github.com/agri-advisor/platform/pkg/common/config"
	"github.com/agri-advisor/platform/pkg/common/database"
	"github.com/agri-advisor/platform/pkg/common/kafka"
	"github.com/agri-advisor/platform/pkg/common/logger"
	"github.com/agri-advisor/platform/pkg/farms"
	"github.com/agri-advisor/platform/pkg/gateway/auth"
	"github.com/agri-advisor/platform/pkg/gateway/httpclient"
	"github.com/agri-advisor/platform/pkg/gateway/routes"
	"github.com/agri-advisor/platform/pkg/identity"
	"github.com/agri-advisor/platform/pkg/ingestion"
	"github.com/agri-advisor/platform/pkg/market"
	"github.com/agri-advisor/platform/pkg/ml/artifacts"
	"github.com/agri-advisor/platform/pkg/observability/metrics"
	"github.com/agri-advisor/platform/pkg/recommend"
	"github.com/agri-advisor/platform/pkg/serving"
	"github.com/agri-advisor/platform/pkg/storage"
)

func main() {
	cfg := config.MustLoad()
	logger.Init(cfg.LogLevel)

	var ready atomic.Bool

	// A service without consistent artifacts must never serve.
	bundle, err := artifacts.Load(cfg.ArtifactDir, artifacts.LoadOptions{
		ONNXRuntimeLib: cfg.ONNXRuntimeLib,
	})
	if err != nil {
		metrics.SetArtifactsLoaded(false)
		logger.Log.WithError(err).Fatal("Failed to load model artifacts")
	}
	defer bundle.Close()
	metrics.SetArtifactsLoaded(true)

	engine := recommend.NewEngine(bundle, recommend.Options{
		TopN:               cfg.RecommendTopN,
		DefaultMarketPrice: cfg.DefaultMarketPrice,
	})

	db, err := database.GetPostgres(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to database")
	}
	defer database.ClosePostgres()
	redisClient := database.GetRedis(cfg)
	defer database.CloseRedis()

	userRepo := identity.NewRepository(db)
	farmRepo := farms.NewRepository(db)
	priceRepo := market.NewRepository(db)
	runRepo := serving.NewRepository(db)
	for name, migrate := range map[string]func() error{
		"users":           userRepo.AutoMigrate,
		"farms":           farmRepo.AutoMigrate,
		"market_data":     priceRepo.AutoMigrate,
		"recommendations": runRepo.AutoMigrate,
	} {
		if err := migrate(); err != nil {
			logger.Log.WithError(err).WithField("table", name).Fatal("Failed to migrate")
		}
	}

	farmEvents := kafka.NewProducer(cfg, cfg.FarmCreatedTopic)
	defer farmEvents.Close()
	recommendationEvents := kafka.NewProducer(cfg, cfg.RecommendationTopic)
	defer recommendationEvents.Close()

	tokens, err := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTTTL)
	if err != nil {
		logger.Log.WithError(err).Fatal("Invalid JWT configuration")
	}

	weather := ingestion.NewWeatherClient(
		cfg.OpenWeatherBaseURL,
		cfg.OpenWeatherAPIKey,
		httpclient.New(cfg.OpenWeatherTimeout),
		cfg.UpstreamRetries,
		cfg.UpstreamRetryDelay,
	)
	if cfg.OpenWeatherAPIKey == "" {
		logger.Log.Warn("OPENWEATHER_API_KEY not set, farm recommendations will fail upstream")
	}

	farmService := farms.NewService(farmRepo, farmEvents)
	recommendations := serving.NewService(serving.Deps{
		Engine:       engine,
		Farms:        farmService,
		Weather:      storage.NewForecastCache(redisClient, weather, cfg.ForecastCacheTTL),
		Prices:       market.NewResolver(storage.NewPriceCache(redisClient, priceRepo, cfg.MarketPriceCacheTTL)),
		Runs:         runRepo,
		Producer:     recommendationEvents,
		ModelVersion: bundle.Version(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bot := chatbot.New(ctx, chatbot.Config{
		ServiceURL:    cfg.ChatbotServiceURL,
		TokenURL:      cfg.ChatbotTokenURL,
		ClientID:      cfg.ChatbotClientID,
		ClientSecret:  cfg.ChatbotClientSecret,
		Timeout:       cfg.ChatbotTimeout,
		DefaultRegion: cfg.ChatbotRegion,
	})

	router := routes.NewRouter(cfg, tokens, routes.Handlers{
		Health:          routes.NewHealthHandler(ready.Load),
		Auth:            routes.NewAuthHandler(identity.NewService(userRepo), tokens),
		Farms:           routes.NewFarmHandler(farmService),
		Recommendations: routes.NewRecommendationHandler(recommendations, len(bundle.Classes())),
		Market:          routes.NewMarketHandler(priceRepo),
		Chatbot:         routes.NewChatbotHandler(bot),
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host":          cfg.ServerHost,
			"port":          cfg.ServerPort,
			"model_version": bundle.Version(),
			"crops":         len(bundle.Classes()),
		}).Info("Advisor Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()
	ready.Store(true)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Advisor Service...")
	ready.Store(false)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("Advisor Service stopped")
}
