package routes

import (
	"github.com/gorilla/mux"

	"github.com/agri-advisor/platform/pkg/common/config"
	gatewayauth "github.com/agri-advisor/platform/pkg/gateway/auth"
	"github.com/agri-advisor/platform/pkg/gateway/middleware"
)

// Handlers groups the API handlers mounted by NewRouter.
type Handlers struct {
	Health          *HealthHandler
	Auth            *AuthHandler
	Farms           *FarmHandler
	Recommendations *RecommendationHandler
	Market          *MarketHandler
	Chatbot         *ChatbotHandler
}

// NewRouter mounts every handler under /api/v1. Everything except
// registration, login and the health endpoints requires a bearer token.
func NewRouter(cfg *config.Config, tokens *gatewayauth.JWTManager, h Handlers) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)
	router.Use(middleware.CORS)

	h.Health.Register(router)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	api.Use(middleware.BodyLimit(cfg.MaxRequestBody))

	h.Auth.Register(api.PathPrefix("/auth").Subrouter())

	protected := api.NewRoute().Subrouter()
	protected.Use(middleware.Authenticate(tokens))
	h.Farms.Register(protected.PathPrefix("/farms").Subrouter())
	h.Recommendations.Register(protected.PathPrefix("/recommendations").Subrouter())
	h.Market.Register(protected.PathPrefix("/market-prices").Subrouter())
	h.Chatbot.Register(protected.PathPrefix("/chatbot").Subrouter())

	return router
}
