package routes

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/agri-advisor/platform/pkg/common/models"
)

// PriceLister is implemented by *market.Repository.
type PriceLister interface {
	List(ctx context.Context) ([]models.MarketPrice, error)
}

type MarketHandler struct {
	prices PriceLister
}

func NewMarketHandler(prices PriceLister) *MarketHandler {
	return &MarketHandler{prices: prices}
}

func (h *MarketHandler) Register(r *mux.Router) {
	r.HandleFunc("", h.handleList).Methods(http.MethodGet)
}

func (h *MarketHandler) handleList(w http.ResponseWriter, r *http.Request) {
	prices, err := h.prices.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if prices == nil {
		prices = []models.MarketPrice{}
	}
	respondJSON(w, http.StatusOK, prices)
}
