package routes

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/agri-advisor/platform/pkg/common/models"
	"github.com/agri-advisor/platform/pkg/recommend"
)

// RecommendationService is implemented by *serving.Service.
type RecommendationService interface {
	ForFarm(ctx context.Context, userID, farmID uuid.UUID, marketPrice *float64, topN int) (models.RecommendationResponse, error)
	Evaluate(ctx context.Context, userID uuid.UUID, in recommend.Input, topN int) (models.RecommendationResponse, error)
	Save(ctx context.Context, userID uuid.UUID, req models.SaveRecommendationRequest) (models.SavedRecommendation, error)
	History(ctx context.Context, userID, ownerID uuid.UUID) ([]models.SavedRecommendation, error)
}

type RecommendationHandler struct {
	service RecommendationService
	maxTopN int
}

// NewRecommendationHandler caps top_n at maxTopN.
func NewRecommendationHandler(service RecommendationService, maxTopN int) *RecommendationHandler {
	if maxTopN <= 0 {
		maxTopN = 22
	}
	return &RecommendationHandler{service: service, maxTopN: maxTopN}
}

func (h *RecommendationHandler) Register(r *mux.Router) {
	r.HandleFunc("/evaluate", h.handleEvaluate).Methods(http.MethodPost)
	r.HandleFunc("/save", h.handleSave).Methods(http.MethodPost)
	r.HandleFunc("/history/{user_id}", h.handleHistory).Methods(http.MethodGet)
	r.HandleFunc("/{farm_id}", h.handleForFarm).Methods(http.MethodGet)
}

func (h *RecommendationHandler) handleForFarm(w http.ResponseWriter, r *http.Request) {
	user, ok := callerID(w, r)
	if !ok {
		return
	}
	farmID, ok := pathID(w, r, "farm_id")
	if !ok {
		return
	}

	var price *float64
	if raw := r.URL.Query().Get("market_price"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "input_validation", "market_price must be a number")
			return
		}
		price = &v
	}
	topN, ok := h.topN(w, r)
	if !ok {
		return
	}

	resp, err := h.service.ForFarm(r.Context(), user, farmID, price, topN)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *RecommendationHandler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	user, ok := callerID(w, r)
	if !ok {
		return
	}
	var in recommend.Input
	if !decodeJSON(w, r, &in) {
		return
	}
	topN, ok := h.topN(w, r)
	if !ok {
		return
	}

	resp, err := h.service.Evaluate(r.Context(), user, in, topN)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *RecommendationHandler) handleSave(w http.ResponseWriter, r *http.Request) {
	user, ok := callerID(w, r)
	if !ok {
		return
	}
	var req models.SaveRecommendationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	saved, err := h.service.Save(r.Context(), user, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, saved)
}

func (h *RecommendationHandler) handleHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := callerID(w, r)
	if !ok {
		return
	}
	owner, ok := pathID(w, r, "user_id")
	if !ok {
		return
	}

	history, err := h.service.History(r.Context(), user, owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if history == nil {
		history = []models.SavedRecommendation{}
	}
	respondJSON(w, http.StatusOK, history)
}

// topN reads ?top_n=; zero means the engine default. Asking for more
// crops than the classifier knows returns all of them.
func (h *RecommendationHandler) topN(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("top_n")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		respondError(w, http.StatusBadRequest, "input_validation", "top_n must be a positive integer")
		return 0, false
	}
	if n > h.maxTopN {
		n = h.maxTopN
	}
	return n, true
}
