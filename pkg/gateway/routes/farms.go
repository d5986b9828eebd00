package routes

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/agri-advisor/platform/pkg/common/models"
)

// FarmService is implemented by *farms.Service.
type FarmService interface {
	Create(ctx context.Context, ownerID uuid.UUID, req models.CreateFarmRequest) (models.Farm, error)
	List(ctx context.Context, ownerID uuid.UUID) ([]models.Farm, error)
	GetOwned(ctx context.Context, ownerID, farmID uuid.UUID) (models.Farm, error)
	UpdateSoil(ctx context.Context, ownerID, farmID uuid.UUID, soil models.SoilData) (models.Farm, error)
}

type FarmHandler struct {
	service FarmService
}

func NewFarmHandler(service FarmService) *FarmHandler {
	return &FarmHandler{service: service}
}

func (h *FarmHandler) Register(r *mux.Router) {
	r.HandleFunc("", h.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("", h.handleList).Methods(http.MethodGet)
	r.HandleFunc("/{id}", h.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/{id}/soil", h.handleUpdateSoil).Methods(http.MethodPut)
}

func (h *FarmHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	owner, ok := callerID(w, r)
	if !ok {
		return
	}
	var req models.CreateFarmRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	farm, err := h.service.Create(r.Context(), owner, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, farm)
}

func (h *FarmHandler) handleList(w http.ResponseWriter, r *http.Request) {
	owner, ok := callerID(w, r)
	if !ok {
		return
	}
	list, err := h.service.List(r.Context(), owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []models.Farm{}
	}
	respondJSON(w, http.StatusOK, list)
}

func (h *FarmHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	owner, ok := callerID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	farm, err := h.service.GetOwned(r.Context(), owner, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, farm)
}

func (h *FarmHandler) handleUpdateSoil(w http.ResponseWriter, r *http.Request) {
	owner, ok := callerID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var soil models.SoilData
	if !decodeJSON(w, r, &soil) {
		return
	}

	farm, err := h.service.UpdateSoil(r.Context(), owner, id, soil)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, farm)
}
