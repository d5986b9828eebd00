package routes

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/agri-advisor/platform/pkg/observability/metrics"
)

// HealthHandler serves liveness, readiness and Prometheus metrics.
type HealthHandler struct {
	ready   func() bool
	started time.Time
}

func NewHealthHandler(ready func() bool) *HealthHandler {
	return &HealthHandler{ready: ready, started: time.Now()}
}

func (h *HealthHandler) Register(r *mux.Router) {
	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ready", h.handleReady).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
}

func (h *HealthHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"uptime": time.Since(h.started).Round(time.Second).String(),
	})
}

func (h *HealthHandler) handleReady(w http.ResponseWriter, r *http.Request) {
	if h.ready == nil || !h.ready() {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
