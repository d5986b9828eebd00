package routes

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/agri-advisor/platform/pkg/common/logger"
	"github.com/agri-advisor/platform/pkg/common/models"
	"github.com/agri-advisor/platform/pkg/validation"
)

// Asker is implemented by *chatbot.Client.
type Asker interface {
	Ask(ctx context.Context, q models.ChatbotQuery) (models.ChatbotResponse, error)
}

type ChatbotHandler struct {
	bot Asker
}

func NewChatbotHandler(bot Asker) *ChatbotHandler {
	return &ChatbotHandler{bot: bot}
}

func (h *ChatbotHandler) Register(r *mux.Router) {
	r.HandleFunc("/ask", h.handleAsk).Methods(http.MethodPost)
}

func (h *ChatbotHandler) handleAsk(w http.ResponseWriter, r *http.Request) {
	var q models.ChatbotQuery
	if !decodeJSON(w, r, &q) {
		return
	}

	resp, err := h.bot.Ask(r.Context(), q)
	if err != nil {
		var verrs *validation.Errors
		if errors.As(err, &verrs) {
			writeError(w, r, err)
			return
		}
		logger.FromContext(r.Context()).WithError(err).Warn("Chatbot unavailable")
		respondError(w, http.StatusServiceUnavailable, "ai_service_unavailable", "AI service is unavailable")
		return
	}
	respondJSON(w, http.StatusOK, resp)
}
