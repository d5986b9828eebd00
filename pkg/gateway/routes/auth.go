package routes

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/agri-advisor/platform/pkg/common/models"
	gatewayauth "github.com/agri-advisor/platform/pkg/gateway/auth"
	"github.com/agri-advisor/platform/pkg/gateway/middleware"
)

// UserService is implemented by *identity.Service.
type UserService interface {
	Register(ctx context.Context, req models.RegisterRequest) (models.User, error)
	Authenticate(ctx context.Context, email, password string) (models.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (models.User, error)
}

type AuthHandler struct {
	service     UserService
	tokenSigner *gatewayauth.JWTManager
}

func NewAuthHandler(service UserService, tokenSigner *gatewayauth.JWTManager) *AuthHandler {
	return &AuthHandler{service: service, tokenSigner: tokenSigner}
}

func (h *AuthHandler) Register(r *mux.Router) {
	r.HandleFunc("/register", h.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/login", h.handleLogin).Methods(http.MethodPost)

	protected := r.NewRoute().Subrouter()
	protected.Use(middleware.Authenticate(h.tokenSigner))
	protected.HandleFunc("/me", h.handleMe).Methods(http.MethodGet)
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.service.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.respondToken(w, r, http.StatusCreated, user)
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.respondToken(w, r, http.StatusOK, user)
}

func (h *AuthHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return
	}

	user, err := h.service.GetUser(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) respondToken(w http.ResponseWriter, r *http.Request, status int, user models.User) {
	token, expires, err := h.tokenSigner.IssueToken(user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, status, models.AuthResponse{
		Token:     token,
		TokenType: "bearer",
		ExpiresAt: expires,
		User:      user,
	})
}

// callerID returns the authenticated user's id; handlers run behind Authenticate.
func callerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return uuid.Nil, false
	}
	return claims.UserID, true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_id", name+" must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}
