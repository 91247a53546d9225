package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"bonappetit-backend/internal/middleware"
	"bonappetit-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// LoginRequest represents the request body for email/password login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AnonymousRequest represents the request body for anonymous login
type AnonymousRequest struct {
	ID string `json:"id"`
}

// TokenResponse carries the issued auth token
type TokenResponse struct {
	Token string `json:"token"`
}

// PushTokenRequest represents the request body for push token registration
type PushTokenRequest struct {
	PushToken string `json:"push_token"`
}

// Login handles POST /api/v1/users
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	token, err := h.userService.FindOrCreateByLoginAndPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			respondError(w, err.Error(), http.StatusUnauthorized)
			return
		}
		log.Error().Err(err).Str("email", req.Email).Msg("Failed to log user in")
		respondError(w, "Failed to log in", http.StatusInternalServerError)
		return
	}

	log.Info().Str("email", req.Email).Msg("User logged in")
	respondJSON(w, TokenResponse{Token: token}, http.StatusOK)
}

// LoginAnonymous handles POST /api/v1/users/anonymous
func (h *UserHandler) LoginAnonymous(w http.ResponseWriter, r *http.Request) {
	var req AnonymousRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.ID == "" {
		respondError(w, "id is required", http.StatusBadRequest)
		return
	}

	token, err := h.userService.FindOrCreateAnonymous(r.Context(), req.ID)
	if err != nil {
		log.Error().Err(err).Str("anonymous_id", req.ID).Msg("Failed to log anonymous user in")
		respondError(w, "Failed to log in", http.StatusInternalServerError)
		return
	}

	log.Info().Str("anonymous_id", req.ID).Msg("Anonymous user logged in")
	respondJSON(w, TokenResponse{Token: token}, http.StatusOK)
}

// Logout handles DELETE /api/v1/session
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	if err := h.userService.Logout(r.Context(), user.Email); err != nil {
		log.Error().Err(err).Str("email", user.Email).Msg("Failed to log user out")
		respondError(w, "Failed to log out", http.StatusInternalServerError)
		return
	}

	log.Info().Str("email", user.Email).Msg("User logged out")
	w.WriteHeader(http.StatusNoContent)
}

// RegisterPushToken handles PUT /api/v1/users/push-token
func (h *UserHandler) RegisterPushToken(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	var req PushTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.userService.RegisterPushToken(r.Context(), user.Email, req.PushToken); err != nil {
		log.Error().Err(err).Str("email", user.Email).Msg("Failed to register push token")
		respondError(w, "Failed to register push token", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
