package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"bonappetit-backend/internal/middleware"
	"bonappetit-backend/internal/repository"
	"bonappetit-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const maxImageSize = 10 << 20 // 10 MiB

// FoodHandler handles food posting, sync and rating requests
type FoodHandler struct {
	randoService *services.RandoService
	userService  *services.UserService
}

// NewFoodHandler creates a new food handler
func NewFoodHandler(randoService *services.RandoService, userService *services.UserService) *FoodHandler {
	return &FoodHandler{
		randoService: randoService,
		userService:  userService,
	}
}

// PostFood handles POST /api/v1/food
func (h *FoodHandler) PostFood(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := middleware.GetUser(ctx)

	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		respondError(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		respondError(w, "image is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, maxImageSize))
	if err != nil {
		respondError(w, "Failed to read image", http.StatusBadRequest)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}

	latitude, _ := strconv.ParseFloat(r.FormValue("latitude"), 64)
	longitude, _ := strconv.ParseFloat(r.FormValue("longitude"), 64)

	rando, err := h.randoService.PostFood(ctx, user.Email, image, contentType, latitude, longitude)
	if err != nil {
		log.Error().Err(err).Str("email", user.Email).Msg("Failed to post food")
		respondError(w, "Failed to post food", http.StatusInternalServerError)
		return
	}

	respondJSON(w, rando.Sync(), http.StatusOK)
}

// GetFood handles GET /api/v1/food: the user sync view with incoming
// stranger randos and the user's own outgoing ones
func (h *FoodHandler) GetFood(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := middleware.GetUser(ctx)

	out, err := h.randoService.GetOut(ctx, user.Email)
	if err != nil {
		log.Error().Err(err).Str("email", user.Email).Msg("Failed to get user randos")
		respondError(w, "Failed to get food", http.StatusInternalServerError)
		return
	}

	respondJSON(w, h.userService.BuildUserSync(user, out), http.StatusOK)
}

// Report handles POST /api/v1/report/{rando_id}
func (h *FoodHandler) Report(w http.ResponseWriter, r *http.Request) {
	h.rate(w, r, h.randoService.Report, "Rando reported")
}

// BonAppetit handles POST /api/v1/bonappetit/{rando_id}
func (h *FoodHandler) BonAppetit(w http.ResponseWriter, r *http.Request) {
	h.rate(w, r, h.randoService.BonAppetit, "Bon appetit recorded")
}

func (h *FoodHandler) rate(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, randoID string) error, event string) {
	ctx := r.Context()
	user := middleware.GetUser(ctx)
	randoID := chi.URLParam(r, "rando_id")

	if randoID == "" {
		respondError(w, "rando_id is required", http.StatusBadRequest)
		return
	}

	if err := apply(ctx, randoID); err != nil {
		if errors.Is(err, repository.ErrRandoNotFound) {
			respondError(w, "rando not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("rando_id", randoID).Msg("Failed to rate rando")
		respondError(w, "Failed to rate rando", http.StatusInternalServerError)
		return
	}

	log.Info().
		Str("email", user.Email).
		Str("rando_id", randoID).
		Msg(event)

	w.WriteHeader(http.StatusNoContent)
}
