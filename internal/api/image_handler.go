package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/prismworks/prism-api/internal/api/shared"
	"github.com/prismworks/prism-api/internal/domain"
)

// ImageCatalogService is the contract the image handler needs from the
// image service.
type ImageCatalogService interface {
	// GetImage retrieves a catalog entry, enforcing visibility.
	GetImage(ctx context.Context, imageID uuid.UUID, requesterID uuid.UUID) (*domain.Image, error)

	// DeleteImage removes a catalog entry and its files, owner only.
	DeleteImage(ctx context.Context, imageID uuid.UUID, requesterID uuid.UUID) error
}

// ImageHandler handles image catalog HTTP requests.
type ImageHandler struct {
	service ImageCatalogService
}

// NewImageHandler creates a new ImageHandler.
func NewImageHandler(service ImageCatalogService) *ImageHandler {
	return &ImageHandler{service: service}
}

// GetImage handles GET /api/images/{id} requests.
func (h *ImageHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(shared.UserIDContextKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	imageID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid image ID")
		return
	}

	image, err := h.service.GetImage(r.Context(), imageID, userID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, imageToResponse(image))
}

// DeleteImage handles DELETE /api/images/{id} requests.
func (h *ImageHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(shared.UserIDContextKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	imageID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid image ID")
		return
	}

	if err := h.service.DeleteImage(r.Context(), imageID, userID); err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{
		"message": "Image deleted",
	})
}
