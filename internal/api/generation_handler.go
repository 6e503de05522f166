package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/prismworks/prism-api/internal/api/shared"
	"github.com/prismworks/prism-api/internal/domain"
	"github.com/prismworks/prism-api/internal/task"
)

// GenerationService is the contract the generation handler needs from the
// task orchestrator.
type GenerationService interface {
	// Submit validates the request, creates a task, and enqueues it.
	Submit(ctx context.Context, ownerID uuid.UUID, req domain.GenerationRequest) (uuid.UUID, error)

	// GetStatus returns a snapshot of the task, enforcing ownership.
	GetStatus(ctx context.Context, taskID uuid.UUID, requesterID uuid.UUID) (task.Snapshot, error)
}

// GenerationHandler handles generation task HTTP requests.
type GenerationHandler struct {
	service   GenerationService
	validator *validator.Validate
}

// NewGenerationHandler creates a new GenerationHandler.
func NewGenerationHandler(service GenerationService) *GenerationHandler {
	return &GenerationHandler{
		service:   service,
		validator: validator.New(),
	}
}

// SubmitGeneration handles POST /api/generations requests.
// A valid request is answered with 202 Accepted as soon as the task record
// exists; generation happens in the background.
func (h *GenerationHandler) SubmitGeneration(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(shared.UserIDContextKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	var req GenerateImageRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	taskID, err := h.service.Submit(r.Context(), userID, req.toDomain())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, GenerationAcceptedResponse{
		TaskID: taskID.String(),
		State:  string(task.StatePending),
	})
}

// GetGeneration handles GET /api/generations/{id} requests.
func (h *GenerationHandler) GetGeneration(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(shared.UserIDContextKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	taskID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	snap, err := h.service.GetStatus(r.Context(), taskID, userID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, snapshotToResponse(snap))
}
