package api

import (
	"time"

	"github.com/prismworks/prism-api/internal/domain"
	"github.com/prismworks/prism-api/internal/task"
)

// GenerateImageRequest defines the payload for submitting a generation.
// Zero dimensions and sampling steps take the service defaults; is_public
// defaults to true, matching the catalog default.
type GenerateImageRequest struct {
	Prompt         string `json:"prompt"          validate:"required,min=1"`
	NegativePrompt string `json:"negative_prompt"`
	Style          string `json:"style"`
	Width          int    `json:"width"           validate:"gte=0"`
	Height         int    `json:"height"          validate:"gte=0"`
	SamplingSteps  int    `json:"sampling_steps"  validate:"gte=0"`
	IsPublic       *bool  `json:"is_public"`
}

// toDomain converts the request payload to a domain generation request.
func (r GenerateImageRequest) toDomain() domain.GenerationRequest {
	visibility := domain.VisibilityPublic
	if r.IsPublic != nil && !*r.IsPublic {
		visibility = domain.VisibilityPrivate
	}

	return domain.GenerationRequest{
		Prompt:         r.Prompt,
		NegativePrompt: r.NegativePrompt,
		Style:          r.Style,
		Width:          r.Width,
		Height:         r.Height,
		SamplingSteps:  r.SamplingSteps,
		Visibility:     visibility,
	}
}

// GenerationAcceptedResponse is returned when a generation is queued.
type GenerationAcceptedResponse struct {
	TaskID string `json:"task_id"`
	State  string `json:"state"`
}

// GenerationResultResponse carries the artifact locations of a succeeded task.
type GenerationResultResponse struct {
	ImageID      string `json:"image_id"`
	ImageURL     string `json:"image_url"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// GenerationStatusResponse is the status snapshot of a generation task.
type GenerationStatusResponse struct {
	TaskID    string                    `json:"task_id"`
	State     string                    `json:"state"`
	Progress  int                       `json:"progress"`
	Error     string                    `json:"error,omitempty"`
	Result    *GenerationResultResponse `json:"result,omitempty"`
	CreatedAt time.Time                 `json:"created_at"`
}

// snapshotToResponse converts a task snapshot to its API representation.
func snapshotToResponse(snap task.Snapshot) GenerationStatusResponse {
	resp := GenerationStatusResponse{
		TaskID:    snap.ID.String(),
		State:     string(snap.State),
		Progress:  snap.Progress,
		Error:     snap.Error,
		CreatedAt: snap.CreatedAt,
	}

	if snap.Result != nil {
		resp.Result = &GenerationResultResponse{
			ImageID:      snap.Result.ArtifactID.String(),
			ImageURL:     snap.Result.ImageURL,
			ThumbnailURL: snap.Result.ThumbnailURL,
		}
	}

	return resp
}

// ImageResponse is the API representation of an image catalog entry.
type ImageResponse struct {
	ImageID        string    `json:"image_id"`
	UserID         string    `json:"user_id"`
	Prompt         string    `json:"prompt"`
	NegativePrompt string    `json:"negative_prompt,omitempty"`
	Style          string    `json:"style,omitempty"`
	ImageURL       string    `json:"image_url"`
	ThumbnailURL   string    `json:"thumbnail_url"`
	Width          int       `json:"width"`
	Height         int       `json:"height"`
	SamplingSteps  int       `json:"sampling_steps"`
	IsPublic       bool      `json:"is_public"`
	CreatedAt      time.Time `json:"created_at"`
}

// imageToResponse converts a domain.Image to an ImageResponse.
func imageToResponse(image *domain.Image) ImageResponse {
	return ImageResponse{
		ImageID:        image.ID.String(),
		UserID:         image.UserID.String(),
		Prompt:         image.Prompt,
		NegativePrompt: image.NegativePrompt,
		Style:          image.Style,
		ImageURL:       image.ImageURL,
		ThumbnailURL:   image.ThumbnailURL,
		Width:          image.Width,
		Height:         image.Height,
		SamplingSteps:  image.SamplingSteps,
		IsPublic:       image.Visibility == domain.VisibilityPublic,
		CreatedAt:      image.CreatedAt,
	}
}
