package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for Image
var (
	ErrEmptyImageID        = errors.New("image ID cannot be empty")
	ErrEmptyImageUserID    = errors.New("image user ID cannot be empty")
	ErrEmptyImagePrompt    = errors.New("image prompt cannot be empty")
	ErrEmptyImageURL       = errors.New("image URL cannot be empty")
	ErrEmptyThumbnailURL   = errors.New("thumbnail URL cannot be empty")
	ErrInvalidImageExtents = errors.New("image dimensions must be positive")
)

// Image is the durable catalog entry for a generated image. It records
// the prompt that produced it, where the artifact and its thumbnail live,
// and whether the image is publicly visible.
type Image struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	Prompt         string     `json:"prompt"`
	NegativePrompt string     `json:"negative_prompt,omitempty"`
	Style          string     `json:"style,omitempty"`
	ImageURL       string     `json:"image_url"`
	ThumbnailURL   string     `json:"thumbnail_url"`
	Width          int        `json:"width"`
	Height         int        `json:"height"`
	SamplingSteps  int        `json:"sampling_steps"`
	Visibility     Visibility `json:"visibility"`
	CreatedAt      time.Time  `json:"created_at"`
}

// NewImage creates a catalog entry for a freshly persisted artifact.
// The artifact ID doubles as the image ID so catalog rows and files on
// disk can always be correlated. Returns an error if validation fails.
func NewImage(
	artifactID uuid.UUID,
	userID uuid.UUID,
	req GenerationRequest,
	imageURL, thumbnailURL string,
) (*Image, error) {
	image := &Image{
		ID:             artifactID,
		UserID:         userID,
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Style:          req.Style,
		ImageURL:       imageURL,
		ThumbnailURL:   thumbnailURL,
		Width:          req.Width,
		Height:         req.Height,
		SamplingSteps:  req.SamplingSteps,
		Visibility:     req.Visibility,
		CreatedAt:      time.Now().UTC(),
	}

	if err := image.Validate(); err != nil {
		return nil, err
	}

	return image, nil
}

// Validate checks if the Image has valid data.
// Returns an error if any field fails validation.
func (i *Image) Validate() error {
	if i.ID == uuid.Nil {
		return ErrEmptyImageID
	}

	if i.UserID == uuid.Nil {
		return ErrEmptyImageUserID
	}

	if i.Prompt == "" {
		return ErrEmptyImagePrompt
	}

	if i.ImageURL == "" {
		return ErrEmptyImageURL
	}

	if i.ThumbnailURL == "" {
		return ErrEmptyThumbnailURL
	}

	if i.Width <= 0 || i.Height <= 0 {
		return ErrInvalidImageExtents
	}

	if !isValidVisibility(i.Visibility) {
		return ErrInvalidVisibility
	}

	return nil
}

// VisibleTo reports whether the image may be read by the given requester.
// Public images are visible to everyone; private images only to their owner.
func (i *Image) VisibleTo(requesterID uuid.UUID) bool {
	if i.Visibility == VisibilityPublic {
		return true
	}
	return i.UserID == requesterID
}
