package domain

import "errors"

// Visibility controls whether a generated image is visible to other users.
type Visibility string

// Possible visibility values
const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Default generation parameters applied by Normalize.
const (
	DefaultDimension     = 512
	DefaultSamplingSteps = 30
)

// Common validation errors for GenerationRequest
var (
	ErrEmptyPrompt          = errors.New("prompt cannot be empty")
	ErrInvalidDimensions    = errors.New("width and height must be positive")
	ErrInvalidSamplingSteps = errors.New("sampling steps must be positive")
	ErrInvalidVisibility    = errors.New("invalid visibility")
)

// GenerationRequest holds the parameters of a single image generation
// submitted by a user. It is immutable once a task has been created from it.
type GenerationRequest struct {
	Prompt         string     `json:"prompt"`
	NegativePrompt string     `json:"negative_prompt,omitempty"`
	Style          string     `json:"style,omitempty"`
	Width          int        `json:"width"`
	Height         int        `json:"height"`
	SamplingSteps  int        `json:"sampling_steps"`
	Visibility     Visibility `json:"visibility"`
}

// Normalize fills in default values for fields the caller left unset.
// Zero width/height become 512, zero sampling steps become 30, and an
// empty visibility becomes public.
func (r *GenerationRequest) Normalize() {
	if r.Width == 0 {
		r.Width = DefaultDimension
	}
	if r.Height == 0 {
		r.Height = DefaultDimension
	}
	if r.SamplingSteps == 0 {
		r.SamplingSteps = DefaultSamplingSteps
	}
	if r.Visibility == "" {
		r.Visibility = VisibilityPublic
	}
}

// Validate checks if the GenerationRequest has valid data.
// Returns an error if any field fails validation.
func (r *GenerationRequest) Validate() error {
	if r.Prompt == "" {
		return ErrEmptyPrompt
	}

	if r.Width <= 0 || r.Height <= 0 {
		return ErrInvalidDimensions
	}

	if r.SamplingSteps <= 0 {
		return ErrInvalidSamplingSteps
	}

	if !isValidVisibility(r.Visibility) {
		return ErrInvalidVisibility
	}

	return nil
}

// isValidVisibility checks if the given visibility is a known value.
func isValidVisibility(v Visibility) bool {
	switch v {
	case VisibilityPublic, VisibilityPrivate:
		return true
	default:
		return false
	}
}
