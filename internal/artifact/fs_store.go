// Package artifact persists generated images to local storage. The full
// image is written verbatim and a fixed-width thumbnail is derived next to
// it, mirroring how the served uploads directory is laid out.
package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/prismworks/prism-api/internal/config"
	"github.com/prismworks/prism-api/internal/task"
)

// Common errors returned by the artifact package
var (
	// ErrInvalidConfig is returned when the store configuration is invalid.
	ErrInvalidConfig = errors.New("invalid artifact store configuration")

	// ErrUndecodableImage is returned when the artifact bytes are not a
	// decodable image, which makes thumbnail derivation impossible.
	ErrUndecodableImage = errors.New("artifact is not a decodable image")
)

// FSStore writes artifacts to a local directory. It implements the
// orchestrator's ArtifactStore contract.
type FSStore struct {
	dir            string
	baseURL        string
	thumbnailWidth int
	logger         *slog.Logger
}

// Ensure FSStore implements the artifact persistence contract
var _ task.ArtifactStore = (*FSStore)(nil)

// NewFSStore creates a filesystem artifact store, creating the target
// directory if it does not exist.
func NewFSStore(cfg config.ArtifactConfig, logger *slog.Logger) (*FSStore, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("%w: directory cannot be empty", ErrInvalidConfig)
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL cannot be empty", ErrInvalidConfig)
	}
	if cfg.ThumbnailWidth <= 0 {
		return nil, fmt.Errorf("%w: thumbnail width must be positive", ErrInvalidConfig)
	}

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory %s: %w", cfg.Dir, err)
	}

	return &FSStore{
		dir:            cfg.Dir,
		baseURL:        cfg.BaseURL,
		thumbnailWidth: cfg.ThumbnailWidth,
		logger:         logger.With(slog.String("component", "artifact_store")),
	}, nil
}

// Save writes the artifact bytes as image_<uuid>.png, derives a thumbnail
// as thumb_image_<uuid>.png, and returns the new artifact's identity and
// public URLs. The original bytes are stored untouched; only the thumbnail
// is re-encoded.
func (s *FSStore) Save(ctx context.Context, data []byte, ownerID uuid.UUID) (task.SavedArtifact, error) {
	// Decode up front so a corrupt artifact fails before anything is written.
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return task.SavedArtifact{}, fmt.Errorf("%w: %v", ErrUndecodableImage, err)
	}

	artifactID := uuid.New()
	imageName := fmt.Sprintf("image_%s.png", artifactID)
	thumbnailName := "thumb_" + imageName

	imagePath := filepath.Join(s.dir, imageName)
	if err := os.WriteFile(imagePath, data, 0o644); err != nil {
		return task.SavedArtifact{}, fmt.Errorf("failed to write image file: %w", err)
	}

	// Height 0 preserves the aspect ratio.
	thumbnail := imaging.Resize(img, s.thumbnailWidth, 0, imaging.Lanczos)
	thumbnailPath := filepath.Join(s.dir, thumbnailName)
	if err := imaging.Save(thumbnail, thumbnailPath); err != nil {
		// Do not leave a full image behind without its thumbnail
		_ = os.Remove(imagePath)
		return task.SavedArtifact{}, fmt.Errorf("failed to write thumbnail file: %w", err)
	}

	s.logger.DebugContext(ctx, "artifact saved",
		"artifact_id", artifactID,
		"owner_id", ownerID,
		"size_bytes", len(data))

	return task.SavedArtifact{
		ID:           artifactID,
		ImageURL:     s.baseURL + "/" + imageName,
		ThumbnailURL: s.baseURL + "/" + thumbnailName,
	}, nil
}

// Remove deletes an artifact's image and thumbnail files. Missing files are
// tolerated so removal is idempotent.
func (s *FSStore) Remove(ctx context.Context, artifactID uuid.UUID) error {
	imageName := fmt.Sprintf("image_%s.png", artifactID)

	for _, name := range []string{imageName, "thumb_" + imageName} {
		err := os.Remove(filepath.Join(s.dir, name))
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove artifact file %s: %w", name, err)
		}
	}

	s.logger.DebugContext(ctx, "artifact removed", "artifact_id", artifactID)

	return nil
}
