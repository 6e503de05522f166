package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/prismworks/prism-api/internal/domain"
	"github.com/prismworks/prism-api/internal/store"
)

// ArtifactRemover deletes the stored files behind an image catalog entry.
// The filesystem artifact store satisfies this directly.
type ArtifactRemover interface {
	Remove(ctx context.Context, artifactID uuid.UUID) error
}

// ImageService provides read and delete access to the image catalog with
// visibility and ownership enforcement.
type ImageService struct {
	db        *sql.DB
	images    store.ImageStore
	artifacts ArtifactRemover
	logger    *slog.Logger
}

// NewImageService creates a new ImageService with the given dependencies.
func NewImageService(
	db *sql.DB,
	images store.ImageStore,
	artifacts ArtifactRemover,
	logger *slog.Logger,
) (*ImageService, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	if images == nil {
		return nil, errors.New("image store cannot be nil")
	}
	if artifacts == nil {
		return nil, errors.New("artifact remover cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	return &ImageService{
		db:        db,
		images:    images,
		artifacts: artifacts,
		logger:    logger.With(slog.String("component", "image_service")),
	}, nil
}

// GetImage retrieves a catalog entry, enforcing visibility: public images
// are readable by anyone, private images only by their owner.
//
// Returns store.ErrImageNotFound for unknown IDs and ErrImageAccessDenied
// for private images read by a non-owner.
func (s *ImageService) GetImage(
	ctx context.Context,
	imageID uuid.UUID,
	requesterID uuid.UUID,
) (*domain.Image, error) {
	image, err := s.images.GetByID(ctx, imageID)
	if err != nil {
		return nil, err
	}

	if !image.VisibleTo(requesterID) {
		return nil, ErrImageAccessDenied
	}

	return image, nil
}

// DeleteImage removes a catalog entry and its stored files. Only the owner
// may delete an image, regardless of visibility.
//
// The catalog row is deleted transactionally; file removal happens after
// commit and a failure there is logged but not surfaced, since the catalog
// is already consistent and orphaned files are harmless.
func (s *ImageService) DeleteImage(
	ctx context.Context,
	imageID uuid.UUID,
	requesterID uuid.UUID,
) error {
	image, err := s.images.GetByID(ctx, imageID)
	if err != nil {
		return err
	}

	if image.UserID != requesterID {
		return ErrImageAccessDenied
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.images.WithTx(tx).Delete(ctx, imageID)
	})
	if err != nil {
		return fmt.Errorf("failed to delete image %s: %w", imageID, err)
	}

	if err := s.artifacts.Remove(ctx, imageID); err != nil {
		s.logger.WarnContext(ctx, "failed to remove artifact files for deleted image",
			"image_id", imageID,
			"error", err)
	}

	s.logger.InfoContext(ctx, "image deleted",
		"image_id", imageID,
		"user_id", requesterID)

	return nil
}
