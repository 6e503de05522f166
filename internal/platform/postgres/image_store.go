package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/prismworks/prism-api/internal/domain"
	"github.com/prismworks/prism-api/internal/store"
)

// PostgresImageStore implements the store.ImageStore interface
// using a PostgreSQL database as the storage backend.
type PostgresImageStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresImageStore creates a new PostgreSQL implementation of the
// ImageStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller. If logger is nil,
// a default logger will be used.
func NewPostgresImageStore(db store.DBTX, logger *slog.Logger) *PostgresImageStore {
	if db == nil {
		// ALLOW-PANIC: Constructor enforces non-nil dependency
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresImageStore{
		db:     db,
		logger: logger.With(slog.String("component", "image_store")),
	}
}

// Ensure PostgresImageStore implements store.ImageStore interface
var _ store.ImageStore = (*PostgresImageStore)(nil)

// Create implements store.ImageStore.Create
// It validates the image and inserts one catalog row.
func (s *PostgresImageStore) Create(ctx context.Context, image *domain.Image) error {
	if err := image.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO images
			(id, user_id, prompt, negative_prompt, style, image_url,
			 thumbnail_url, width, height, sampling_steps, is_public, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := s.db.ExecContext(ctx, query,
		image.ID,
		image.UserID,
		image.Prompt,
		nullString(image.NegativePrompt),
		nullString(image.Style),
		image.ImageURL,
		image.ThumbnailURL,
		image.Width,
		image.Height,
		image.SamplingSteps,
		image.Visibility == domain.VisibilityPublic,
		image.CreatedAt,
	)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to insert image",
			"image_id", image.ID,
			"error", err)
		return MapError(err)
	}

	s.logger.DebugContext(ctx, "image catalog entry created",
		"image_id", image.ID,
		"user_id", image.UserID)

	return nil
}

// GetByID implements store.ImageStore.GetByID
// Returns store.ErrImageNotFound if the image does not exist.
func (s *PostgresImageStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Image, error) {
	query := `
		SELECT id, user_id, prompt, negative_prompt, style, image_url,
		       thumbnail_url, width, height, sampling_steps, is_public, created_at
		FROM images
		WHERE id = $1
	`

	var (
		image          domain.Image
		negativePrompt sql.NullString
		style          sql.NullString
		isPublic       bool
	)

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&image.ID,
		&image.UserID,
		&image.Prompt,
		&negativePrompt,
		&style,
		&image.ImageURL,
		&image.ThumbnailURL,
		&image.Width,
		&image.Height,
		&image.SamplingSteps,
		&isPublic,
		&image.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrImageNotFound
		}
		s.logger.ErrorContext(ctx, "failed to get image",
			"image_id", id,
			"error", err)
		return nil, MapError(err)
	}

	image.NegativePrompt = negativePrompt.String
	image.Style = style.String
	image.Visibility = domain.VisibilityPrivate
	if isPublic {
		image.Visibility = domain.VisibilityPublic
	}

	return &image, nil
}

// Delete implements store.ImageStore.Delete
// Returns store.ErrImageNotFound if the image does not exist.
func (s *PostgresImageStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM images WHERE id = $1`, id)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to delete image",
			"image_id", id,
			"error", err)
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "image"); err != nil {
		return store.ErrImageNotFound
	}

	s.logger.DebugContext(ctx, "image catalog entry deleted", "image_id", id)

	return nil
}

// WithTx implements store.ImageStore.WithTx
func (s *PostgresImageStore) WithTx(tx *sql.Tx) store.ImageStore {
	return &PostgresImageStore{
		db:     tx,
		logger: s.logger,
	}
}

// nullString maps an empty string onto SQL NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
