package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/prismworks/prism-api/internal/domain"
)

// ImageStore defines the interface for image catalog persistence.
// Version: 1.0
type ImageStore interface {
	// Create saves a new image catalog entry.
	// The image must be valid according to domain validation rules.
	// Returns ErrDuplicate if an image with the same ID already exists.
	Create(ctx context.Context, image *domain.Image) error

	// GetByID retrieves an image by its unique ID.
	// Returns ErrImageNotFound if the image does not exist.
	//
	// Visibility is not enforced here: the caller decides access with
	// domain.Image.VisibleTo against the requester identity.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Image, error)

	// Delete removes an image catalog entry by its ID.
	// Returns ErrImageNotFound if the image does not exist.
	//
	// Ownership must be checked by the caller before deleting; the stored
	// files are removed separately by the artifact layer.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new ImageStore instance that uses the provided
	// transaction. The transaction should be created and managed by the
	// caller, typically through store.RunInTransaction.
	WithTx(tx *sql.Tx) ImageStore
}
