package service

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prismworks/prism-api/internal/domain"
	"github.com/prismworks/prism-api/internal/store"
)

// fakeImageStore backs the service with a map; WithTx returns itself since
// these tests never reach a real transaction.
type fakeImageStore struct {
	images map[uuid.UUID]*domain.Image
}

func (f *fakeImageStore) Create(ctx context.Context, image *domain.Image) error {
	f.images[image.ID] = image
	return nil
}

func (f *fakeImageStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Image, error) {
	image, ok := f.images[id]
	if !ok {
		return nil, store.ErrImageNotFound
	}
	return image, nil
}

func (f *fakeImageStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.images[id]; !ok {
		return store.ErrImageNotFound
	}
	delete(f.images, id)
	return nil
}

func (f *fakeImageStore) WithTx(tx *sql.Tx) store.ImageStore { return f }

type fakeRemover struct {
	removed []uuid.UUID
}

func (f *fakeRemover) Remove(ctx context.Context, artifactID uuid.UUID) error {
	f.removed = append(f.removed, artifactID)
	return nil
}

func newTestImageService(t *testing.T, images *fakeImageStore) *ImageService {
	t.Helper()

	svc, err := NewImageService(
		&sql.DB{},
		images,
		&fakeRemover{},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	require.NoError(t, err)

	return svc
}

func storedImage(ownerID uuid.UUID, visibility domain.Visibility) *domain.Image {
	return &domain.Image{
		ID:           uuid.New(),
		UserID:       ownerID,
		Prompt:       "a red fox in snow",
		ImageURL:     "/uploads/images/image_x.png",
		ThumbnailURL: "/uploads/images/thumb_image_x.png",
		Width:        512,
		Height:       512,
		Visibility:   visibility,
		CreatedAt:    time.Now().UTC(),
	}
}

func TestGetImagePublicVisibleToAnyone(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()
	image := storedImage(ownerID, domain.VisibilityPublic)
	images := &fakeImageStore{images: map[uuid.UUID]*domain.Image{image.ID: image}}
	svc := newTestImageService(t, images)

	got, err := svc.GetImage(context.Background(), image.ID, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, image.ID, got.ID)
}

func TestGetImagePrivateOnlyVisibleToOwner(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()
	image := storedImage(ownerID, domain.VisibilityPrivate)
	images := &fakeImageStore{images: map[uuid.UUID]*domain.Image{image.ID: image}}
	svc := newTestImageService(t, images)

	_, err := svc.GetImage(context.Background(), image.ID, uuid.New())
	assert.ErrorIs(t, err, ErrImageAccessDenied)

	got, err := svc.GetImage(context.Background(), image.ID, ownerID)
	require.NoError(t, err)
	assert.Equal(t, image.ID, got.ID)
}

func TestGetImageUnknownID(t *testing.T) {
	t.Parallel()

	svc := newTestImageService(t, &fakeImageStore{images: map[uuid.UUID]*domain.Image{}})

	_, err := svc.GetImage(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, store.ErrImageNotFound)
}

func TestDeleteImageRejectsNonOwner(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()
	// Even a public image may only be deleted by its owner
	image := storedImage(ownerID, domain.VisibilityPublic)
	images := &fakeImageStore{images: map[uuid.UUID]*domain.Image{image.ID: image}}
	svc := newTestImageService(t, images)

	err := svc.DeleteImage(context.Background(), image.ID, uuid.New())
	assert.ErrorIs(t, err, ErrImageAccessDenied)

	// The entry is untouched
	_, err = images.GetByID(context.Background(), image.ID)
	assert.NoError(t, err)
}

func TestDeleteImageUnknownID(t *testing.T) {
	t.Parallel()

	svc := newTestImageService(t, &fakeImageStore{images: map[uuid.UUID]*domain.Image{}})

	err := svc.DeleteImage(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, store.ErrImageNotFound)
}
