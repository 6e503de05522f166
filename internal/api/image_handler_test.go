package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prismworks/prism-api/internal/domain"
	"github.com/prismworks/prism-api/internal/service"
	"github.com/prismworks/prism-api/internal/store"
)

type fakeImageService struct {
	image     *domain.Image
	getErr    error
	deleteErr error
	deleted   []uuid.UUID
}

func (f *fakeImageService) GetImage(
	ctx context.Context,
	imageID uuid.UUID,
	requesterID uuid.UUID,
) (*domain.Image, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.image, nil
}

func (f *fakeImageService) DeleteImage(
	ctx context.Context,
	imageID uuid.UUID,
	requesterID uuid.UUID,
) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, imageID)
	return nil
}

func newImageRouter(svc ImageCatalogService) *chi.Mux {
	h := NewImageHandler(svc)
	r := chi.NewRouter()
	r.Get("/api/images/{id}", h.GetImage)
	r.Delete("/api/images/{id}", h.DeleteImage)
	return r
}

func testImage(ownerID uuid.UUID) *domain.Image {
	return &domain.Image{
		ID:            uuid.New(),
		UserID:        ownerID,
		Prompt:        "a red fox in snow",
		ImageURL:      "/uploads/images/image_x.png",
		ThumbnailURL:  "/uploads/images/thumb_image_x.png",
		Width:         512,
		Height:        512,
		SamplingSteps: 30,
		Visibility:    domain.VisibilityPublic,
		CreatedAt:     time.Now().UTC(),
	}
}

func TestGetImageReturnsCatalogEntry(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()
	image := testImage(ownerID)
	router := newImageRouter(&fakeImageService{image: image})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodGet,
		"/api/images/"+image.ID.String(), nil, uuid.New()))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp ImageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, image.ID.String(), resp.ImageID)
	assert.Equal(t, ownerID.String(), resp.UserID)
	assert.Equal(t, "a red fox in snow", resp.Prompt)
	assert.True(t, resp.IsPublic)
}

func TestGetImageMapsServiceErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not_found", store.ErrImageNotFound, http.StatusNotFound},
		{"access_denied", service.ErrImageAccessDenied, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			router := newImageRouter(&fakeImageService{getErr: tt.err})
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, authedRequest(t, http.MethodGet,
				"/api/images/"+uuid.NewString(), nil, uuid.New()))

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestGetImageRejectsInvalidID(t *testing.T) {
	t.Parallel()

	router := newImageRouter(&fakeImageService{})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodGet,
		"/api/images/not-a-uuid", nil, uuid.New()))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteImage(t *testing.T) {
	t.Parallel()

	imageID := uuid.New()
	svc := &fakeImageService{}
	router := newImageRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodDelete,
		"/api/images/"+imageID.String(), nil, uuid.New()))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []uuid.UUID{imageID}, svc.deleted)
}

func TestDeleteImageForbiddenForNonOwner(t *testing.T) {
	t.Parallel()

	router := newImageRouter(&fakeImageService{deleteErr: service.ErrImageAccessDenied})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, http.MethodDelete,
		"/api/images/"+uuid.NewString(), nil, uuid.New()))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
