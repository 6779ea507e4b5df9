package services

import (
	"context"
	"fmt"
	"io"

	"github.com/CJonesCode/SnapConnect/internal/apperror"
	"github.com/CJonesCode/SnapConnect/internal/models"
	"github.com/CJonesCode/SnapConnect/internal/repositories"
)

// MediaService is the upload boundary. It hands out opaque media references;
// everything downstream (content creation, cleanup) treats a reference as a
// token to resolve or unbind, never as a path to construct.
type MediaService struct {
	media repositories.MediaRepository
}

// NewMediaService creates a MediaService.
func NewMediaService(media repositories.MediaRepository) *MediaService {
	return &MediaService{media: media}
}

// Bind uploads the asset into ownerID's namespace under category and returns
// the reference a content item stores as its media_ref.
func (s *MediaService) Bind(ctx context.Context, ownerID, category, contentType string, src io.Reader) (string, error) {
	if !models.ValidMediaCategory(category) {
		return "", apperror.InvalidOperation(fmt.Sprintf("unknown media category %q", category))
	}
	return s.media.Upload(ctx, ownerID, category, contentType, src)
}

// Unbind deletes the referenced blob. An already-absent blob is a success.
func (s *MediaService) Unbind(ctx context.Context, ref string) error {
	return s.media.Delete(ctx, ref)
}

// Resolve verifies the reference points at a live blob.
func (s *MediaService) Resolve(ctx context.Context, ref string) error {
	ok, err := s.media.Exists(ctx, ref)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.NotFound("media", ref)
	}
	return nil
}

// PurgeOwner removes every blob in ownerID's namespace across all categories.
func (s *MediaService) PurgeOwner(ctx context.Context, ownerID string) error {
	return s.media.PurgeOwner(ctx, ownerID)
}
