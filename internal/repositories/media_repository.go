package repositories

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"github.com/CJonesCode/SnapConnect/internal/models"
	"google.golang.org/api/iterator"
)

// MediaRepository defines the interface for blob storage operations. A media
// reference is the object path `category/ownerID/timestamp`; the path shape is
// what makes the account cascade a prefix-delete instead of an
// enumerate-and-hope.
type MediaRepository interface {
	// Upload stores the blob and returns its reference.
	Upload(ctx context.Context, ownerID, category, contentType string, r io.Reader) (string, error)
	// Delete removes the blob. Deleting an absent blob is a success, which is
	// what makes every cleanup path safe to re-run.
	Delete(ctx context.Context, ref string) error
	// Exists reports whether the reference resolves to a blob.
	Exists(ctx context.Context, ref string) (bool, error)
	// DeletePrefix removes every blob under the prefix, continuing past
	// individual failures and reporting them joined so a retry can finish
	// the remainder.
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	// PurgeOwner prefix-deletes ownerID's namespace in every category.
	PurgeOwner(ctx context.Context, ownerID string) error
}

type gcsMediaRepository struct {
	bucket *storage.BucketHandle
}

// NewGCSMediaRepository creates a MediaRepository backed by a Cloud Storage
// bucket.
func NewGCSMediaRepository(bucket *storage.BucketHandle) MediaRepository {
	return &gcsMediaRepository{bucket: bucket}
}

func (r *gcsMediaRepository) Upload(ctx context.Context, ownerID, category, contentType string, src io.Reader) (string, error) {
	ref := fmt.Sprintf("%s/%s/%d", category, ownerID, time.Now().UnixNano())

	w := r.bucket.Object(ref).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, src); err != nil {
		w.Close()
		return "", fmt.Errorf("uploading media %s: %w", ref, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("uploading media %s: %w", ref, err)
	}
	return ref, nil
}

func (r *gcsMediaRepository) Delete(ctx context.Context, ref string) error {
	err := r.bucket.Object(ref).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("deleting media %s: %w", ref, err)
	}
	return nil
}

func (r *gcsMediaRepository) Exists(ctx context.Context, ref string) (bool, error) {
	_, err := r.bucket.Object(ref).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *gcsMediaRepository) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	it := r.bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	deleted := 0
	var failures []error
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			failures = append(failures, fmt.Errorf("listing %s: %w", prefix, err))
			break
		}
		if err := r.Delete(ctx, attrs.Name); err != nil {
			failures = append(failures, err)
			continue
		}
		deleted++
	}
	return deleted, errors.Join(failures...)
}

func (r *gcsMediaRepository) PurgeOwner(ctx context.Context, ownerID string) error {
	var failures []error
	for _, category := range models.MediaCategories() {
		if _, err := r.DeletePrefix(ctx, category+"/"+ownerID+"/"); err != nil {
			failures = append(failures, err)
		}
	}
	return errors.Join(failures...)
}
