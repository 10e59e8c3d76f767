package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"

	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"github.com/google/uuid"

	"vehirent-backend/internal/logger"
)

// FirebaseStorage writes objects to the project's Cloud Storage bucket.
type FirebaseStorage struct {
	bucket *gcs.BucketHandle
}

func NewFirebaseStorage(ctx context.Context, app *firebase.App, bucketName string) (*FirebaseStorage, error) {
	client, err := app.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase storage: %w", err)
	}
	var bucket *gcs.BucketHandle
	if bucketName == "" {
		bucket, err = client.DefaultBucket()
	} else {
		bucket, err = client.Bucket(bucketName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open bucket: %w", err)
	}
	return &FirebaseStorage{bucket: bucket}, nil
}

// Upload writes the object with a download token so the public URL works with the
// Firebase client SDKs.
func (f *FirebaseStorage) Upload(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	logger.ExternalServiceCall("firebase-storage", "upload", "key", key)
	token := uuid.NewString()
	w := f.bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = map[string]string{"firebaseStorageDownloadTokens": token}

	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		logger.ExternalServiceResult("firebase-storage", "upload", err, "key", key)
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		logger.ExternalServiceResult("firebase-storage", "upload", err, "key", key)
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	logger.ExternalServiceResult("firebase-storage", "upload", nil, "key", key)

	bucket := w.Attrs().Bucket
	return fmt.Sprintf("https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s",
		bucket, url.PathEscape(key), token), nil
}

func (f *FirebaseStorage) Delete(ctx context.Context, key string) error {
	err := f.bucket.Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
