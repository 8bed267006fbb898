package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
)

// Uploader persists a rendered export and returns a URI the caller can hand
// out. Implementations must be safe for concurrent use.
type Uploader interface {
	Upload(ctx context.Context, objectName string, data []byte) (string, error)
}

// GCSUploader uploads exports to a Google Cloud Storage bucket. It assumes
// Application Default Credentials are configured.
type GCSUploader struct {
	client *storage.Client
	bucket string
}

// NewGCSUploader creates an uploader over the given bucket.
func NewGCSUploader(ctx context.Context, bucket string) (*GCSUploader, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCSUploader: creating storage client: %w", err)
	}
	return &GCSUploader{client: client, bucket: bucket}, nil
}

// Upload writes the data under the object name and returns its gs:// URI.
func (u *GCSUploader) Upload(ctx context.Context, objectName string, data []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := u.client.Bucket(u.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = "text/csv"

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("Upload: writing object %s: %w", objectName, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("Upload: finalizing object %s: %w", objectName, err)
	}

	return fmt.Sprintf("gs://%s/%s", u.bucket, objectName), nil
}

// Close releases the underlying storage client.
func (u *GCSUploader) Close() error {
	return u.client.Close()
}
