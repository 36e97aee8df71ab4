//go:build gcp

package ruleloader

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// GCSLoader fetches a rule file from a GCS object. Grounded on
// core/pkg/artifacts/gcs_store.go's GCSStore, which the teacher also
// gates behind the "gcp" build tag to keep the default build free of
// Google Cloud's client dependency tree.
type GCSLoader struct {
	client *storage.Client
	bucket string
	object string
}

// GCSLoaderConfig configures a GCSLoader.
type GCSLoaderConfig struct {
	Bucket string
	Object string
}

// NewGCSLoader builds a loader for a single rule-file object, using
// Application Default Credentials.
func NewGCSLoader(ctx context.Context, cfg GCSLoaderConfig) (*GCSLoader, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("ruleloader: creating GCS client: %w", err)
	}
	return &GCSLoader{client: client, bucket: cfg.Bucket, object: cfg.Object}, nil
}

func (l *GCSLoader) Load(ctx context.Context) ([]byte, error) {
	r, err := l.client.Bucket(l.bucket).Object(l.object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("ruleloader: gcs get %s/%s: %w", l.bucket, l.object, err)
	}
	defer func() { _ = r.Close() }()
	return io.ReadAll(r)
}
