package ruleloader

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Loader fetches a rule file from an S3 object, for catalogs
// published to object storage instead of shipped alongside the
// binary. Grounded on core/pkg/artifacts/s3_store.go's S3Store,
// trimmed to the read-only Get path since a rule-file consumer never
// writes its own catalog.
type S3Loader struct {
	client *s3.Client
	bucket string
	key    string
}

// S3LoaderConfig configures an S3Loader.
type S3LoaderConfig struct {
	Bucket   string
	Key      string
	Region   string
	Endpoint string // optional custom endpoint (MinIO, LocalStack, ...)
}

// NewS3Loader builds a loader for a single rule-file object.
func NewS3Loader(ctx context.Context, cfg S3LoaderConfig) (*S3Loader, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("ruleloader: loading AWS config: %w", err)
	}

	clientOpts := func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}

	return &S3Loader{
		client: s3.NewFromConfig(awsCfg, clientOpts),
		bucket: cfg.Bucket,
		key:    cfg.Key,
	}, nil
}

func (l *S3Loader) Load(ctx context.Context) ([]byte, error) {
	result, err := l.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.bucket),
		Key:    aws.String(l.key),
	})
	if err != nil {
		return nil, fmt.Errorf("ruleloader: s3 get %s/%s: %w", l.bucket, l.key, err)
	}
	defer func() { _ = result.Body.Close() }()
	return io.ReadAll(result.Body)
}
