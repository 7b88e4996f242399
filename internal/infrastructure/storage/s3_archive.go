package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/vendorsync/backend/internal/domain/vendor"
	"github.com/vendorsync/backend/internal/infrastructure/config"
)

// FeedArchive stores raw feed payloads for later replay and dispute
// resolution. Archiving is best-effort: a failed upload is logged and never
// fails the sync run.
type FeedArchive interface {
	Archive(ctx context.Context, code vendor.Code, scope vendor.Scope, sourceID string, body []byte) error
}

// S3FeedArchive archives feeds to an S3-compatible bucket
type S3FeedArchive struct {
	client *s3.Client
	bucket string
	log    *zap.Logger
}

// NewS3FeedArchive creates an S3 feed archive from configuration
func NewS3FeedArchive(ctx context.Context, cfg config.ArchiveConfig, log *zap.Logger) (*S3FeedArchive, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = &cfg.Endpoint
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	return &S3FeedArchive{client: client, bucket: cfg.Bucket, log: log}, nil
}

var _ FeedArchive = (*S3FeedArchive)(nil)

// Archive uploads one raw feed payload. The key embeds vendor, scope and
// fetch time so archived feeds sort chronologically per pair.
func (a *S3FeedArchive) Archive(ctx context.Context, code vendor.Code, scope vendor.Scope, sourceID string, body []byte) error {
	key := fmt.Sprintf("feeds/%s/%s/%s-%s.csv",
		code, scope, time.Now().UTC().Format("20060102T150405Z"), sourceID)

	contentType := "text/csv"
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &a.bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: &contentType,
	})
	if err != nil {
		return fmt.Errorf("archive feed %s: %w", key, err)
	}

	a.log.Debug("feed archived",
		zap.String("vendor", code.String()),
		zap.String("scope", scope.String()),
		zap.String("key", key),
		zap.Int("bytes", len(body)))
	return nil
}

// NopFeedArchive discards payloads; used when archiving is disabled
type NopFeedArchive struct{}

// Archive discards the payload
func (NopFeedArchive) Archive(context.Context, vendor.Code, vendor.Scope, string, []byte) error {
	return nil
}
