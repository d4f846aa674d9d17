// Package storage provides durable blob storage on any S3-compatible
// backend (AWS S3, MinIO, Cloudflare R2).
package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/adornalabs/tryon-api/internal/config"
)

// S3BlobStore stores image blobs in a single bucket and resolves presigned
// GET URLs for them. References handed to callers are object keys.
type S3BlobStore struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	urlExpiry time.Duration
	logger    *slog.Logger
}

// NewS3BlobStore creates a blob store from the storage configuration.
// A non-empty Endpoint switches the client to path-style addressing, which
// MinIO and other self-hosted backends require.
func NewS3BlobStore(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (*S3BlobStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	logger.Info("blob storage initialized",
		slog.String("bucket", cfg.Bucket),
		slog.String("region", cfg.Region))

	return &S3BlobStore{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		urlExpiry: time.Duration(cfg.URLExpiryMinutes) * time.Minute,
		logger:    logger.With(slog.String("component", "blob_store")),
	}, nil
}

// Put writes the blob under a fresh key and returns the key as the
// storage reference.
func (s *S3BlobStore) Put(ctx context.Context, data []byte, contentType string) (string, error) {
	key := fmt.Sprintf("images/%s%s", uuid.New(), extensionFor(contentType))

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		s.logger.Error("failed to store blob",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return "", fmt.Errorf("failed to store blob: %w", err)
	}

	s.logger.Debug("stored blob",
		slog.String("key", key),
		slog.Int("size", len(data)),
		slog.String("content_type", contentType))

	return key, nil
}

// URL resolves a presigned, time-limited GET URL for the given reference.
func (s *S3BlobStore) URL(ctx context.Context, ref string) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ref),
	}, s3.WithPresignExpires(s.urlExpiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign blob URL: %w", err)
	}

	return req.URL, nil
}

// extensionFor maps the content types the upload path accepts to file
// extensions, purely for operator-friendly object keys.
func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}
