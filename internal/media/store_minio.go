// Copyright (c) 2026 ViewTube. All rights reserved.

package media

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/BShivaGanesh/viewtube/internal/platform/apperr"
	"github.com/BShivaGanesh/viewtube/pkg/uuidv7"
)

// MinioStorage implements [Storage] on top of an S3-compatible object store.
type MinioStorage struct {
	client        *minio.Client
	bucket        string
	publicBaseURL string
}

// Compile-time check: MinioStorage satisfies the Storage contract.
var _ Storage = (*MinioStorage)(nil)

// MinioConfig carries the connection settings for [NewMinioStorage].
type MinioConfig struct {
	Endpoint      string
	Bucket        string
	AccessKey     string
	SecretKey     string
	UseSSL        bool
	PublicBaseURL string
}

// NewMinioStorage connects to the object store and fail-fast verifies that
// the target bucket exists.
func NewMinioStorage(ctx context.Context, cfg MinioConfig) (*MinioStorage, error) {
	endpoint := cfg.Endpoint
	secure := cfg.UseSSL

	// Accept full URLs in config; the client wants a bare host:port.
	if u, err := url.Parse(endpoint); err == nil && u.Scheme != "" {
		endpoint = u.Host
		secure = u.Scheme == "https"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("media_minio_client_failed: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("media_minio_bucket_check_failed: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("media_minio_bucket_missing: bucket %q does not exist", cfg.Bucket)
	}

	return &MinioStorage{
		client:        client,
		bucket:        cfg.Bucket,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}, nil
}

// Put stores the upload under "<prefix>/<uuidv7><ext>" and returns the
// public URL. Keys are generated server-side; the client filename only
// contributes its extension.
func (storage *MinioStorage) Put(ctx context.Context, upload Upload) (string, error) {
	key := upload.Prefix + "/" + uuidv7.New() + strings.ToLower(path.Ext(upload.Filename))

	_, err := storage.client.PutObject(ctx, storage.bucket, key, upload.Body, upload.Size, minio.PutObjectOptions{
		ContentType: upload.ContentType,
	})
	if err != nil {
		return "", apperr.Internal(fmt.Errorf("media_minio_put_failed: %w", err))
	}

	return storage.publicBaseURL + "/" + storage.bucket + "/" + key, nil
}

// Ping verifies the object store answers; used by the readiness probe.
func (storage *MinioStorage) Ping(ctx context.Context) error {
	if _, err := storage.client.BucketExists(ctx, storage.bucket); err != nil {
		return fmt.Errorf("media_minio_ping_failed: %w", err)
	}
	return nil
}
