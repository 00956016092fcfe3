// Package objectstore copies index files to and from S3-compatible storage
// through minio-go.
package objectstore

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Adithya-Monish-Kumar-K/hunt/pkg/config"
	herrors "github.com/Adithya-Monish-Kumar-K/hunt/pkg/errors"
)

// Store holds index files under Prefix in one bucket.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
	logger *slog.Logger
}

// New builds a client for cfg. It does not contact the server.
func New(cfg config.ObjectStoreConfig) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("creating object store client: %w", err)
	}
	return &Store{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		logger: slog.Default().With("component", "object-store", "bucket", cfg.Bucket),
	}, nil
}

// Key is the object name an index file is stored under: its base name
// below the configured prefix.
func (s *Store) Key(localPath string) string {
	return path.Join(s.prefix, filepath.Base(localPath))
}

// Upload stores the file at localPath under Key(localPath) with meta as
// user metadata, and returns the key.
func (s *Store) Upload(ctx context.Context, localPath string, meta map[string]string) (string, error) {
	key := s.Key(localPath)
	info, err := s.client.FPutObject(ctx, s.bucket, key, localPath, minio.PutObjectOptions{
		ContentType:  "application/octet-stream",
		UserMetadata: meta,
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s to %s/%s: %w", localPath, s.bucket, key, err)
	}
	s.logger.Info("index uploaded", "key", key, "bytes", info.Size, "etag", info.ETag)
	return key, nil
}

// Download fetches Key(localPath) into localPath. A missing object yields
// an error matching errors.ErrNotFound.
func (s *Store) Download(ctx context.Context, localPath string) error {
	key := s.Key(localPath)
	err := s.client.FGetObject(ctx, s.bucket, key, localPath, minio.GetObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: object %s/%s", herrors.ErrNotFound, s.bucket, key)
		}
		return fmt.Errorf("downloading %s/%s: %w", s.bucket, key, err)
	}
	s.logger.Info("index downloaded", "key", key, "path", localPath)
	return nil
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}
