package storage

import (
	"context"
	"errors"
	"fmt"
	"path"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/semmidev/tenantvault/internal/config"
)

type GCSStorage struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCS uses the credentials file when given and application default
// credentials otherwise.
func NewGCS(ctx context.Context, cfg *config.StorageConfig) (*GCSStorage, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSStorage{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

func (g *GCSStorage) Put(ctx context.Context, objectPath string, data []byte, contentType string) error {
	w := g.client.Bucket(g.bucket).Object(g.key(objectPath)).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("failed to write GCS object: %w", err)
	}
	// The object only becomes visible once Close succeeds.
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to upload to GCS: %w", err)
	}

	return nil
}

func (g *GCSStorage) Delete(ctx context.Context, objectPath string) error {
	err := g.client.Bucket(g.bucket).Object(g.key(objectPath)).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete from GCS: %w", err)
	}
	return nil
}

func (g *GCSStorage) Close() error {
	return g.client.Close()
}

func (g *GCSStorage) key(objectPath string) string {
	return path.Join(g.prefix, objectPath)
}
