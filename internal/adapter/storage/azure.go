package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"

	"github.com/Azure/azure-storage-blob-go/azblob"

	"github.com/semmidev/tenantvault/internal/config"
)

type AzureStorage struct {
	containerURL azblob.ContainerURL
	prefix       string
}

func NewAzure(cfg *config.StorageConfig) (*AzureStorage, error) {
	credential, err := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credentials: %w", err)
	}

	pipeline := azblob.NewPipeline(credential, azblob.PipelineOptions{})

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.blob.core.windows.net", cfg.AccountName)
	}
	serviceURL, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Azure service URL: %w", err)
	}

	return &AzureStorage{
		containerURL: azblob.NewServiceURL(*serviceURL, pipeline).NewContainerURL(cfg.Container),
		prefix:       cfg.Prefix,
	}, nil
}

func (a *AzureStorage) Put(ctx context.Context, objectPath string, data []byte, contentType string) error {
	blobURL := a.containerURL.NewBlockBlobURL(a.key(objectPath))

	_, err := azblob.UploadBufferToBlockBlob(ctx, data, blobURL, azblob.UploadToBlockBlobOptions{
		BlockSize:   4 * 1024 * 1024,
		Parallelism: 4,
		BlobHTTPHeaders: azblob.BlobHTTPHeaders{
			ContentType: contentType,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upload to Azure: %w", err)
	}

	return nil
}

func (a *AzureStorage) Delete(ctx context.Context, objectPath string) error {
	blobURL := a.containerURL.NewBlockBlobURL(a.key(objectPath))

	_, err := blobURL.Delete(ctx, azblob.DeleteSnapshotsOptionInclude, azblob.BlobAccessConditions{})
	if err != nil {
		var storageErr azblob.StorageError
		if errors.As(err, &storageErr) && storageErr.ServiceCode() == azblob.ServiceCodeBlobNotFound {
			return nil
		}
		return fmt.Errorf("failed to delete from Azure: %w", err)
	}

	return nil
}

func (a *AzureStorage) key(objectPath string) string {
	return path.Join(a.prefix, objectPath)
}
