package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/semmidev/tenantvault/internal/config"
)

// GDriveStorage keeps every snapshot as a flat file in one folder. Drive has
// no directories in names, so object paths are stored with "/" replaced.
type GDriveStorage struct {
	service  *drive.Service
	folderID string
}

func NewGDrive(ctx context.Context, cfg *config.StorageConfig) (*GDriveStorage, error) {
	service, err := drive.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return &GDriveStorage{
		service:  service,
		folderID: cfg.FolderID,
	}, nil
}

func (g *GDriveStorage) Put(ctx context.Context, objectPath string, data []byte, contentType string) error {
	name := driveName(objectPath)

	existing, err := g.find(ctx, name)
	if err != nil {
		return err
	}

	if len(existing) > 0 {
		_, err = g.service.Files.Update(existing[0].Id, &drive.File{MimeType: contentType}).
			Media(bytes.NewReader(data)).
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("failed to replace gdrive file: %w", err)
		}
		return nil
	}

	fileMetadata := &drive.File{
		Name:     name,
		MimeType: contentType,
		Parents:  []string{g.folderID},
	}

	_, err = g.service.Files.Create(fileMetadata).
		Media(bytes.NewReader(data)).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to upload to gdrive: %w", err)
	}

	return nil
}

func (g *GDriveStorage) Delete(ctx context.Context, objectPath string) error {
	files, err := g.find(ctx, driveName(objectPath))
	if err != nil {
		return err
	}

	for _, f := range files {
		if err := g.service.Files.Delete(f.Id).Context(ctx).Do(); err != nil {
			return fmt.Errorf("failed to delete file: %w", err)
		}
	}

	return nil
}

func (g *GDriveStorage) find(ctx context.Context, name string) ([]*drive.File, error) {
	query := fmt.Sprintf("'%s' in parents and name='%s' and trashed=false",
		g.folderID, strings.ReplaceAll(name, "'", `\'`))

	fileList, err := g.service.Files.List().
		Q(query).
		Fields("files(id, name)").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to find file: %w", err)
	}

	return fileList.Files, nil
}

func driveName(objectPath string) string {
	return strings.ReplaceAll(strings.Trim(objectPath, "/"), "/", "__")
}
