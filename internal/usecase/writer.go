package usecase

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"

	"github.com/semmidev/tenantvault/internal/domain"
	"github.com/semmidev/tenantvault/internal/infrastructure/metrics"
)

const (
	contentTypeJSON = "application/json"
	contentTypeGzip = "application/gzip"
)

type WriteResult struct {
	Path string
	Size int64
}

// SnapshotWriter serializes snapshots and stores them as one object per run.
// A nil compressor stores plain JSON.
type SnapshotWriter struct {
	store      domain.BlobStore
	compressor domain.Compressor
	logger     Logger
}

func NewSnapshotWriter(store domain.BlobStore, compressor domain.Compressor, logger Logger) *SnapshotWriter {
	return &SnapshotWriter{
		store:      store,
		compressor: compressor,
		logger:     logger,
	}
}

func (w *SnapshotWriter) Write(ctx context.Context, tenantID, runID string, snapshot *domain.Snapshot) (*WriteResult, error) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	path := SnapshotPath(tenantID, runID)
	contentType := contentTypeJSON

	if w.compressor != nil {
		raw := len(data)
		data, err = w.compressor.Compress(data)
		if err != nil {
			return nil, fmt.Errorf("failed to compress snapshot: %w", err)
		}
		path += w.compressor.Extension()
		contentType = contentTypeGzip
		w.logger.Infof("[%s] Compressed snapshot %s -> %s",
			tenantID, humanize.Bytes(uint64(raw)), humanize.Bytes(uint64(len(data))))
	}

	if err := w.store.Put(ctx, path, data, contentType); err != nil {
		return nil, fmt.Errorf("failed to store snapshot %s: %w", path, err)
	}

	size := int64(len(data))
	metrics.SnapshotSizeBytes.Observe(float64(size))
	metrics.SnapshotRecords.Observe(float64(snapshot.Metadata.TotalRecords))

	w.logger.Infof("[%s] Snapshot stored at %s (%s)", tenantID, path, humanize.Bytes(uint64(size)))

	return &WriteResult{Path: path, Size: size}, nil
}

// SnapshotPath is the object path of an uncompressed snapshot.
func SnapshotPath(tenantID, runID string) string {
	return fmt.Sprintf("%s/%s.json", tenantID, runID)
}
