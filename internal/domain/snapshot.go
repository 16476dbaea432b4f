package domain

import (
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// SnapshotFormatVersion is bumped whenever the snapshot document shape changes.
const SnapshotFormatVersion = 1

// Row is a single table row with its column order preserved.
type Row = *orderedmap.OrderedMap[string, any]

// TableData maps table names to rows in export order.
type TableData = *orderedmap.OrderedMap[string, []Row]

func NewRow() Row {
	return orderedmap.New[string, any]()
}

func NewTableData() TableData {
	return orderedmap.New[string, []Row]()
}

type SnapshotMetadata struct {
	Version      int       `json:"version"`
	TenantID     string    `json:"tenant_id"`
	CreatedAt    time.Time `json:"created_at"`
	BackupType   RunKind   `json:"backup_type"`
	Tables       []string  `json:"tables"`
	TotalRecords int       `json:"total_records"`
}

// Snapshot is the document persisted for one completed run.
type Snapshot struct {
	Metadata SnapshotMetadata `json:"metadata"`
	Data     TableData        `json:"data"`
}
