package domain

import (
	"context"
	"time"
)

type RunKind string

const (
	RunKindScheduled RunKind = "scheduled"
	RunKindManual    RunKind = "manual"
)

type RunStatus string

const (
	RunStatusInProgress RunStatus = "in_progress"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusFailed     RunStatus = "failed"
)

// Terminal reports whether no further transition is allowed from s.
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// BackupRun is one ledger entry. A run moves from in_progress to exactly one of
// completed or failed and is never resumed.
type BackupRun struct {
	ID             string     `json:"id"`
	TenantID       string     `json:"tenant_id"`
	Name           string     `json:"name"`
	Kind           RunKind    `json:"kind"`
	Status         RunStatus  `json:"status"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at"`
	TablesIncluded []string   `json:"tables_included"`
	RecordsCount   int        `json:"records_count"`
	FilePath       *string    `json:"file_path"`
	FileSize       *int64     `json:"file_size"`
	ErrorMessage   *string    `json:"error_message"`
}

// RunCompletion carries what the ledger stores when a run completes.
type RunCompletion struct {
	FilePath       string
	FileSize       int64
	RecordsCount   int
	TablesIncluded []string
	CompletedAt    time.Time
}

type RunRepository interface {
	CreateRun(ctx context.Context, run *BackupRun) error
	CompleteRun(ctx context.Context, runID string, completion RunCompletion) error
	FailRun(ctx context.Context, runID string, message string, failedAt time.Time) error
	GetRun(ctx context.Context, runID string) (*BackupRun, error)
	// ListPrunable returns terminal runs of the given kind started before cutoff.
	ListPrunable(ctx context.Context, tenantID string, kind RunKind, cutoff time.Time) ([]BackupRun, error)
	DeleteRun(ctx context.Context, runID string) error
	CountStuck(ctx context.Context, startedBefore time.Time) (int, error)
}
