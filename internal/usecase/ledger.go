package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/semmidev/tenantvault/internal/domain"
)

type CompleteParams struct {
	Path    string
	Size    int64
	Records int
	Tables  []string
}

// Ledger records the lifecycle of backup runs. Each run gets exactly one
// terminal call; the repository rejects a second one.
type Ledger struct {
	runs  domain.RunRepository
	now   func() time.Time
	newID func() string
}

func NewLedger(runs domain.RunRepository) *Ledger {
	return &Ledger{
		runs:  runs,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

func (l *Ledger) Begin(ctx context.Context, tenantID string, kind domain.RunKind, tables []string) (*domain.BackupRun, error) {
	started := l.now().UTC()
	run := &domain.BackupRun{
		ID:             l.newID(),
		TenantID:       tenantID,
		Name:           runName(kind, started),
		Kind:           kind,
		Status:         domain.RunStatusInProgress,
		StartedAt:      started,
		TablesIncluded: append([]string{}, tables...),
	}

	if err := l.runs.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to record backup start: %w", err)
	}
	return run, nil
}

func (l *Ledger) Complete(ctx context.Context, runID string, p CompleteParams) error {
	err := l.runs.CompleteRun(ctx, runID, domain.RunCompletion{
		FilePath:       p.Path,
		FileSize:       p.Size,
		RecordsCount:   p.Records,
		TablesIncluded: p.Tables,
		CompletedAt:    l.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to record backup completion: %w", err)
	}
	return nil
}

func (l *Ledger) Fail(ctx context.Context, runID string, message string) error {
	if err := l.runs.FailRun(ctx, runID, message, l.now().UTC()); err != nil {
		return fmt.Errorf("failed to record backup failure: %w", err)
	}
	return nil
}

func runName(kind domain.RunKind, at time.Time) string {
	k := string(kind)
	if k != "" {
		k = strings.ToUpper(k[:1]) + k[1:]
	}
	return fmt.Sprintf("%s backup %s UTC", k, at.UTC().Format("2006-01-02 15:04:05"))
}
