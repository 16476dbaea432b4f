package usecase

import (
	"context"
	"slices"
	"time"

	"github.com/semmidev/tenantvault/internal/domain"
	"github.com/semmidev/tenantvault/internal/infrastructure/metrics"
)

// Cleanup removes scheduled snapshots that fell out of a tenant's retention
// window. Manual and in-progress runs are never touched.
type Cleanup struct {
	runs   domain.RunRepository
	store  domain.BlobStore
	logger Logger
	now    func() time.Time
}

func NewCleanup(runs domain.RunRepository, store domain.BlobStore, logger Logger) *Cleanup {
	return &Cleanup{
		runs:   runs,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Prune deletes the object and then the ledger record of every expired run
// except those in keep, and returns the number of ledger records removed.
// Errors are logged only.
func (uc *Cleanup) Prune(ctx context.Context, tenantID string, retentionDays int, keep ...string) int {
	cutoff := uc.now().AddDate(0, 0, -retentionDays)

	candidates, err := uc.runs.ListPrunable(ctx, tenantID, domain.RunKindScheduled, cutoff)
	if err != nil {
		uc.logger.Errorf("[%s] Failed to list expired backups: %v", tenantID, err)
		return 0
	}

	deleted := 0
	for _, run := range candidates {
		if ctx.Err() != nil {
			break
		}
		if slices.Contains(keep, run.ID) {
			continue
		}

		if run.FilePath != nil && *run.FilePath != "" {
			if err := uc.store.Delete(ctx, *run.FilePath); err != nil {
				// keep the record so the object is retried on the next pass
				uc.logger.Warnf("[%s] Failed to delete snapshot %s: %v", tenantID, *run.FilePath, err)
				continue
			}
		}

		if err := uc.runs.DeleteRun(ctx, run.ID); err != nil {
			uc.logger.Errorf("[%s] Failed to delete backup record %s: %v", tenantID, run.ID, err)
			continue
		}
		deleted++
	}

	if deleted > 0 {
		metrics.PrunedSnapshotsTotal.Add(float64(deleted))
		uc.logger.Infof("[%s] Pruned %d backup(s) older than %d days", tenantID, deleted, retentionDays)
	}

	return deleted
}
