package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/semmidev/tenantvault/internal/domain"
	"github.com/semmidev/tenantvault/internal/infrastructure/metrics"
)

type Logger interface {
	Infof(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Warnf(template string, args ...interface{})
}

// BackupUseCase runs the backup of a single tenant:
// begin, export, write, complete and, for scheduled runs, advance the
// schedule and prune.
type BackupUseCase struct {
	settings domain.SettingsRepository
	ledger   *Ledger
	exporter *Exporter
	writer   *SnapshotWriter
	store    domain.BlobStore
	cleanup  *Cleanup
	logger   Logger
	now      func() time.Time
}

func NewBackupUseCase(
	settings domain.SettingsRepository,
	ledger *Ledger,
	exporter *Exporter,
	writer *SnapshotWriter,
	store domain.BlobStore,
	cleanup *Cleanup,
	logger Logger,
) *BackupUseCase {
	return &BackupUseCase{
		settings: settings,
		ledger:   ledger,
		exporter: exporter,
		writer:   writer,
		store:    store,
		cleanup:  cleanup,
		logger:   logger,
		now:      time.Now,
	}
}

// RunScheduled backs up the tenant of s. On success the schedule is advanced
// from now and expired snapshots are pruned; a failed run leaves the
// schedule alone so the tenant is retried on the next pass.
func (uc *BackupUseCase) RunScheduled(ctx context.Context, s domain.BackupSettings, now time.Time) (*domain.BackupRun, error) {
	run, err := uc.execute(ctx, s.TenantID, s.TablesToBackup, domain.RunKindScheduled)
	if err != nil {
		return run, err
	}

	next := ComputeNextRun(s.Frequency, now)
	if err := uc.settings.UpdateSchedule(ctx, s.TenantID, now, next); err != nil {
		uc.logger.Errorf("[%s] Failed to advance schedule: %v", s.TenantID, err)
	}

	uc.cleanup.Prune(ctx, s.TenantID, s.RetentionDays, run.ID)

	return run, nil
}

// RunManual backs up a tenant on demand. The schedule is not touched and
// nothing is pruned. A tenant without settings is backed up with the default
// table list.
func (uc *BackupUseCase) RunManual(ctx context.Context, tenantID string) (*domain.BackupRun, error) {
	var tables []string

	s, err := uc.settings.Get(ctx, tenantID)
	switch {
	case err == nil:
		tables = s.TablesToBackup
	case errors.Is(err, domain.ErrSettingsNotFound):
		uc.logger.Warnf("[%s] No backup settings, using default tables", tenantID)
	default:
		return nil, fmt.Errorf("failed to load backup settings: %w", err)
	}

	return uc.execute(ctx, tenantID, tables, domain.RunKindManual)
}

func (uc *BackupUseCase) execute(ctx context.Context, tenantID string, tables []string, kind domain.RunKind) (*domain.BackupRun, error) {
	start := uc.now()
	tables = uc.exporter.Tables(tables)
	uc.logger.Infof("[%s] Starting %s backup of %d table(s)...", tenantID, kind, len(tables))

	run, err := uc.ledger.Begin(ctx, tenantID, kind, tables)
	if err != nil {
		return nil, err
	}

	export, err := uc.exporter.Export(ctx, tenantID, tables)
	if err != nil {
		return run, uc.fail(ctx, run, start, fmt.Errorf("export: %w", err))
	}

	snapshot := &domain.Snapshot{
		Metadata: domain.SnapshotMetadata{
			Version:      domain.SnapshotFormatVersion,
			TenantID:     tenantID,
			CreatedAt:    uc.now().UTC(),
			BackupType:   kind,
			Tables:       export.Tables,
			TotalRecords: export.TotalRecords,
		},
		Data: export.Data,
	}

	written, err := uc.writer.Write(ctx, tenantID, run.ID, snapshot)
	if err != nil {
		return run, uc.fail(ctx, run, start, fmt.Errorf("write: %w", err))
	}

	err = uc.ledger.Complete(ctx, run.ID, CompleteParams{
		Path:    written.Path,
		Size:    written.Size,
		Records: export.TotalRecords,
		Tables:  export.Tables,
	})
	if err != nil {
		// a completed record must never point at a missing object, and no
		// object may outlive its record
		if delErr := uc.store.Delete(context.WithoutCancel(ctx), written.Path); delErr != nil {
			uc.logger.Errorf("[%s] Failed to remove orphaned snapshot %s: %v", tenantID, written.Path, delErr)
		}
		return run, uc.fail(ctx, run, start, err)
	}

	completedAt := uc.now().UTC()
	run.Status = domain.RunStatusCompleted
	run.CompletedAt = &completedAt
	run.FilePath = &written.Path
	run.FileSize = &written.Size
	run.RecordsCount = export.TotalRecords
	run.TablesIncluded = export.Tables

	metrics.BackupRunsTotal.WithLabelValues(string(kind), string(domain.RunStatusCompleted)).Inc()
	metrics.BackupDuration.WithLabelValues(string(kind)).Observe(uc.now().Sub(start).Seconds())

	uc.logger.Infof("[%s] Backup completed in %s: %d records in %s",
		tenantID, uc.now().Sub(start).Round(time.Millisecond), export.TotalRecords, written.Path)

	return run, nil
}

// fail marks run failed with cause. A run interrupted by cancellation stays
// in progress.
func (uc *BackupUseCase) fail(ctx context.Context, run *domain.BackupRun, start time.Time, cause error) error {
	if ctx.Err() != nil {
		uc.logger.Warnf("[%s] Backup %s interrupted: %v", run.TenantID, run.ID, cause)
		return cause
	}

	uc.logger.Errorf("[%s] Backup %s failed: %v", run.TenantID, run.ID, cause)

	message := cause.Error()
	if err := uc.ledger.Fail(ctx, run.ID, message); err != nil {
		uc.logger.Errorf("[%s] %v", run.TenantID, err)
	} else {
		failedAt := uc.now().UTC()
		run.Status = domain.RunStatusFailed
		run.CompletedAt = &failedAt
		run.ErrorMessage = &message
	}

	metrics.BackupRunsTotal.WithLabelValues(string(run.Kind), string(domain.RunStatusFailed)).Inc()
	metrics.BackupDuration.WithLabelValues(string(run.Kind)).Observe(uc.now().Sub(start).Seconds())

	return cause
}
