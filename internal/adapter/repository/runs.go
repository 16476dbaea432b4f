package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/semmidev/tenantvault/internal/domain"
)

const runColumns = `id, tenant_id, name, kind, status, started_at, completed_at, tables_included,
	records_count, file_path, file_size, error_message`

type RunRepository struct {
	db DB
}

func NewRunRepository(db DB) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) CreateRun(ctx context.Context, run *domain.BackupRun) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO backup_runs (`+runColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		run.ID, run.TenantID, run.Name, string(run.Kind), string(run.Status), run.StartedAt,
		run.CompletedAt, run.TablesIncluded, run.RecordsCount, run.FilePath, run.FileSize,
		run.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("insert backup run: %w", err)
	}
	return nil
}

// CompleteRun and FailRun only touch runs that are still in progress, which
// keeps the status transition one-directional.
func (r *RunRepository) CompleteRun(ctx context.Context, runID string, c domain.RunCompletion) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE backup_runs
		 SET status = $2, completed_at = $3, file_path = $4, file_size = $5,
		     records_count = $6, tables_included = $7
		 WHERE id = $1 AND status = $8`,
		runID, string(domain.RunStatusCompleted), c.CompletedAt, c.FilePath, c.FileSize,
		c.RecordsCount, c.TablesIncluded, string(domain.RunStatusInProgress),
	)
	if err != nil {
		return fmt.Errorf("complete backup run %s: %w", runID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("complete backup run %s: %w", runID, domain.ErrRunNotInProgress)
	}
	return nil
}

func (r *RunRepository) FailRun(ctx context.Context, runID string, message string, failedAt time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE backup_runs
		 SET status = $2, completed_at = $3, error_message = $4
		 WHERE id = $1 AND status = $5`,
		runID, string(domain.RunStatusFailed), failedAt, message, string(domain.RunStatusInProgress),
	)
	if err != nil {
		return fmt.Errorf("fail backup run %s: %w", runID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("fail backup run %s: %w", runID, domain.ErrRunNotInProgress)
	}
	return nil
}

func (r *RunRepository) GetRun(ctx context.Context, runID string) (*domain.BackupRun, error) {
	run, err := scanRun(r.db.QueryRow(ctx,
		`SELECT `+runColumns+` FROM backup_runs WHERE id = $1`, runID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get backup run %s: %w", runID, domain.ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get backup run %s: %w", runID, err)
	}
	return run, nil
}

func (r *RunRepository) ListPrunable(ctx context.Context, tenantID string, kind domain.RunKind, cutoff time.Time) ([]domain.BackupRun, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+runColumns+` FROM backup_runs
		 WHERE tenant_id = $1 AND kind = $2 AND status IN ($3, $4) AND started_at < $5
		 ORDER BY started_at`,
		tenantID, string(kind), string(domain.RunStatusCompleted), string(domain.RunStatusFailed), cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("list prunable runs for tenant %s: %w", tenantID, err)
	}
	defer rows.Close()

	var runs []domain.BackupRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan backup run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backup runs: %w", err)
	}
	return runs, nil
}

func (r *RunRepository) DeleteRun(ctx context.Context, runID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM backup_runs WHERE id = $1`, runID); err != nil {
		return fmt.Errorf("delete backup run %s: %w", runID, err)
	}
	return nil
}

func (r *RunRepository) CountStuck(ctx context.Context, startedBefore time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM backup_runs WHERE status = $1 AND started_at < $2`,
		string(domain.RunStatusInProgress), startedBefore,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count stuck backup runs: %w", err)
	}
	return n, nil
}

func scanRun(row pgx.Row) (*domain.BackupRun, error) {
	var (
		run          domain.BackupRun
		kind, status string
	)
	err := row.Scan(&run.ID, &run.TenantID, &run.Name, &kind, &status, &run.StartedAt,
		&run.CompletedAt, &run.TablesIncluded, &run.RecordsCount, &run.FilePath, &run.FileSize,
		&run.ErrorMessage)
	if err != nil {
		return nil, err
	}
	run.Kind = domain.RunKind(kind)
	run.Status = domain.RunStatus(status)
	return &run, nil
}
