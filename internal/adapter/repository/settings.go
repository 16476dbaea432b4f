package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/semmidev/tenantvault/internal/domain"
)

const settingsColumns = `tenant_id, enabled, frequency, tables_to_backup, retention_days, last_run_at, next_run_at`

type SettingsRepository struct {
	db DB
}

func NewSettingsRepository(db DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) ListEnabled(ctx context.Context) ([]domain.BackupSettings, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+settingsColumns+` FROM backup_settings WHERE enabled ORDER BY tenant_id`)
	if err != nil {
		return nil, fmt.Errorf("list enabled backup settings: %w", err)
	}
	defer rows.Close()

	var all []domain.BackupSettings
	for rows.Next() {
		s, err := scanSettings(rows)
		if err != nil {
			return nil, fmt.Errorf("scan backup settings: %w", err)
		}
		all = append(all, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backup settings: %w", err)
	}
	return all, nil
}

func (r *SettingsRepository) Get(ctx context.Context, tenantID string) (*domain.BackupSettings, error) {
	s, err := scanSettings(r.db.QueryRow(ctx,
		`SELECT `+settingsColumns+` FROM backup_settings WHERE tenant_id = $1`, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get backup settings %s: %w", tenantID, domain.ErrSettingsNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get backup settings %s: %w", tenantID, err)
	}
	return s, nil
}

func (r *SettingsRepository) UpdateSchedule(ctx context.Context, tenantID string, lastRunAt, nextRunAt time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE backup_settings SET last_run_at = $2, next_run_at = $3, updated_at = now()
		 WHERE tenant_id = $1`,
		tenantID, lastRunAt, nextRunAt,
	)
	if err != nil {
		return fmt.Errorf("update backup schedule for %s: %w", tenantID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update backup schedule for %s: %w", tenantID, domain.ErrSettingsNotFound)
	}
	return nil
}

func scanSettings(row pgx.Row) (*domain.BackupSettings, error) {
	var (
		s         domain.BackupSettings
		frequency string
	)
	err := row.Scan(&s.TenantID, &s.Enabled, &frequency, &s.TablesToBackup, &s.RetentionDays,
		&s.LastRunAt, &s.NextRunAt)
	if err != nil {
		return nil, err
	}
	s.Frequency = domain.Frequency(frequency)
	return &s, nil
}
