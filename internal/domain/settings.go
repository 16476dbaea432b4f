package domain

import (
	"context"
	"time"
)

type Frequency string

const (
	FrequencyHourly Frequency = "hourly"
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
)

// BackupSettings is the per-tenant backup configuration. Only the scheduler
// writes LastRunAt and NextRunAt.
type BackupSettings struct {
	TenantID       string     `json:"tenant_id"`
	Enabled        bool       `json:"enabled"`
	Frequency      Frequency  `json:"frequency"`
	TablesToBackup []string   `json:"tables_to_backup"`
	RetentionDays  int        `json:"retention_days"`
	LastRunAt      *time.Time `json:"last_run_at"`
	NextRunAt      *time.Time `json:"next_run_at"`
}

type SettingsRepository interface {
	ListEnabled(ctx context.Context) ([]BackupSettings, error)
	Get(ctx context.Context, tenantID string) (*BackupSettings, error)
	UpdateSchedule(ctx context.Context, tenantID string, lastRunAt, nextRunAt time.Time) error
}
