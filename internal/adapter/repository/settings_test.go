package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/semmidev/tenantvault/internal/domain"
)

func scanSettingsFunc(tenantID string, frequency domain.Frequency, lastRun *time.Time) func(dest ...any) error {
	return func(dest ...any) error {
		*(dest[0].(*string)) = tenantID
		*(dest[1].(*bool)) = true
		*(dest[2].(*string)) = string(frequency)
		*(dest[3].(*[]string)) = []string{"messages", "tasks"}
		*(dest[4].(*int)) = 30
		*(dest[5].(**time.Time)) = lastRun
		return nil
	}
}

func TestSettingsRepository_ListEnabled(t *testing.T) {
	db := &mockDB{}
	repo := NewSettingsRepository(db)
	ctx := context.Background()
	last := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	rows := newMockRows(
		scanSettingsFunc("tenant-a", domain.FrequencyDaily, &last),
		scanSettingsFunc("tenant-b", domain.FrequencyHourly, nil),
	)
	db.On("Query", ctx, mock.AnythingOfType("string"), []any(nil)).Return(rows, nil)

	all, err := repo.ListEnabled(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "tenant-a", all[0].TenantID)
	assert.Equal(t, domain.FrequencyDaily, all[0].Frequency)
	assert.Equal(t, []string{"messages", "tasks"}, all[0].TablesToBackup)
	require.NotNil(t, all[0].LastRunAt)
	assert.Equal(t, last, *all[0].LastRunAt)
	assert.Nil(t, all[1].LastRunAt)
	assert.Equal(t, domain.FrequencyHourly, all[1].Frequency)
}

func TestSettingsRepository_ListEnabled_Error(t *testing.T) {
	db := &mockDB{}
	repo := NewSettingsRepository(db)
	ctx := context.Background()

	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(nil, errors.New("db down"))

	_, err := repo.ListEnabled(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list enabled backup settings")
}

func TestSettingsRepository_Get(t *testing.T) {
	db := &mockDB{}
	repo := NewSettingsRepository(db)
	ctx := context.Background()

	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"tenant-a"}).
		Return(&mockRow{scanFunc: scanSettingsFunc("tenant-a", domain.FrequencyWeekly, nil)})

	s, err := repo.Get(ctx, "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, domain.FrequencyWeekly, s.Frequency)
	assert.Equal(t, 30, s.RetentionDays)
}

func TestSettingsRepository_Get_NotFound(t *testing.T) {
	db := &mockDB{}
	repo := NewSettingsRepository(db)
	ctx := context.Background()

	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanFunc: func(dest ...any) error { return pgx.ErrNoRows }})

	_, err := repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrSettingsNotFound)
}

func TestSettingsRepository_UpdateSchedule(t *testing.T) {
	db := &mockDB{}
	repo := NewSettingsRepository(db)
	ctx := context.Background()
	last := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)
	next := last.Add(24 * time.Hour)

	db.On("Exec", ctx, mock.AnythingOfType("string"), []any{"tenant-a", last, next}).
		Return(pgconn.NewCommandTag("UPDATE 1"), nil)

	require.NoError(t, repo.UpdateSchedule(ctx, "tenant-a", last, next))
	db.AssertExpectations(t)
}

func TestSettingsRepository_UpdateSchedule_Missing(t *testing.T) {
	db := &mockDB{}
	repo := NewSettingsRepository(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.NewCommandTag("UPDATE 0"), nil)

	err := repo.UpdateSchedule(ctx, "tenant-x", time.Now(), time.Now())
	assert.ErrorIs(t, err, domain.ErrSettingsNotFound)
}
