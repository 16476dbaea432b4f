package usecase

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/semmidev/tenantvault/internal/domain"
	"github.com/semmidev/tenantvault/internal/infrastructure/metrics"
)

const DefaultWorkers = 4

type TenantError struct {
	TenantID string `json:"tenant_id"`
	Error    string `json:"error"`
}

// Summary is the outcome of one scheduler pass.
type Summary struct {
	Evaluated int           `json:"evaluated"`
	Skipped   int           `json:"skipped"`
	Triggered []string      `json:"triggered"`
	Errors    []TenantError `json:"errors"`
}

func (s *Summary) Failed() bool {
	return len(s.Errors) > 0
}

type DriverOptions struct {
	Workers       int
	StuckAfter    time.Duration
	Notifier      domain.Notifier
	OnlyOnFailure bool
}

// Driver evaluates every enabled tenant once per pass and runs the due ones
// on a bounded worker pool.
type Driver struct {
	settings domain.SettingsRepository
	runs     domain.RunRepository
	backup   *BackupUseCase
	logger   Logger
	opts     DriverOptions
}

func NewDriver(
	settings domain.SettingsRepository,
	runs domain.RunRepository,
	backup *BackupUseCase,
	logger Logger,
	opts DriverOptions,
) *Driver {
	if opts.Workers < 1 {
		opts.Workers = DefaultWorkers
	}
	return &Driver{
		settings: settings,
		runs:     runs,
		backup:   backup,
		logger:   logger,
		opts:     opts,
	}
}

type tenantOutcome struct {
	index    int
	tenantID string
	err      error
}

// RunOnce performs one pass at now. It fails only when the tenant settings
// cannot be loaded or ctx is cancelled; in the latter case the partial
// summary is returned along with ctx.Err().
func (d *Driver) RunOnce(ctx context.Context, now time.Time) (*Summary, error) {
	all, err := d.settings.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load backup settings: %w", err)
	}

	d.reportStuck(ctx, now)

	summary := &Summary{
		Triggered: []string{},
		Errors:    []TenantError{},
	}

	results := make(chan tenantOutcome, len(all))
	g := new(errgroup.Group)
	g.SetLimit(d.opts.Workers)

	for i, s := range all {
		if ctx.Err() != nil {
			break
		}

		summary.Evaluated++
		if !IsDue(s, now) {
			summary.Skipped++
			metrics.TenantsEvaluated.WithLabelValues("skipped").Inc()
			continue
		}

		g.Go(func() error {
			if ctx.Err() != nil {
				results <- tenantOutcome{index: i, tenantID: s.TenantID, err: ctx.Err()}
				return nil
			}
			_, err := d.backup.RunScheduled(ctx, s, now)
			results <- tenantOutcome{index: i, tenantID: s.TenantID, err: err}
			return nil
		})
	}

	_ = g.Wait()
	close(results)

	outcomes := make([]*tenantOutcome, len(all))
	for r := range results {
		outcomes[r.index] = &r
	}

	for _, o := range outcomes {
		if o == nil {
			continue
		}
		if o.err != nil {
			summary.Errors = append(summary.Errors, TenantError{TenantID: o.tenantID, Error: o.err.Error()})
			metrics.TenantsEvaluated.WithLabelValues("failed").Inc()
			continue
		}
		summary.Triggered = append(summary.Triggered, o.tenantID)
		metrics.TenantsEvaluated.WithLabelValues("triggered").Inc()
	}

	d.logger.Infof("Backup pass finished: evaluated=%d skipped=%d triggered=%d failed=%d",
		summary.Evaluated, summary.Skipped, len(summary.Triggered), len(summary.Errors))

	if err := ctx.Err(); err != nil {
		return summary, err
	}

	d.notify(ctx, summary)

	return summary, nil
}

func (d *Driver) reportStuck(ctx context.Context, now time.Time) {
	if d.opts.StuckAfter <= 0 {
		return
	}

	n, err := d.runs.CountStuck(ctx, now.Add(-d.opts.StuckAfter))
	if err != nil {
		d.logger.Warnf("Failed to count stuck backup runs: %v", err)
		return
	}

	metrics.StuckRuns.Set(float64(n))
	if n > 0 {
		d.logger.Warnf("%d backup run(s) in progress for longer than %s", n, d.opts.StuckAfter)
	}
}

func (d *Driver) notify(ctx context.Context, summary *Summary) {
	if d.opts.Notifier == nil {
		return
	}
	if len(summary.Triggered) == 0 && !summary.Failed() {
		return
	}
	if d.opts.OnlyOnFailure && !summary.Failed() {
		return
	}

	if err := d.opts.Notifier.Notify(ctx, FormatSummary(summary)); err != nil {
		d.logger.Warnf("Failed to send backup notification: %v", err)
	}
}
