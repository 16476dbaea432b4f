package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
)

// Scheduler fires jobs on six-field cron specs (with seconds). A job that is
// still running when its next tick arrives is skipped for that tick.
type Scheduler struct {
	cron   *cron.Cron
	logger cron.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func New(logger cron.Logger) *Scheduler {
	if logger == nil {
		logger = cron.DiscardLogger
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// AddJob registers job under spec. Jobs receive a context that is cancelled by
// Stop, so an in-flight pass can wind down during shutdown.
func (s *Scheduler) AddJob(name, spec string, job func(context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		if err := job(s.ctx); err != nil {
			s.logger.Error(err, "job failed", "job", name)
		}
	})
	return err
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	s.cancel()
	ctx := s.cron.Stop()
	<-ctx.Done()
}
