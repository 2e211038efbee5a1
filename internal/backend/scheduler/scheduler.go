package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/healchain/healchain-backend/pkg/logging"
)

// Scheduler drives the reconciliation sweep on a fixed interval.
type Scheduler struct {
	sweep    *Sweep
	interval time.Duration
	cron     *cron.Cron
	logger   logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

func NewScheduler(sweep *Sweep, interval time.Duration, logger logging.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		sweep:    sweep,
		interval: interval,
		cron:     cron.New(),
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *Scheduler) Start() error {
	spec := fmt.Sprintf("@every %s", s.interval)
	_, err := s.cron.AddFunc(spec, func() {
		s.sweep.Run(s.ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to register sweep job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("task scheduler started", "interval", s.interval.String())
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	s.cancel()
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info("task scheduler stopped")
}
