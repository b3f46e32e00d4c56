// Package scheduler runs the periodic sync of stored transactions into the
// income ledger.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mohangy/azii/internal/accounting"
)

// Syncer projects the stored transactions into the stored income ledger.
type Syncer interface {
	SyncStored(ctx context.Context) (accounting.SyncResult, error)
}

type Scheduler struct {
	cron    *cron.Cron
	spec    string
	syncer  Syncer
	timeout time.Duration
	logger  *zap.Logger
}

// New builds a scheduler firing spec (standard five-field cron or a
// descriptor such as "@every 15m") in loc. Overlapping runs are skipped.
func New(spec string, loc *time.Location, syncer Syncer, timeout time.Duration, logger *zap.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	return &Scheduler{cron: c, spec: spec, syncer: syncer, timeout: timeout, logger: logger}
}

// Start registers the sync job and starts the cron loop in the background.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.RunOnce(context.Background()) }); err != nil {
		return fmt.Errorf("add auto-sync: %w", err)
	}
	s.cron.Start()
	s.logger.Info("auto-sync scheduler started", zap.String("schedule", s.spec))
	return nil
}

// Stop stops the cron loop and waits for a running sync to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("auto-sync scheduler stopped")
}

// RunOnce performs one sync, bounded by the configured timeout.
func (s *Scheduler) RunOnce(ctx context.Context) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := s.syncer.SyncStored(ctx)
	if err != nil {
		s.logger.Error("auto-sync failed", zap.Error(err))
		return
	}
	s.logger.Info("auto-sync completed",
		zap.Int("added", res.Added),
		zap.Duration("took", time.Since(start)),
	)
}
