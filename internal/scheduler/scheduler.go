package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pluspress/internal/domain"
)

// Syncer defines the interface for sync operations.
type Syncer interface {
	Sync(ctx context.Context) (*domain.SyncStats, error)
}

type Scheduler struct {
	syncer   Syncer
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
}

// NewScheduler creates a Scheduler. An interval of zero runs a single sync;
// a timeout of zero leaves runs without a deadline.
func NewScheduler(syncer Syncer, interval, timeout time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		syncer:   syncer,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
	}
}

// Start syncs immediately and then on every tick until ctx is done. Expired
// credentials stop the loop since no later run can succeed.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return s.RunOnce(ctx)
	}

	s.logger.Info("scheduler started", "interval", s.interval)

	if err := s.runSync(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.runSync(ctx); err != nil {
				return err
			}
		}
	}
}

// RunOnce performs a single sync and returns its error.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	syncCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		syncCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if _, err := s.syncer.Sync(syncCtx); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	return nil
}

// runSync logs failures and only returns those that must end the loop.
func (s *Scheduler) runSync(ctx context.Context) error {
	err := s.RunOnce(ctx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrUnauthorized):
		return err
	default:
		s.logger.Error("sync failed", "error", err)
		return nil
	}
}
