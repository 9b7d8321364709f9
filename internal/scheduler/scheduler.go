package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"mediagraph/internal/domain"
)

// Syncer defines the interface for periodic media sync runs.
type Syncer interface {
	SyncAll(ctx context.Context, limit int) (*domain.SyncResult, error)
}

type Scheduler struct {
	syncer   Syncer
	interval time.Duration
	logger   *slog.Logger
}

func NewScheduler(syncer Syncer, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		syncer:   syncer,
		interval: interval,
		logger:   logger,
	}
}

// Start runs a sync immediately and then on every tick until the
// context is cancelled. A zero or negative interval disables the loop.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		s.logger.Info("scheduler disabled")
		return nil
	}

	s.logger.Info("scheduler started", "interval", s.interval)

	s.runSync(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runSync(ctx)
		}
	}
}

func (s *Scheduler) runSync(ctx context.Context) {
	syncCtx, cancel := context.WithTimeout(ctx, 30*time.Minute)
	defer cancel()

	result, err := s.syncer.SyncAll(syncCtx, 0)
	if err != nil {
		if errors.Is(err, domain.ErrSyncRunning) {
			s.logger.Info("sync already running, skipping tick")
			return
		}
		s.logger.Error("scheduled sync failed", "error", err)
		return
	}
	s.logger.Info("scheduled sync finished",
		"content", result.Totals.ContentSynced,
		"keywords", result.Totals.KeywordsSynced,
		"comments", result.Totals.CommentsSynced)
}
