// Package retention prunes old transcript rows on a cron schedule.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"mercator-hq/ganymede/pkg/history"
)

// DefaultRetention is how long transcript rows are kept when unconfigured.
const DefaultRetention = 30 * 24 * time.Hour

// Config configures the retention scheduler.
type Config struct {
	// Schedule is a standard cron expression, e.g. "0 3 * * *" for daily
	// at 3 AM. Empty disables scheduled pruning.
	Schedule string

	// Retention is how long transcript rows are kept.
	// Default: DefaultRetention.
	Retention time.Duration
}

// Scheduler runs transcript pruning at scheduled intervals.
type Scheduler struct {
	store   *history.Store
	cfg     Config
	cron    *cron.Cron
	mu      sync.Mutex
	logger  *slog.Logger
	running bool
}

// NewScheduler creates a retention scheduler over the transcript store.
func NewScheduler(store *history.Store, cfg Config) *Scheduler {
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}

	return &Scheduler{
		store:  store,
		cfg:    cfg,
		cron:   cron.New(),
		logger: slog.Default().With("component", "history.retention"),
	}
}

// Start begins scheduled pruning. If no schedule is configured, Start is a
// no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.Schedule == "" {
		s.logger.Info("prune schedule not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(s.cfg.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.cfg.Schedule, err)
	}

	if _, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		s.runPruning(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule pruning: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("retention scheduler started",
		"schedule", s.cfg.Schedule,
		"retention", s.cfg.Retention,
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// runPruning executes one pruning cycle.
func (s *Scheduler) runPruning(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.Retention)

	pruned, err := s.store.PruneBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error("scheduled transcript pruning failed", "error", err)
		return
	}

	if pruned > 0 {
		s.logger.Info("scheduled transcript pruning completed", "pruned_count", pruned)
	} else {
		s.logger.Debug("scheduled transcript pruning completed, no rows pruned")
	}
}

// Stop stops the scheduler and waits for any running job to complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && s.running {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.running = false
		s.logger.Info("retention scheduler stopped")
	}
}

// IsRunning reports whether the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}
