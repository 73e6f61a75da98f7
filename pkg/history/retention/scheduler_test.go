package retention

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"mercator-hq/ganymede/pkg/history"
)

func newTestScheduler(t *testing.T, cfg Config) *Scheduler {
	t.Helper()
	store, err := history.New(history.Config{Path: filepath.Join(t.TempDir(), "transcript.db")})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewScheduler(store, cfg)
}

func TestStartWithoutScheduleIsNoop(t *testing.T) {
	s := newTestScheduler(t, Config{})

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.IsRunning() {
		t.Error("scheduler must not run without a schedule")
	}
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	s := newTestScheduler(t, Config{Schedule: "not a cron line"})

	if err := s.Start(context.Background()); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
}

func TestStartAndStop(t *testing.T) {
	s := newTestScheduler(t, Config{Schedule: "0 3 * * *", Retention: 24 * time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.IsRunning() {
		t.Error("scheduler should be running after Start")
	}

	s.Stop()
	if s.IsRunning() {
		t.Error("scheduler should not be running after Stop")
	}
}

func TestDefaultRetentionApplied(t *testing.T) {
	s := newTestScheduler(t, Config{Schedule: "0 3 * * *"})

	if s.cfg.Retention != DefaultRetention {
		t.Errorf("expected default retention %v, got %v", DefaultRetention, s.cfg.Retention)
	}
}
