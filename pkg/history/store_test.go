package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"mercator-hq/ganymede/pkg/prompt"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{Path: filepath.Join(t.TempDir(), "transcript.db")})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAppendAndRecentTurns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	session := uuid.New().String()

	turns := []prompt.Turn{
		{Role: prompt.RoleUser, Content: "first question"},
		{Role: prompt.RoleModel, Content: "first answer"},
		{Role: prompt.RoleUser, Content: "second question"},
		{Role: prompt.RoleModel, Content: "second answer"},
	}
	if err := s.AppendTurns(ctx, session, turns); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	got, err := s.RecentTurns(ctx, session, 0)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(got) != len(turns) {
		t.Fatalf("expected %d turns, got %d", len(turns), len(got))
	}
	for i := range turns {
		if got[i] != turns[i] {
			t.Errorf("turn %d: expected %+v, got %+v", i, turns[i], got[i])
		}
	}
}

func TestRecentTurnsLimitReturnsNewestOldestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	session := uuid.New().String()

	turns := []prompt.Turn{
		{Role: prompt.RoleUser, Content: "one"},
		{Role: prompt.RoleModel, Content: "two"},
		{Role: prompt.RoleUser, Content: "three"},
		{Role: prompt.RoleModel, Content: "four"},
	}
	if err := s.AppendTurns(ctx, session, turns); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	got, err := s.RecentTurns(ctx, session, 2)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(got))
	}
	if got[0].Content != "three" || got[1].Content != "four" {
		t.Errorf("expected the two newest turns oldest first, got %+v", got)
	}
}

func TestRecentTurnsIsolatedBySession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a, b := uuid.New().String(), uuid.New().String()

	if err := s.AppendTurns(ctx, a, []prompt.Turn{{Role: prompt.RoleUser, Content: "for a"}}); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if err := s.AppendTurns(ctx, b, []prompt.Turn{{Role: prompt.RoleUser, Content: "for b"}}); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	got, err := s.RecentTurns(ctx, a, 0)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(got) != 1 || got[0].Content != "for a" {
		t.Errorf("expected only session a's turns, got %+v", got)
	}
}

func TestAppendTurnsEmptyNoop(t *testing.T) {
	s := newTestStore(t)
	if err := s.AppendTurns(context.Background(), uuid.New().String(), nil); err != nil {
		t.Errorf("empty append must be a no-op, got %v", err)
	}
}

func TestPruneBefore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	session := uuid.New().String()

	if err := s.AppendTurns(ctx, session, []prompt.Turn{
		{Role: prompt.RoleUser, Content: "old enough to prune"},
	}); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	// Everything so far is older than a future cutoff.
	pruned, err := s.PruneBefore(ctx, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if pruned != 1 {
		t.Errorf("expected 1 pruned row, got %d", pruned)
	}

	got, err := s.RecentTurns(ctx, session, 0)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty transcript after prune, got %+v", got)
	}
}

func TestPruneBeforeKeepsNewerRows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	session := uuid.New().String()

	if err := s.AppendTurns(ctx, session, []prompt.Turn{
		{Role: prompt.RoleUser, Content: "still fresh"},
	}); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	pruned, err := s.PruneBefore(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if pruned != 0 {
		t.Errorf("expected no pruned rows, got %d", pruned)
	}
}

func TestPing(t *testing.T) {
	s := newTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("ping failed: %v", err)
	}
}
