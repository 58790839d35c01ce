package store

import (
	"context"
	"testing"
)

func TestSetScopePause_UpsertAndResume(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	pausedAt := testNow
	if err := s.SetScopePause(ctx, "send", &pausedAt, testNow); err != nil {
		t.Fatalf("SetScopePause failed: %v", err)
	}

	got, err := s.ScopePausedAt(ctx, "send")
	if err != nil {
		t.Fatalf("ScopePausedAt failed: %v", err)
	}
	if got == nil || !got.Equal(pausedAt) {
		t.Errorf("paused at = %v, want %v", got, pausedAt)
	}

	// Idempotent: pausing again is the same state.
	if err := s.SetScopePause(ctx, "send", &pausedAt, testNow); err != nil {
		t.Fatalf("second SetScopePause failed: %v", err)
	}

	// Resume clears exactly this scope.
	if err := s.SetScopePause(ctx, "send", nil, testNow); err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	got, err = s.ScopePausedAt(ctx, "send")
	if err != nil {
		t.Fatalf("ScopePausedAt failed: %v", err)
	}
	if got != nil {
		t.Errorf("paused at after resume = %v, want nil", got)
	}
}

func TestScopePausedAt_UnknownScope(t *testing.T) {
	s := openTestStore(t)

	got, err := s.ScopePausedAt(context.Background(), "swap")
	if err != nil {
		t.Fatalf("ScopePausedAt failed: %v", err)
	}
	if got != nil {
		t.Errorf("unknown scope paused at = %v, want nil", got)
	}
}

func TestScopeStates_OrderedAndComplete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	pausedAt := testNow
	if err := s.SetScopePause(ctx, "swap", &pausedAt, testNow); err != nil {
		t.Fatalf("SetScopePause failed: %v", err)
	}
	if err := s.SetScopePause(ctx, "all", nil, testNow); err != nil {
		t.Fatalf("SetScopePause failed: %v", err)
	}

	states, err := s.ScopeStates(ctx)
	if err != nil {
		t.Fatalf("ScopeStates failed: %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("got %d states, want 2", len(states))
	}
	if states[0].Scope != "all" || states[1].Scope != "swap" {
		t.Errorf("scope order = [%s, %s], want [all, swap]", states[0].Scope, states[1].Scope)
	}
	if states[0].PausedAt != nil {
		t.Error("all should not be paused")
	}
	if states[1].PausedAt == nil {
		t.Error("swap should be paused")
	}
}

func TestScopeStates_Empty(t *testing.T) {
	s := openTestStore(t)

	states, err := s.ScopeStates(context.Background())
	if err != nil {
		t.Fatalf("ScopeStates failed: %v", err)
	}
	if states == nil {
		t.Error("expected empty slice, got nil")
	}
}
