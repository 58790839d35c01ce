package store

import (
	"context"
	"fmt"
	"testing"
)

func TestAppendEvent_ReadBackInInsertionOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	insertQueued(t, s, "key-1")

	types := []string{"validated", "balance_checked", "tx_sent", "tx_confirmed"}
	for _, et := range types {
		if err := s.AppendEvent(ctx, "key-1", et, nil, testNow); err != nil {
			t.Fatalf("AppendEvent(%q) failed: %v", et, err)
		}
	}

	events, err := s.EventsByExecution(ctx, "key-1")
	if err != nil {
		t.Fatalf("EventsByExecution failed: %v", err)
	}
	if len(events) != len(types) {
		t.Fatalf("got %d events, want %d", len(events), len(types))
	}
	var lastID int64
	for i, ev := range events {
		if ev.EventType != types[i] {
			t.Errorf("event[%d] = %q, want %q", i, ev.EventType, types[i])
		}
		if ev.ID <= lastID {
			t.Errorf("event ids not strictly increasing: %d after %d", ev.ID, lastID)
		}
		lastID = ev.ID
	}
}

func TestAppendEvent_ManyEventsKeepOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	insertQueued(t, s, "key-1")

	const n = 50
	for i := 0; i < n; i++ {
		payload := []byte(fmt.Sprintf(`{"i":%d}`, i))
		if err := s.AppendEvent(ctx, "key-1", "tick", payload, testNow); err != nil {
			t.Fatalf("AppendEvent %d failed: %v", i, err)
		}
	}

	events, err := s.EventsByExecution(ctx, "key-1")
	if err != nil {
		t.Fatalf("EventsByExecution failed: %v", err)
	}
	if len(events) != n {
		t.Fatalf("got %d events, want %d", len(events), n)
	}
	for i, ev := range events {
		want := fmt.Sprintf(`{"i":%d}`, i)
		if string(ev.Payload) != want {
			t.Fatalf("event[%d] payload = %s, want %s", i, ev.Payload, want)
		}
	}
}

func TestEventsByExecution_Isolation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	insertQueued(t, s, "a")
	insertQueued(t, s, "b")

	if err := s.AppendEvent(ctx, "a", "validated", nil, testNow); err != nil {
		t.Fatalf("AppendEvent failed: %v", err)
	}

	events, err := s.EventsByExecution(ctx, "b")
	if err != nil {
		t.Fatalf("EventsByExecution failed: %v", err)
	}
	if events == nil {
		t.Error("expected empty slice, got nil")
	}
	if len(events) != 0 {
		t.Errorf("execution b has %d events, want 0", len(events))
	}
}
