package store

import (
	"context"
	"testing"
)

func TestInsertDeadLetter_WithAndWithoutExecution(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	insertQueued(t, s, "key-1")

	key := "key-1"
	if err := s.InsertDeadLetter(ctx, &key, "rpc timeout", []byte(`{"type":"send"}`), testNow); err != nil {
		t.Fatalf("InsertDeadLetter with key failed: %v", err)
	}

	// Pre-ledger failures have no execution row; the key is nullable by
	// design.
	if err := s.InsertDeadLetter(ctx, nil, "keystore unreachable", nil, testNow); err != nil {
		t.Fatalf("InsertDeadLetter without key failed: %v", err)
	}

	letters, err := s.ListDeadLetters(ctx, 10)
	if err != nil {
		t.Fatalf("ListDeadLetters failed: %v", err)
	}
	if len(letters) != 2 {
		t.Fatalf("got %d dead letters, want 2", len(letters))
	}
	if letters[0].ExecutionKey == nil || *letters[0].ExecutionKey != "key-1" {
		t.Errorf("first dead letter key = %v, want key-1", letters[0].ExecutionKey)
	}
	if letters[1].ExecutionKey != nil {
		t.Errorf("second dead letter key = %v, want nil", letters[1].ExecutionKey)
	}
	if letters[0].Reason != "rpc timeout" {
		t.Errorf("reason = %q", letters[0].Reason)
	}
}

func TestListDeadLetters_Empty(t *testing.T) {
	s := openTestStore(t)

	letters, err := s.ListDeadLetters(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListDeadLetters failed: %v", err)
	}
	if letters == nil {
		t.Error("expected empty slice, got nil")
	}
	if len(letters) != 0 {
		t.Errorf("got %d dead letters, want 0", len(letters))
	}
}

func TestListDeadLetters_Limit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := s.InsertDeadLetter(ctx, nil, "boom", nil, testNow); err != nil {
			t.Fatalf("InsertDeadLetter failed: %v", err)
		}
	}

	letters, err := s.ListDeadLetters(ctx, 3)
	if err != nil {
		t.Fatalf("ListDeadLetters failed: %v", err)
	}
	if len(letters) != 3 {
		t.Errorf("got %d dead letters, want 3", len(letters))
	}
}
