package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AppendEvent inserts a journal entry for an execution. Insert-only;
// events are never mutated or deleted. The execution row must exist
// (foreign key constraint).
func (s *Store) AppendEvent(ctx context.Context, executionKey, eventType string, payload []byte, now time.Time) error {
	_, err := s.execContext(ctx, `
		INSERT INTO execution_events (execution_key, event_type, payload, created_at)
		VALUES (?, ?, ?, ?)
	`,
		executionKey,
		eventType,
		nullBytes(payload),
		fmtTime(now),
	)
	if err != nil {
		return fmt.Errorf("append event %q for %q: %w", eventType, executionKey, err)
	}
	return nil
}

// EventsByExecution returns all journal entries for an execution in
// strict insertion order (ORDER BY id ASC). Returns an empty slice, not
// nil, when the execution has no events.
func (s *Store) EventsByExecution(ctx context.Context, executionKey string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, execution_key, event_type, payload, created_at
		FROM execution_events
		WHERE execution_key = ?
		ORDER BY id ASC
	`, executionKey)
	if err != nil {
		return nil, fmt.Errorf("query events for %q: %w", executionKey, err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		var payload sql.NullString
		var createdAt string
		if err := rows.Scan(&ev.ID, &ev.ExecutionKey, &ev.EventType, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if payload.Valid {
			ev.Payload = []byte(payload.String)
		}
		if ev.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	if events == nil {
		events = []Event{}
	}
	return events, nil
}
