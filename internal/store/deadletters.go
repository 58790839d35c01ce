package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// InsertDeadLetter records an irrecoverable failure. executionKey may be
// nil: some failures occur before any ledger row exists. Append-only.
func (s *Store) InsertDeadLetter(ctx context.Context, executionKey *string, reason string, payload []byte, now time.Time) error {
	var key sql.NullString
	if executionKey != nil {
		key = sql.NullString{String: *executionKey, Valid: true}
	}

	_, err := s.execContext(ctx, `
		INSERT INTO dead_letters (execution_key, reason, payload, created_at)
		VALUES (?, ?, ?, ?)
	`,
		key,
		reason,
		nullBytes(payload),
		fmtTime(now),
	)
	if err != nil {
		return fmt.Errorf("insert dead letter: %w", err)
	}
	return nil
}

// ListDeadLetters returns up to limit dead letters in insertion order.
// Returns an empty slice, not nil, when there are none.
func (s *Store) ListDeadLetters(ctx context.Context, limit int) ([]DeadLetter, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, execution_key, reason, payload, created_at
		FROM dead_letters
		ORDER BY id ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query dead letters: %w", err)
	}
	defer rows.Close()

	var letters []DeadLetter
	for rows.Next() {
		var dl DeadLetter
		var key, payload sql.NullString
		var createdAt string
		if err := rows.Scan(&dl.ID, &key, &dl.Reason, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("scan dead letter: %w", err)
		}
		if key.Valid {
			k := key.String
			dl.ExecutionKey = &k
		}
		if payload.Valid {
			dl.Payload = []byte(payload.String)
		}
		if dl.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		letters = append(letters, dl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dead letters: %w", err)
	}

	if letters == nil {
		letters = []DeadLetter{}
	}
	return letters, nil
}
