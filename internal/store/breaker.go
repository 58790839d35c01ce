package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SetScopePause upserts the pause state for one circuit-breaker scope.
// pausedAt == nil resumes the scope. Idempotent: repeating the same write
// leaves the same state.
func (s *Store) SetScopePause(ctx context.Context, scope string, pausedAt *time.Time, now time.Time) error {
	_, err := s.execContext(ctx, `
		INSERT INTO circuit_breaker (scope, paused_at, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(scope) DO UPDATE SET
			paused_at = excluded.paused_at,
			updated_at = excluded.updated_at
	`,
		scope,
		fmtNullTime(pausedAt),
		fmtTime(now),
	)
	if err != nil {
		return fmt.Errorf("set scope pause %q: %w", scope, err)
	}
	return nil
}

// ScopePausedAt returns the pause timestamp for one scope, or nil when
// the scope has no row or its row is not paused.
func (s *Store) ScopePausedAt(ctx context.Context, scope string) (*time.Time, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT paused_at FROM circuit_breaker WHERE scope = ?
	`, scope)

	var pausedAt sql.NullString
	err := row.Scan(&pausedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scope paused-at %q: %w", scope, err)
	}
	return parseNullTime(pausedAt)
}

// ScopeStates returns every circuit-breaker row, ordered by scope for
// stable operational output. Returns an empty slice, not nil, when no
// scope has ever been written.
func (s *Store) ScopeStates(ctx context.Context) ([]ScopeState, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT scope, paused_at, updated_at
		FROM circuit_breaker
		ORDER BY scope ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query scope states: %w", err)
	}
	defer rows.Close()

	var states []ScopeState
	for rows.Next() {
		var st ScopeState
		var pausedAt sql.NullString
		var updatedAt string
		if err := rows.Scan(&st.Scope, &pausedAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan scope state: %w", err)
		}
		if st.PausedAt, err = parseNullTime(pausedAt); err != nil {
			return nil, err
		}
		if st.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		states = append(states, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scope states: %w", err)
	}

	if states == nil {
		states = []ScopeState{}
	}
	return states, nil
}
