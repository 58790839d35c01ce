package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// InsertExecution creates a queued ledger row for an unseen idempotency
// key. Uses ON CONFLICT(idempotency_key) DO NOTHING: if the key was seen
// before, the existing row is untouched and inserted is false. Callers
// compare payload hashes themselves to distinguish replay from conflict.
func (s *Store) InsertExecution(ctx context.Context, key, wallet, actionType, payloadHash string, now time.Time) (inserted bool, err error) {
	res, err := s.execContext(ctx, `
		INSERT INTO executions
		(idempotency_key, wallet_address, action_type, payload_hash, status, result, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, NULL, ?, ?)
		ON CONFLICT(idempotency_key) DO NOTHING
	`,
		key,
		wallet,
		actionType,
		payloadHash,
		string(StatusQueued),
		fmtTime(now),
		fmtTime(now),
	)
	if err != nil {
		return false, fmt.Errorf("insert execution: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert execution: rows affected: %w", err)
	}
	return rows > 0, nil
}

// GetExecution returns the ledger row for an idempotency key.
// Returns ErrNotFound if the key has never been seen.
func (s *Store) GetExecution(ctx context.Context, key string) (Execution, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT idempotency_key, wallet_address, action_type, payload_hash, status, result, created_at, updated_at
		FROM executions
		WHERE idempotency_key = ?
	`, key)

	exec, err := scanExecution(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Execution{}, ErrNotFound
	}
	if err != nil {
		return Execution{}, fmt.Errorf("get execution %q: %w", key, err)
	}
	return exec, nil
}

// TryClaim atomically transitions queued -> running for one key.
//
// This single conditional UPDATE is the sole correctness mechanism for
// exactly-once execution: of N concurrent or retried callers, exactly one
// observes RowsAffected == 1. No in-process lock is required or
// sufficient, since the database may be shared by multiple service
// instances.
func (s *Store) TryClaim(ctx context.Context, key string, now time.Time) (claimed bool, err error) {
	res, err := s.execContext(ctx, `
		UPDATE executions
		SET status = ?, updated_at = ?
		WHERE idempotency_key = ? AND status = ?
	`,
		string(StatusRunning),
		fmtTime(now),
		key,
		string(StatusQueued),
	)
	if err != nil {
		return false, fmt.Errorf("try claim %q: %w", key, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("try claim %q: rows affected: %w", key, err)
	}
	return rows > 0, nil
}

// CompleteExecution performs the terminal transition running ->
// {succeeded, failed} and stores the serialized result.
// Returns ErrInvalidTransition if the row is not currently running, so a
// terminal row can never be overwritten.
func (s *Store) CompleteExecution(ctx context.Context, key string, status ExecutionStatus, result []byte, now time.Time) error {
	if status != StatusSucceeded && status != StatusFailed {
		return fmt.Errorf("complete execution %q: %q is not a completion status", key, status)
	}

	res, err := s.execContext(ctx, `
		UPDATE executions
		SET status = ?, result = ?, updated_at = ?
		WHERE idempotency_key = ? AND status = ?
	`,
		string(status),
		nullBytes(result),
		fmtTime(now),
		key,
		string(StatusRunning),
	)
	if err != nil {
		return fmt.Errorf("complete execution %q: %w", key, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete execution %q: rows affected: %w", key, err)
	}
	if rows == 0 {
		return fmt.Errorf("complete execution %q: %w", key, ErrInvalidTransition)
	}
	return nil
}

// MarkAborted transitions queued|running -> aborted. Used when a
// precondition fails after a row exists but before or without a real
// submit attempt. The reason is stored as the serialized result.
// Returns ErrInvalidTransition if the row is already terminal.
func (s *Store) MarkAborted(ctx context.Context, key string, result []byte, now time.Time) error {
	res, err := s.execContext(ctx, `
		UPDATE executions
		SET status = ?, result = ?, updated_at = ?
		WHERE idempotency_key = ? AND status IN (?, ?)
	`,
		string(StatusAborted),
		nullBytes(result),
		fmtTime(now),
		key,
		string(StatusQueued),
		string(StatusRunning),
	)
	if err != nil {
		return fmt.Errorf("mark aborted %q: %w", key, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark aborted %q: rows affected: %w", key, err)
	}
	if rows == 0 {
		return fmt.Errorf("mark aborted %q: %w", key, ErrInvalidTransition)
	}
	return nil
}

// ListExecutionsByStatus returns up to limit executions in the given
// status, oldest first. Used for operator triage (notably stuck running
// claims, which have no built-in reclaim).
func (s *Store) ListExecutionsByStatus(ctx context.Context, status ExecutionStatus, limit int) ([]Execution, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idempotency_key, wallet_address, action_type, payload_hash, status, result, created_at, updated_at
		FROM executions
		WHERE status = ?
		ORDER BY created_at ASC, idempotency_key ASC
		LIMIT ?
	`, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	var execs []Execution
	for rows.Next() {
		exec, err := scanExecution(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("list executions: %w", err)
		}
		execs = append(execs, exec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate executions: %w", err)
	}

	if execs == nil {
		execs = []Execution{}
	}
	return execs, nil
}

// scanExecution scans one executions row via the given Scan function.
func scanExecution(scan func(...any) error) (Execution, error) {
	var exec Execution
	var status string
	var result sql.NullString
	var createdAt, updatedAt string

	if err := scan(
		&exec.IdempotencyKey, &exec.WalletAddress, &exec.ActionType, &exec.PayloadHash,
		&status, &result, &createdAt, &updatedAt,
	); err != nil {
		return Execution{}, err
	}

	exec.Status = ExecutionStatus(status)
	if result.Valid {
		exec.Result = []byte(result.String)
	}

	var err error
	if exec.CreatedAt, err = parseTime(createdAt); err != nil {
		return Execution{}, err
	}
	if exec.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return Execution{}, err
	}
	return exec, nil
}

func nullBytes(b []byte) sql.NullString {
	if b == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}
