package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/primsh/walletd/internal/money"
)

// GetPolicy returns the policy row for a wallet.
// Returns ErrNotFound when no policy has ever been written for it; the
// engine treats an absent row as a fully permissive policy.
func (s *Store) GetPolicy(ctx context.Context, wallet string) (Policy, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT wallet_address, max_per_tx, max_per_day, allowed_counterparties,
		       daily_spent, daily_reset_at, pause_scope, paused_at
		FROM policies
		WHERE wallet_address = ?
	`, wallet)

	var p Policy
	var maxPerTx, maxPerDay sql.NullInt64
	var allowed, pauseScope, pausedAt sql.NullString
	var dailySpent, dailyResetAt int64

	err := row.Scan(&p.WalletAddress, &maxPerTx, &maxPerDay, &allowed,
		&dailySpent, &dailyResetAt, &pauseScope, &pausedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Policy{}, ErrNotFound
	}
	if err != nil {
		return Policy{}, fmt.Errorf("get policy %q: %w", wallet, err)
	}

	if maxPerTx.Valid {
		a := money.FromMicroUnits(maxPerTx.Int64)
		p.MaxPerTx = &a
	}
	if maxPerDay.Valid {
		a := money.FromMicroUnits(maxPerDay.Int64)
		p.MaxPerDay = &a
	}
	if allowed.Valid {
		if err := json.Unmarshal([]byte(allowed.String), &p.AllowedCounterparties); err != nil {
			return Policy{}, fmt.Errorf("get policy %q: decode allow-list: %w", wallet, err)
		}
		// A stored empty list is distinct from NULL: it blocks every
		// counterparty rather than allowing all of them.
		if p.AllowedCounterparties == nil {
			p.AllowedCounterparties = []string{}
		}
	}
	p.DailySpent = money.FromMicroUnits(dailySpent)
	p.DailyResetAt = time.Unix(dailyResetAt, 0).UTC()
	if pauseScope.Valid {
		p.PauseScope = pauseScope.String
	}
	if p.PausedAt, err = parseNullTime(pausedAt); err != nil {
		return Policy{}, fmt.Errorf("get policy %q: %w", wallet, err)
	}
	return p, nil
}

// UpsertPolicyLimits writes the caps and allow-list for a wallet,
// creating the row lazily on first write. The daily spend counter and
// pause state are preserved on update; resetAt seeds daily_reset_at only
// when the row is new.
func (s *Store) UpsertPolicyLimits(ctx context.Context, wallet string, maxPerTx, maxPerDay *money.Amount, allowed []string, resetAt time.Time) error {
	allowedJSON, err := encodeAllowList(allowed)
	if err != nil {
		return fmt.Errorf("upsert policy %q: %w", wallet, err)
	}

	_, err = s.execContext(ctx, `
		INSERT INTO policies (wallet_address, max_per_tx, max_per_day, allowed_counterparties, daily_spent, daily_reset_at)
		VALUES (?, ?, ?, ?, 0, ?)
		ON CONFLICT(wallet_address) DO UPDATE SET
			max_per_tx = excluded.max_per_tx,
			max_per_day = excluded.max_per_day,
			allowed_counterparties = excluded.allowed_counterparties
	`,
		wallet,
		nullAmount(maxPerTx),
		nullAmount(maxPerDay),
		allowedJSON,
		resetAt.UTC().Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert policy %q: %w", wallet, err)
	}
	return nil
}

// ResetDailySpentIfNeeded atomically zeroes the daily counter and
// advances the window boundary, but only when the stored boundary is at
// or before now. The conditional WHERE makes concurrent resets safe:
// whichever caller wins, the counter is zeroed exactly once per window.
func (s *Store) ResetDailySpentIfNeeded(ctx context.Context, wallet string, now, nextReset time.Time) (reset bool, err error) {
	res, err := s.execContext(ctx, `
		UPDATE policies
		SET daily_spent = 0, daily_reset_at = ?
		WHERE wallet_address = ? AND daily_reset_at <= ?
	`,
		nextReset.UTC().Unix(),
		wallet,
		now.UTC().Unix(),
	)
	if err != nil {
		return false, fmt.Errorf("reset daily spent %q: %w", wallet, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reset daily spent %q: rows affected: %w", wallet, err)
	}
	return rows > 0, nil
}

// AddDailySpent increments the daily counter as a single atomic UPDATE
// (never read-modify-write), creating the policy row lazily if the wallet
// has none yet. resetAt seeds daily_reset_at only for a new row.
func (s *Store) AddDailySpent(ctx context.Context, wallet string, amount money.Amount, resetAt time.Time) error {
	_, err := s.execContext(ctx, `
		INSERT INTO policies (wallet_address, daily_spent, daily_reset_at)
		VALUES (?, ?, ?)
		ON CONFLICT(wallet_address) DO UPDATE SET
			daily_spent = daily_spent + excluded.daily_spent
	`,
		wallet,
		amount.MicroUnits(),
		resetAt.UTC().Unix(),
	)
	if err != nil {
		return fmt.Errorf("add daily spent %q: %w", wallet, err)
	}
	return nil
}

// SetWalletPause writes the wallet-local pause state, creating the policy
// row lazily if needed. pausedAt == nil resumes the wallet.
func (s *Store) SetWalletPause(ctx context.Context, wallet, scope string, pausedAt *time.Time, resetAt time.Time) error {
	var scopeVal sql.NullString
	if scope != "" {
		scopeVal = sql.NullString{String: scope, Valid: true}
	}

	_, err := s.execContext(ctx, `
		INSERT INTO policies (wallet_address, daily_spent, daily_reset_at, pause_scope, paused_at)
		VALUES (?, 0, ?, ?, ?)
		ON CONFLICT(wallet_address) DO UPDATE SET
			pause_scope = excluded.pause_scope,
			paused_at = excluded.paused_at
	`,
		wallet,
		resetAt.UTC().Unix(),
		scopeVal,
		fmtNullTime(pausedAt),
	)
	if err != nil {
		return fmt.Errorf("set wallet pause %q: %w", wallet, err)
	}
	return nil
}

func nullAmount(a *money.Amount) sql.NullInt64 {
	if a == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: a.MicroUnits(), Valid: true}
}

func encodeAllowList(allowed []string) (sql.NullString, error) {
	if allowed == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(allowed)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode allow-list: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
