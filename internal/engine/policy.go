package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/primsh/walletd/internal/action"
	"github.com/primsh/walletd/internal/money"
	"github.com/primsh/walletd/internal/store"
)

// nextResetAfter returns the UTC-midnight boundary following t. The
// rolling daily window always resets at a fixed boundary, never
// per-request.
func nextResetAfter(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}

// Policy returns the wallet's spending policy after applying the lazy
// daily-window reset. A wallet without a stored policy row gets a fully
// permissive policy (no caps, no allow-list, not paused).
func (e *Engine) Policy(ctx context.Context, wallet string) (store.Policy, error) {
	now := e.clock.Now()
	if _, err := e.store.ResetDailySpentIfNeeded(ctx, wallet, now, nextResetAfter(now)); err != nil {
		return store.Policy{}, fmt.Errorf("policy %q: %w", wallet, err)
	}

	p, err := e.store.GetPolicy(ctx, wallet)
	if err == store.ErrNotFound {
		return store.Policy{
			WalletAddress: wallet,
			DailyResetAt:  nextResetAfter(now),
		}, nil
	}
	if err != nil {
		return store.Policy{}, fmt.Errorf("policy %q: %w", wallet, err)
	}
	return p, nil
}

// SetPolicyLimits writes the caps and allow-list for a wallet. Passing
// nil caps removes them; passing a nil allow-list removes the
// counterparty restriction.
func (e *Engine) SetPolicyLimits(ctx context.Context, wallet string, maxPerTx, maxPerDay *money.Amount, allowed []string) error {
	if err := e.store.UpsertPolicyLimits(ctx, wallet, maxPerTx, maxPerDay, allowed, nextResetAfter(e.clock.Now())); err != nil {
		return fmt.Errorf("set policy limits %q: %w", wallet, err)
	}
	e.log.Info("policy limits updated", "wallet", wallet)
	return nil
}

// PauseWallet sets the wallet-local pause, independent of the global
// circuit breaker. scope may be a single action scope or ScopeAll.
func (e *Engine) PauseWallet(ctx context.Context, wallet, scope string) error {
	if !validScope(scope) {
		return fmt.Errorf("pause wallet: unknown scope %q", scope)
	}
	now := e.clock.Now()
	if err := e.store.SetWalletPause(ctx, wallet, scope, &now, nextResetAfter(now)); err != nil {
		return fmt.Errorf("pause wallet %q: %w", wallet, err)
	}
	e.log.Info("wallet paused", "wallet", wallet, "scope", scope)
	return nil
}

// ResumeWallet clears the wallet-local pause.
func (e *Engine) ResumeWallet(ctx context.Context, wallet string) error {
	now := e.clock.Now()
	if err := e.store.SetWalletPause(ctx, wallet, "", nil, nextResetAfter(now)); err != nil {
		return fmt.Errorf("resume wallet %q: %w", wallet, err)
	}
	e.log.Info("wallet resumed", "wallet", wallet)
	return nil
}

// checkPolicy evaluates the wallet's spending policy against a payload.
// Called before any ledger row exists, so rejected requests never
// pollute the ledger. The lazy daily reset runs first, so cap
// comparisons never see a stale window.
func (e *Engine) checkPolicy(ctx context.Context, wallet string, p action.Payload) error {
	pol, err := e.Policy(ctx, wallet)
	if err != nil {
		return err
	}

	// Wallet-local pause: independent of the global breaker, same
	// caller-visible behavior.
	if pol.PausedAt != nil {
		scope := scopeForAction(p.ActionType())
		if pol.PauseScope == ScopeAll || pol.PauseScope == scope {
			return newError(CodeServicePaused, "", wallet,
				"wallet is paused for scope %q", pol.PauseScope)
		}
	}

	amount := p.Spend()

	if pol.MaxPerTx != nil && amount.Cmp(*pol.MaxPerTx) > 0 {
		return newError(CodePolicyViolation, "", wallet,
			"amount %s exceeds per-transaction cap %s", amount, *pol.MaxPerTx)
	}

	if pol.MaxPerDay != nil {
		projected, err := pol.DailySpent.Add(amount)
		if err != nil {
			return newError(CodeInvalidRequest, "", wallet, "amount out of range: %v", err)
		}
		if projected.Cmp(*pol.MaxPerDay) > 0 {
			return newError(CodePolicyViolation, "", wallet,
				"daily spend %s + %s exceeds daily cap %s", pol.DailySpent, amount, *pol.MaxPerDay)
		}
	}

	if counterparty := p.Counterparty(); pol.AllowedCounterparties != nil && counterparty != "" {
		if !contains(pol.AllowedCounterparties, counterparty) {
			return newError(CodePolicyViolation, "", wallet,
				"counterparty %s is not on the allow-list", counterparty)
		}
	}

	return nil
}

// recordSpend increments the wallet's daily counter. Called only after a
// successful external submit, never speculatively, so DailySpent always
// reflects completed executions only.
func (e *Engine) recordSpend(ctx context.Context, wallet string, amount money.Amount) error {
	if err := e.store.AddDailySpent(ctx, wallet, amount, nextResetAfter(e.clock.Now())); err != nil {
		return fmt.Errorf("record spend %q: %w", wallet, err)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
