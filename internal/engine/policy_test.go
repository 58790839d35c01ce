package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/primsh/walletd/internal/action"
	"github.com/primsh/walletd/internal/engine"
	"github.com/primsh/walletd/internal/money"
	"github.com/primsh/walletd/internal/store"
)

func amountPtr(s string) *money.Amount {
	a := money.MustParse(s)
	return &a
}

func TestPolicy_AbsentRowIsPermissive(t *testing.T) {
	f := newFixture(t)

	pol, err := f.eng.Policy(context.Background(), testWallet)
	require.NoError(t, err)
	assert.Nil(t, pol.MaxPerTx)
	assert.Nil(t, pol.MaxPerDay)
	assert.Nil(t, pol.AllowedCounterparties)
	assert.True(t, pol.DailySpent.IsZero())
	assert.Nil(t, pol.PausedAt)
}

func TestSubmit_PerTransactionCap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.eng.SetPolicyLimits(ctx, testWallet, amountPtr("50"), nil, nil))

	_, err := f.eng.Submit(ctx, sendReq("k1", "60"))
	require.Error(t, err)
	assert.Equal(t, engine.CodePolicyViolation, engine.CodeOf(err))
	assert.Equal(t, 422, engine.CodeOf(err).HTTPStatus())

	// Rejections leave no ledger row.
	_, err = f.eng.Execution(ctx, "k1")
	assert.Equal(t, engine.CodeNotFound, engine.CodeOf(err))

	// An amount exactly at the cap passes.
	res, err := f.eng.Submit(ctx, sendReq("k2", "50"))
	require.NoError(t, err)
	assert.Equal(t, store.StatusSucceeded, res.Status)
}

func TestSubmit_DailyCap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.eng.SetPolicyLimits(ctx, testWallet, nil, amountPtr("100"), nil))

	_, err := f.eng.Submit(ctx, sendReq("k1", "90"))
	require.NoError(t, err)

	// 90 + 20 > 100: projected spend is checked, not current spend.
	_, err = f.eng.Submit(ctx, sendReq("k2", "20"))
	require.Error(t, err)
	assert.Equal(t, engine.CodePolicyViolation, engine.CodeOf(err))

	pol, err := f.eng.Policy(ctx, testWallet)
	require.NoError(t, err)
	assert.Equal(t, money.MustParse("90"), pol.DailySpent)

	// 90 + 10 = 100 still fits.
	_, err = f.eng.Submit(ctx, sendReq("k3", "10"))
	require.NoError(t, err)
}

func TestSubmit_DailyWindowResetsAtUTCMidnight(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.eng.SetPolicyLimits(ctx, testWallet, nil, amountPtr("100"), nil))

	_, err := f.eng.Submit(ctx, sendReq("k1", "90"))
	require.NoError(t, err)

	// One second before midnight the window is still full.
	f.clock.Set(time.Date(2025, 6, 1, 23, 59, 59, 0, time.UTC))
	_, err = f.eng.Submit(ctx, sendReq("k2", "20"))
	assert.Equal(t, engine.CodePolicyViolation, engine.CodeOf(err))

	// Past midnight the counter lazily resets on the next evaluation.
	f.clock.Set(time.Date(2025, 6, 2, 0, 0, 1, 0, time.UTC))
	res, err := f.eng.Submit(ctx, sendReq("k3", "20"))
	require.NoError(t, err)
	assert.Equal(t, store.StatusSucceeded, res.Status)

	pol, err := f.eng.Policy(ctx, testWallet)
	require.NoError(t, err)
	assert.Equal(t, money.MustParse("20"), pol.DailySpent)
	assert.Equal(t, time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC), pol.DailyResetAt)
}

func TestSubmit_AllowList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.eng.SetPolicyLimits(ctx, testWallet, nil, nil, []string{testDest}))

	res, err := f.eng.Submit(ctx, sendReq("k1", "10"))
	require.NoError(t, err)
	assert.Equal(t, store.StatusSucceeded, res.Status)

	req := sendReq("k2", "10")
	req.Payload = sendTo("0xother", "10")
	_, err = f.eng.Submit(ctx, req)
	require.Error(t, err)
	assert.Equal(t, engine.CodePolicyViolation, engine.CodeOf(err))

	// Swaps have no counterparty and are not gated by the allow-list.
	_, err = f.eng.Submit(ctx, swapReq("k3", "1"))
	require.NoError(t, err)
}

func TestSubmit_EmptyAllowListBlocksAllCounterparties(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.eng.SetPolicyLimits(ctx, testWallet, nil, nil, []string{}))

	_, err := f.eng.Submit(ctx, sendReq("k1", "10"))
	require.Error(t, err)
	assert.Equal(t, engine.CodePolicyViolation, engine.CodeOf(err))
}

func TestSetPolicyLimits_PreservesDailySpent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.eng.SetPolicyLimits(ctx, testWallet, nil, amountPtr("100"), nil))

	_, err := f.eng.Submit(ctx, sendReq("k1", "40"))
	require.NoError(t, err)

	// Tightening limits mid-window keeps the accumulated spend.
	require.NoError(t, f.eng.SetPolicyLimits(ctx, testWallet, amountPtr("50"), amountPtr("60"), nil))

	pol, err := f.eng.Policy(ctx, testWallet)
	require.NoError(t, err)
	assert.Equal(t, money.MustParse("40"), pol.DailySpent)

	_, err = f.eng.Submit(ctx, sendReq("k2", "30"))
	assert.Equal(t, engine.CodePolicyViolation, engine.CodeOf(err))
}

func TestWalletPause(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.eng.PauseWallet(ctx, testWallet, engine.ScopeSend))

	_, err := f.eng.Submit(ctx, sendReq("k1", "10"))
	require.Error(t, err)
	assert.Equal(t, engine.CodeServicePaused, engine.CodeOf(err))
	assert.Equal(t, 503, engine.CodeOf(err).HTTPStatus())

	// Scoped pause leaves the other action type alone.
	_, err = f.eng.Submit(ctx, swapReq("k2", "1"))
	require.NoError(t, err)

	require.NoError(t, f.eng.ResumeWallet(ctx, testWallet))
	_, err = f.eng.Submit(ctx, sendReq("k3", "10"))
	require.NoError(t, err)
}

func TestWalletPause_AllScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.eng.PauseWallet(ctx, testWallet, engine.ScopeAll))

	_, err := f.eng.Submit(ctx, sendReq("k1", "10"))
	assert.Equal(t, engine.CodeServicePaused, engine.CodeOf(err))
	_, err = f.eng.Submit(ctx, swapReq("k2", "1"))
	assert.Equal(t, engine.CodeServicePaused, engine.CodeOf(err))
}

func TestWalletPause_UnknownScope(t *testing.T) {
	f := newFixture(t)
	err := f.eng.PauseWallet(context.Background(), testWallet, "withdrawals")
	require.Error(t, err)
}

// sendTo builds a send payload to an arbitrary destination.
func sendTo(to, amount string) action.Send {
	return action.Send{To: to, AssetSymbol: "USDC", Amount: money.MustParse(amount)}
}
