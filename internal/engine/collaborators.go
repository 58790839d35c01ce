package engine

import (
	"context"
	"errors"
	"time"

	"github.com/primsh/walletd/internal/action"
	"github.com/primsh/walletd/internal/money"
)

// ErrWalletNotFound is returned by WalletRegistry implementations when
// the address is unknown.
var ErrWalletNotFound = errors.New("wallet not found")

// WalletInfo describes a registered wallet.
type WalletInfo struct {
	OwnerID     string
	Chain       string
	Deactivated bool
}

// WalletRegistry resolves wallet addresses for ownership checks.
type WalletRegistry interface {
	// Lookup returns wallet metadata, or ErrWalletNotFound.
	Lookup(ctx context.Context, address string) (WalletInfo, error)
}

// BalanceOracle answers pre-submit affordability checks.
type BalanceOracle interface {
	// Balance returns the wallet's spendable balance for an asset.
	Balance(ctx context.Context, address, asset string) (money.Amount, error)
}

// Submitter performs the sole external side effect: broadcasting the
// action to the outside world. Submit may block for confirmation latency
// and may fail; it is invoked at most once per claimed execution.
type Submitter interface {
	// Submit broadcasts the action and returns an external reference.
	Submit(ctx context.Context, from string, p action.Payload) (ref string, err error)
}

// Clock provides wall time. Injected so policy windows and pause
// timestamps are deterministic under test.
type Clock interface {
	Now() time.Time
}

// WallClock is the production Clock.
type WallClock struct{}

// Now returns the current wall time.
func (WallClock) Now() time.Time { return time.Now() }
