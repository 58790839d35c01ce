package testutil

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/primsh/walletd/internal/action"
	"github.com/primsh/walletd/internal/engine"
	"github.com/primsh/walletd/internal/money"
)

// Registry is an in-memory engine.WalletRegistry backed by a map.
type Registry struct {
	mu      sync.RWMutex
	wallets map[string]engine.WalletInfo
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{wallets: make(map[string]engine.WalletInfo)}
}

// Add registers a wallet.
func (r *Registry) Add(address string, info engine.WalletInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wallets[address] = info
}

// Lookup implements engine.WalletRegistry.
func (r *Registry) Lookup(_ context.Context, address string) (engine.WalletInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.wallets[address]
	if !ok {
		return engine.WalletInfo{}, engine.ErrWalletNotFound
	}
	return info, nil
}

// Oracle is an in-memory engine.BalanceOracle. Balances are keyed by
// address and asset. Err, when set, is returned for every query.
type Oracle struct {
	mu       sync.RWMutex
	balances map[string]money.Amount
	Err      error
}

// NewOracle creates an empty oracle.
func NewOracle() *Oracle {
	return &Oracle{balances: make(map[string]money.Amount)}
}

// SetBalance records a wallet's balance for one asset.
func (o *Oracle) SetBalance(address, asset string, amount money.Amount) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.balances[address+"/"+asset] = amount
}

// Balance implements engine.BalanceOracle. Unknown wallets have a zero
// balance.
func (o *Oracle) Balance(_ context.Context, address, asset string) (money.Amount, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.Err != nil {
		return 0, o.Err
	}
	return o.balances[address+"/"+asset], nil
}

// Submitter is an engine.Submitter that counts invocations and can be
// scripted to fail. Each successful call returns a distinct reference,
// so tests can tell replayed results from fresh submissions.
type Submitter struct {
	calls int64

	// Err, when set, fails every Submit call.
	Err error
}

// Submit implements engine.Submitter.
func (s *Submitter) Submit(_ context.Context, from string, p action.Payload) (string, error) {
	n := atomic.AddInt64(&s.calls, 1)
	if s.Err != nil {
		return "", s.Err
	}
	return fmt.Sprintf("tx-%s-%s-%d", from, p.ActionType(), n), nil
}

// Calls returns how many times Submit was invoked.
func (s *Submitter) Calls() int64 {
	return atomic.LoadInt64(&s.calls)
}
