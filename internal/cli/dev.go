package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/primsh/walletd/internal/action"
	"github.com/primsh/walletd/internal/engine"
	"github.com/primsh/walletd/internal/money"
	"github.com/primsh/walletd/internal/store"
)

// The CLI runs the engine in-process against loopback collaborators:
// any wallet resolves to the invoking owner, balances come from a flag,
// and the submitter mints a local reference instead of broadcasting.
// Real deployments supply networked implementations of the same
// interfaces; the ledger, policies and breaker behave identically.

type devRegistry struct {
	owner string
}

func (r devRegistry) Lookup(_ context.Context, address string) (engine.WalletInfo, error) {
	if address == "" {
		return engine.WalletInfo{}, engine.ErrWalletNotFound
	}
	return engine.WalletInfo{OwnerID: r.owner, Chain: "local"}, nil
}

type devOracle struct {
	balance money.Amount
}

func (o devOracle) Balance(_ context.Context, _, _ string) (money.Amount, error) {
	return o.balance, nil
}

type devSubmitter struct {
	fail bool
}

func (s devSubmitter) Submit(_ context.Context, _ string, _ action.Payload) (string, error) {
	if s.fail {
		return "", errors.New("simulated submit failure")
	}
	return "local-" + uuid.NewString(), nil
}

// openStore opens the database named by the global --db flag.
func openStore(opts *RootOptions) (*store.Store, error) {
	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to open database %s", opts.Database), err)
	}
	return st, nil
}

// openEngine assembles an in-process engine over the database with
// loopback collaborators.
func openEngine(opts *RootOptions, owner, balance string, failSubmit bool) (*engine.Engine, *store.Store, error) {
	st, err := openStore(opts)
	if err != nil {
		return nil, nil, err
	}
	bal, err := money.Parse(balance)
	if err != nil {
		st.Close()
		return nil, nil, WrapExitError(ExitCommandError, fmt.Sprintf("invalid --balance %q", balance), err)
	}
	eng := engine.New(st, devRegistry{owner: owner}, devOracle{balance: bal}, devSubmitter{fail: failSubmit})
	return eng, st, nil
}

// adminEngine assembles an engine for commands that never submit. The
// collaborators are present but unreachable from admin operations.
func adminEngine(opts *RootOptions) (*engine.Engine, *store.Store, error) {
	return openEngine(opts, "", "0", true)
}
