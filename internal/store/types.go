package store

import (
	"time"

	"github.com/primsh/walletd/internal/money"
)

// ExecutionStatus is the ledger state machine's state.
//
// Transitions: queued -> running -> {succeeded, failed, aborted}, plus
// queued -> aborted for pre-claim rejection. No edges leave a terminal
// state.
type ExecutionStatus string

const (
	StatusQueued    ExecutionStatus = "queued"
	StatusRunning   ExecutionStatus = "running"
	StatusSucceeded ExecutionStatus = "succeeded"
	StatusFailed    ExecutionStatus = "failed"
	StatusAborted   ExecutionStatus = "aborted"
)

// Terminal reports whether the status admits no further transitions.
func (s ExecutionStatus) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusAborted:
		return true
	default:
		return false
	}
}

// Execution is one ledger row. Immutable except for Status, Result and
// UpdatedAt.
type Execution struct {
	IdempotencyKey string
	WalletAddress  string
	ActionType     string
	PayloadHash    string
	Status         ExecutionStatus
	Result         []byte // serialized action.Result; nil until terminal
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Event is one journal entry. Append-only; ID is strictly increasing in
// insertion order.
type Event struct {
	ID           int64
	ExecutionKey string
	EventType    string
	Payload      []byte // optional structured payload; nil when absent
	CreatedAt    time.Time
}

// DeadLetter records an irrecoverable failure for operator triage,
// independent of the ledger's own terminal-state semantics.
type DeadLetter struct {
	ID           int64
	ExecutionKey *string // nil when the failure preceded any ledger row
	Reason       string
	Payload      []byte
	CreatedAt    time.Time
}

// Policy is one wallet's spending policy row.
//
// Invariant: DailySpent reflects only successfully completed executions
// since the last reset; the engine increments it after a successful
// external submit and never speculatively.
type Policy struct {
	WalletAddress         string
	MaxPerTx              *money.Amount // nil = no per-transaction cap
	MaxPerDay             *money.Amount // nil = no daily cap
	AllowedCounterparties []string      // nil = no allow-list restriction
	DailySpent            money.Amount
	DailyResetAt          time.Time
	PauseScope            string     // "" when the wallet is not paused
	PausedAt              *time.Time // nil when the wallet is not paused
}

// ScopeState is one circuit-breaker row.
type ScopeState struct {
	Scope     string
	PausedAt  *time.Time // nil = not paused
	UpdatedAt time.Time
}
