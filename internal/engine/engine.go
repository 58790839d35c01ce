package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/primsh/walletd/internal/action"
	"github.com/primsh/walletd/internal/store"
)

// Journal event types, in the order a successful execution emits them.
const (
	EventValidated      = "validated"
	EventBalanceChecked = "balance_checked"
	EventTxSent         = "tx_sent"
	EventTxConfirmed    = "tx_confirmed"
	EventTxFailed       = "tx_failed"
	EventAborted        = "aborted"
)

// Engine is the execution engine. Safe for concurrent use.
type Engine struct {
	store     *store.Store
	registry  WalletRegistry
	oracle    BalanceOracle
	submitter Submitter
	clock     Clock
	log       *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the wall clock, for tests.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New assembles an engine around a store and its three external
// collaborators.
func New(st *store.Store, registry WalletRegistry, oracle BalanceOracle, submitter Submitter, opts ...Option) *Engine {
	e := &Engine{
		store:     st,
		registry:  registry,
		oracle:    oracle,
		submitter: submitter,
		clock:     WallClock{},
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SubmitRequest is one caller-initiated execution attempt.
type SubmitRequest struct {
	OwnerID        string
	WalletAddress  string
	IdempotencyKey string
	Payload        action.Payload
}

// SubmitResult is the outcome of a Submit call. Replayed is true when
// the response was served from an earlier attempt with the same key
// rather than from work done by this call.
type SubmitResult struct {
	Status   store.ExecutionStatus
	Result   *action.Result
	Replayed bool
}

// Submit runs one execution attempt end to end.
//
// Rejections before the ledger insert (validation, ownership, breaker,
// policy) are synchronous errors that leave no ledger row. After the
// insert, exactly one invocation per key wins the claim; losers and
// repeat callers observe the winner's state. External-submit failures
// are recorded in the ledger and the dead-letter queue before being
// returned.
func (e *Engine) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if req.IdempotencyKey == "" {
		return nil, newError(CodeInvalidRequest, "", req.WalletAddress, "idempotency key is required")
	}
	if req.WalletAddress == "" {
		return nil, newError(CodeInvalidRequest, req.IdempotencyKey, "", "wallet address is required")
	}
	if req.Payload == nil {
		return nil, newError(CodeInvalidRequest, req.IdempotencyKey, req.WalletAddress, "payload is required")
	}
	if err := req.Payload.Validate(); err != nil {
		return nil, newError(CodeInvalidRequest, req.IdempotencyKey, req.WalletAddress, "invalid payload: %v", err)
	}

	info, err := e.registry.Lookup(ctx, req.WalletAddress)
	if err == ErrWalletNotFound {
		return nil, newError(CodeNotFound, req.IdempotencyKey, req.WalletAddress, "wallet %s is not registered", req.WalletAddress)
	}
	if err != nil {
		return nil, fmt.Errorf("wallet lookup %q: %w", req.WalletAddress, err)
	}
	if info.Deactivated {
		return nil, newError(CodeForbidden, req.IdempotencyKey, req.WalletAddress, "wallet %s is deactivated", req.WalletAddress)
	}
	if info.OwnerID != req.OwnerID {
		return nil, newError(CodeForbidden, req.IdempotencyKey, req.WalletAddress, "wallet %s is not owned by caller", req.WalletAddress)
	}

	hash, err := action.Digest(req.Payload)
	if err != nil {
		return nil, newError(CodeInvalidRequest, req.IdempotencyKey, req.WalletAddress, "payload digest: %v", err)
	}

	// Replay check before gating: an already-recorded execution answers
	// from the ledger even while the breaker is tripped.
	if existing, err := e.store.GetExecution(ctx, req.IdempotencyKey); err == nil {
		return e.replay(existing, hash)
	} else if err != store.ErrNotFound {
		return nil, fmt.Errorf("execution lookup %q: %w", req.IdempotencyKey, err)
	}

	scope := scopeForAction(req.Payload.ActionType())
	paused, err := e.isPaused(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("breaker check: %w", err)
	}
	if paused {
		return nil, newError(CodeServicePaused, req.IdempotencyKey, req.WalletAddress, "service is paused for scope %q", scope)
	}

	if err := e.checkPolicy(ctx, req.WalletAddress, req.Payload); err != nil {
		if ee, ok := err.(*Error); ok {
			ee.Key = req.IdempotencyKey
		}
		return nil, err
	}

	now := e.clock.Now()
	inserted, err := e.store.InsertExecution(ctx, req.IdempotencyKey, req.WalletAddress, string(req.Payload.ActionType()), hash, now)
	if err != nil {
		return nil, fmt.Errorf("insert execution %q: %w", req.IdempotencyKey, err)
	}
	if !inserted {
		// Lost the insert race. The ledger row is authoritative.
		existing, err := e.store.GetExecution(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("execution lookup %q: %w", req.IdempotencyKey, err)
		}
		return e.replay(existing, hash)
	}

	e.journal(ctx, req.IdempotencyKey, EventValidated, map[string]any{
		"attempt":      attemptToken(),
		"payload_hash": hash,
	})

	claimed, err := e.store.TryClaim(ctx, req.IdempotencyKey, e.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("claim %q: %w", req.IdempotencyKey, err)
	}
	if !claimed {
		existing, err := e.store.GetExecution(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("execution lookup %q: %w", req.IdempotencyKey, err)
		}
		return e.replay(existing, hash)
	}

	return e.execute(ctx, req, hash)
}

// execute runs the claimed execution: balance check, external submit,
// terminal bookkeeping. Only the claim winner reaches this.
func (e *Engine) execute(ctx context.Context, req SubmitRequest, hash string) (*SubmitResult, error) {
	key := req.IdempotencyKey
	asset := req.Payload.Asset()
	spend := req.Payload.Spend()

	balance, err := e.oracle.Balance(ctx, req.WalletAddress, asset)
	if err != nil {
		e.abort(ctx, key, action.Failed(string(CodeExternalSubmit), "balance oracle unavailable"))
		e.deadLetter(ctx, &key, fmt.Sprintf("balance oracle: %v", err), req)
		return nil, &Error{
			Code: CodeExternalSubmit, Key: key, Wallet: req.WalletAddress,
			Message: "balance oracle unavailable", Err: err,
		}
	}
	e.journal(ctx, key, EventBalanceChecked, map[string]any{
		"asset":   asset,
		"balance": balance.String(),
	})
	if balance.Cmp(spend) < 0 {
		e.abort(ctx, key, action.Failed(string(CodeInvalidRequest), "insufficient balance"))
		return nil, newError(CodeInvalidRequest, key, req.WalletAddress,
			"balance %s is below spend %s for %s", balance, spend, asset)
	}

	ref, err := e.submitter.Submit(ctx, req.WalletAddress, req.Payload)
	if err != nil {
		e.fail(ctx, key, action.Failed(string(CodeExternalSubmit), err.Error()))
		e.deadLetter(ctx, &key, fmt.Sprintf("external submit: %v", err), req)
		e.log.Error("external submit failed", "key", key, "wallet", req.WalletAddress, "error", err)
		return nil, &Error{
			Code: CodeExternalSubmit, Key: key, Wallet: req.WalletAddress,
			Message: "external submit failed", Err: err,
		}
	}

	res := action.Submitted(ref)
	raw, err := action.MarshalResult(res)
	if err != nil {
		return nil, fmt.Errorf("marshal result %q: %w", key, err)
	}
	if err := e.store.CompleteExecution(ctx, key, store.StatusSucceeded, raw, e.clock.Now()); err != nil {
		// The side effect already happened; surfacing an error here
		// would invite a retry against a ledger row it cannot fix.
		e.log.Error("complete after submit failed", "key", key, "error", err)
	}
	e.journal(ctx, key, EventTxSent, map[string]any{"ref": ref})
	e.journal(ctx, key, EventTxConfirmed, nil)
	if err := e.recordSpend(ctx, req.WalletAddress, spend); err != nil {
		e.log.Error("record spend failed", "key", key, "wallet", req.WalletAddress, "error", err)
	}

	e.log.Info("execution succeeded", "key", key, "wallet", req.WalletAddress, "ref", ref)
	return &SubmitResult{Status: store.StatusSucceeded, Result: &res}, nil
}

// replay serves a repeat request for an existing ledger row. A payload
// hash mismatch means key reuse, which is always a conflict.
func (e *Engine) replay(existing store.Execution, hash string) (*SubmitResult, error) {
	if existing.PayloadHash != hash {
		return nil, newError(CodeDuplicateRequest, existing.IdempotencyKey, existing.WalletAddress,
			"idempotency key was already used with a different payload")
	}
	out := &SubmitResult{Status: existing.Status, Replayed: true}
	if existing.Result != nil {
		res, err := action.UnmarshalResult(existing.Result)
		if err != nil {
			return nil, fmt.Errorf("stored result %q: %w", existing.IdempotencyKey, err)
		}
		out.Result = &res
	}
	return out, nil
}

// fail moves a running execution to failed with a stored result.
func (e *Engine) fail(ctx context.Context, key string, res action.Result) {
	raw, err := action.MarshalResult(res)
	if err != nil {
		e.log.Error("marshal failure result", "key", key, "error", err)
		return
	}
	if err := e.store.CompleteExecution(ctx, key, store.StatusFailed, raw, e.clock.Now()); err != nil {
		e.log.Error("mark failed", "key", key, "error", err)
	}
	e.journal(ctx, key, EventTxFailed, map[string]any{"code": res.Code, "message": res.Message})
}

// abort moves an execution to aborted before any external side effect.
func (e *Engine) abort(ctx context.Context, key string, res action.Result) {
	raw, err := action.MarshalResult(res)
	if err != nil {
		e.log.Error("marshal abort result", "key", key, "error", err)
		return
	}
	if err := e.store.MarkAborted(ctx, key, raw, e.clock.Now()); err != nil {
		e.log.Error("mark aborted", "key", key, "error", err)
	}
	e.journal(ctx, key, EventAborted, map[string]any{"code": res.Code, "message": res.Message})
}

// journal appends an event, logging instead of failing: the journal is
// diagnostic and must never change an execution's outcome.
func (e *Engine) journal(ctx context.Context, key, eventType string, fields map[string]any) {
	var payload []byte
	if fields != nil {
		var err error
		payload, err = json.Marshal(fields)
		if err != nil {
			e.log.Error("marshal journal payload", "key", key, "event", eventType, "error", err)
			return
		}
	}
	if err := e.store.AppendEvent(ctx, key, eventType, payload, e.clock.Now()); err != nil {
		e.log.Error("append journal event", "key", key, "event", eventType, "error", err)
	}
}

// deadLetter records an irrecoverable failure for operator triage.
func (e *Engine) deadLetter(ctx context.Context, key *string, reason string, req SubmitRequest) {
	payload, err := action.MarshalPayload(req.Payload)
	if err != nil {
		payload = nil
	}
	if err := e.store.InsertDeadLetter(ctx, key, reason, payload, e.clock.Now()); err != nil {
		e.log.Error("insert dead letter", "reason", reason, "error", err)
	}
}

// attemptToken returns a sortable unique token identifying one engine
// attempt in the journal.
func attemptToken() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Execution returns one ledger row by idempotency key.
func (e *Engine) Execution(ctx context.Context, key string) (store.Execution, error) {
	ex, err := e.store.GetExecution(ctx, key)
	if err == store.ErrNotFound {
		return store.Execution{}, newError(CodeNotFound, key, "", "no execution with key %s", key)
	}
	if err != nil {
		return store.Execution{}, fmt.Errorf("execution %q: %w", key, err)
	}
	return ex, nil
}

// Trace returns the full journal for one execution, oldest first.
func (e *Engine) Trace(ctx context.Context, key string) ([]store.Event, error) {
	if _, err := e.Execution(ctx, key); err != nil {
		return nil, err
	}
	events, err := e.store.EventsByExecution(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("trace %q: %w", key, err)
	}
	return events, nil
}

// ListExecutions returns ledger rows in a given status, oldest first.
func (e *Engine) ListExecutions(ctx context.Context, status store.ExecutionStatus, limit int) ([]store.Execution, error) {
	rows, err := e.store.ListExecutionsByStatus(ctx, status, limit)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	return rows, nil
}

// DeadLetters returns recorded dead letters, oldest first.
func (e *Engine) DeadLetters(ctx context.Context, limit int) ([]store.DeadLetter, error) {
	rows, err := e.store.ListDeadLetters(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("dead letters: %w", err)
	}
	return rows, nil
}
