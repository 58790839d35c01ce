// Package engine implements the idempotent, policy-gated execution
// engine for a wallet's outbound actions.
//
// The engine composes the execution ledger, the spending-policy engine,
// the circuit breaker, the event journal and the dead-letter recorder
// (all persisted by internal/store) with three external collaborators
// (wallet registry, balance oracle, external submitter) into one
// request-handling algorithm, Submit.
//
// # Execution model
//
// Request-scoped and synchronous: no background workers, each call runs
// to completion or failure within the caller's context. Per idempotency
// key, at most one invocation proceeds past the claim; there is no
// ordering guarantee across distinct keys. The only long-blocking step
// is the external submit, which may involve chain confirmation latency.
//
// # Failure semantics
//
// Validation, breaker and policy rejections are synchronous and leave no
// ledger trace. External-submit failures are durably recorded (ledger
// failed + dead letter) before being surfaced, because the attempt
// itself must remain auditable. The engine never retries the external
// submit; resubmission is the caller's responsibility via the same
// idempotency key, which replays the cached terminal result.
//
// A crash between claim and completion leaves a running row with no
// built-in reclaim; ListExecutions(StatusRunning) exists for operator
// triage of such rows.
package engine
