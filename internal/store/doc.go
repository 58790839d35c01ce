// Package store provides SQLite-backed durable storage for the wallet
// execution engine.
//
// The store owns five independent collections:
//   - executions: the execution ledger, keyed by idempotency key
//   - execution_events: append-only per-execution journal
//   - dead_letters: append-only record of irrecoverable failures
//   - policies: per-wallet spending policy and daily spend counter
//   - circuit_breaker: per-scope pause state
//
// # Critical Patterns
//
// Single-row atomic writes
//   - Every mutation is one conditional INSERT or UPDATE; no cross-table
//     transaction is required, and none is used.
//
// Claim by conditional transition
//   - TryClaim is UPDATE ... WHERE status = 'queued'; RowsAffected
//     decides the winner. This works across processes sharing the
//     database file, unlike an in-process lock.
//
// Insert idempotency
//   - executions uses INSERT ... ON CONFLICT(idempotency_key) DO NOTHING;
//     the row's existence is the idempotency guarantee and rows are never
//     deleted.
//
// Counter updates
//   - daily_spent is incremented with UPDATE ... SET daily_spent =
//     daily_spent + ?, never read-modify-write.
//
// Journal ordering
//   - execution_events is ordered by its AUTOINCREMENT id; reads always
//     ORDER BY id ASC, so insertion order is the read order.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
package store
