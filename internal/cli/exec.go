package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/primsh/walletd/internal/store"
)

// ExecutionOutput is the JSON rendering of one ledger row.
type ExecutionOutput struct {
	Key         string          `json:"key"`
	Wallet      string          `json:"wallet"`
	ActionType  string          `json:"action_type"`
	PayloadHash string          `json:"payload_hash"`
	Status      string          `json:"status"`
	Result      json.RawMessage `json:"result,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// EventOutput is the JSON rendering of one journal entry.
type EventOutput struct {
	ID        int64           `json:"id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func executionOutput(ex store.Execution) ExecutionOutput {
	return ExecutionOutput{
		Key:         ex.IdempotencyKey,
		Wallet:      ex.WalletAddress,
		ActionType:  ex.ActionType,
		PayloadHash: ex.PayloadHash,
		Status:      string(ex.Status),
		Result:      ex.Result,
		CreatedAt:   ex.CreatedAt,
		UpdatedAt:   ex.UpdatedAt,
	}
}

// NewExecCommand creates the exec command group.
func NewExecCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec",
		Short: "Inspect the execution ledger",
	}
	cmd.AddCommand(newExecShowCommand(rootOpts))
	cmd.AddCommand(newExecTraceCommand(rootOpts))
	cmd.AddCommand(newExecListCommand(rootOpts))
	return cmd
}

func newExecShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <idempotency-key>",
		Short: "Show one ledger row",
		Long: `Show one execution ledger row by idempotency key.

Example:
  walletd exec show inv-42 --db ./walletd.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			eng, st, err := adminEngine(rootOpts)
			if err != nil {
				return err
			}
			defer st.Close()

			ex, err := eng.Execution(context.Background(), args[0])
			if err != nil {
				return formatter.engineError(err)
			}

			if rootOpts.Format == "json" {
				return formatter.Success(executionOutput(ex))
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Execution %s\n", ex.IdempotencyKey)
			fmt.Fprintf(w, "  Wallet:  %s\n", ex.WalletAddress)
			fmt.Fprintf(w, "  Action:  %s\n", ex.ActionType)
			fmt.Fprintf(w, "  Status:  %s\n", ex.Status)
			fmt.Fprintf(w, "  Hash:    %s\n", ex.PayloadHash)
			if ex.Result != nil {
				fmt.Fprintf(w, "  Result:  %s\n", ex.Result)
			}
			fmt.Fprintf(w, "  Created: %s\n", ex.CreatedAt.Format(time.RFC3339))
			fmt.Fprintf(w, "  Updated: %s\n", ex.UpdatedAt.Format(time.RFC3339))
			return nil
		},
	}
}

func newExecTraceCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "trace <idempotency-key>",
		Short: "Show the journal for one execution",
		Long: `Show the append-only journal for one execution, oldest first.

The journal records every observable step of the attempt: validation,
the balance check, the external submission and its outcome.

Example:
  walletd exec trace inv-42 --db ./walletd.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			eng, st, err := adminEngine(rootOpts)
			if err != nil {
				return err
			}
			defer st.Close()

			events, err := eng.Trace(context.Background(), args[0])
			if err != nil {
				return formatter.engineError(err)
			}

			out := make([]EventOutput, 0, len(events))
			for _, ev := range events {
				out = append(out, EventOutput{
					ID:        ev.ID,
					EventType: ev.EventType,
					Payload:   ev.Payload,
					CreatedAt: ev.CreatedAt,
				})
			}

			if rootOpts.Format == "json" {
				return formatter.Success(out)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Journal for %s (%d events)\n", args[0], len(out))
			for _, ev := range out {
				fmt.Fprintf(w, "  [%d] %s %s\n", ev.ID, ev.CreatedAt.Format(time.RFC3339), ev.EventType)
				if ev.Payload != nil {
					fmt.Fprintf(w, "      %s\n", ev.Payload)
				}
			}
			return nil
		},
	}
}

func newExecListCommand(rootOpts *RootOptions) *cobra.Command {
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ledger rows by status",
		Long: `List execution ledger rows in a given status, oldest first.

Listing running executions is the triage path for work interrupted by a
crash between claim and completion.

Examples:
  walletd exec list --status running --db ./walletd.db
  walletd exec list --status failed --limit 20 --db ./walletd.db`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)

			st := store.ExecutionStatus(status)
			switch st {
			case store.StatusQueued, store.StatusRunning, store.StatusSucceeded, store.StatusFailed, store.StatusAborted:
			default:
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid --status %q", status))
			}

			eng, dbs, err := adminEngine(rootOpts)
			if err != nil {
				return err
			}
			defer dbs.Close()

			rows, err := eng.ListExecutions(context.Background(), st, limit)
			if err != nil {
				return formatter.engineError(err)
			}

			out := make([]ExecutionOutput, 0, len(rows))
			for _, ex := range rows {
				out = append(out, executionOutput(ex))
			}

			if rootOpts.Format == "json" {
				return formatter.Success(out)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%d execution(s) in status %s\n", len(out), status)
			for _, ex := range out {
				fmt.Fprintf(w, "  %s  %s  %s  %s\n", ex.Key, ex.Wallet, ex.ActionType, ex.UpdatedAt.Format(time.RFC3339))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "running", "status to list (queued|running|succeeded|failed|aborted)")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows to return")
	return cmd
}
