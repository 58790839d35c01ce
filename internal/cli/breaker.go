package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/primsh/walletd/internal/engine"
)

// ScopeStateOutput is the JSON rendering of one breaker scope.
type ScopeStateOutput struct {
	Scope    string     `json:"scope"`
	Paused   bool       `json:"paused"`
	PausedAt *time.Time `json:"paused_at,omitempty"`
}

// NewPauseCommand creates the pause command.
func NewPauseCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pause <scope>",
		Short: "Trip the circuit breaker for a scope",
		Long: fmt.Sprintf(`Trip the circuit breaker for a scope.

Pausing %q blocks every action type regardless of per-scope state.
Recorded outcomes are still served while paused; only new work is
rejected. Pausing is idempotent.

Scopes: %s`, engine.ScopeAll, strings.Join(engine.Scopes, ", ")),
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBreakerToggle(rootOpts, cmd, args[0], true)
		},
	}
}

// NewResumeCommand creates the resume command.
func NewResumeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resume <scope>",
		Short: "Clear the circuit breaker for a scope",
		Long: fmt.Sprintf(`Clear the circuit breaker for one scope and nothing else.

Resuming %q does not clear scoped pauses set independently.

Scopes: %s`, engine.ScopeAll, strings.Join(engine.Scopes, ", ")),
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBreakerToggle(rootOpts, cmd, args[0], false)
		},
	}
}

func runBreakerToggle(rootOpts *RootOptions, cmd *cobra.Command, scope string, pause bool) error {
	formatter := newFormatter(rootOpts, cmd)
	eng, st, err := adminEngine(rootOpts)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	if pause {
		err = eng.Pause(ctx, scope)
	} else {
		err = eng.Resume(ctx, scope)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "breaker update failed", err)
	}

	verb := "resumed"
	if pause {
		verb = "paused"
	}
	if rootOpts.Format == "json" {
		return formatter.Success(map[string]string{"scope": scope, "state": verb})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Scope %s %s\n", scope, verb)
	return nil
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the circuit breaker truth table",
		Long: `Show the pause state of every breaker scope.

Example:
  walletd status --db ./walletd.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			eng, st, err := adminEngine(rootOpts)
			if err != nil {
				return err
			}
			defer st.Close()

			states, err := eng.BreakerState(context.Background())
			if err != nil {
				return formatter.engineError(err)
			}

			out := make([]ScopeStateOutput, 0, len(states))
			for _, s := range states {
				out = append(out, ScopeStateOutput{
					Scope:    s.Scope,
					Paused:   s.PausedAt != nil,
					PausedAt: s.PausedAt,
				})
			}

			if rootOpts.Format == "json" {
				return formatter.Success(out)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, "Circuit breaker")
			for _, s := range out {
				if s.Paused {
					fmt.Fprintf(w, "  %-5s paused since %s\n", s.Scope, s.PausedAt.Format(time.RFC3339))
				} else {
					fmt.Fprintf(w, "  %-5s active\n", s.Scope)
				}
			}
			return nil
		},
	}
}
