package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/primsh/walletd/internal/engine"
	"github.com/primsh/walletd/internal/money"
	"github.com/primsh/walletd/internal/store"
)

// PolicyOutput is the JSON rendering of one wallet policy.
type PolicyOutput struct {
	Wallet       string     `json:"wallet"`
	MaxPerTx     *string    `json:"max_per_tx,omitempty"`
	MaxPerDay    *string    `json:"max_per_day,omitempty"`
	Allowed      []string   `json:"allowed_counterparties,omitempty"`
	DailySpent   string     `json:"daily_spent"`
	DailyResetAt time.Time  `json:"daily_reset_at"`
	PauseScope   string     `json:"pause_scope,omitempty"`
	PausedAt     *time.Time `json:"paused_at,omitempty"`
}

func policyOutput(p store.Policy) PolicyOutput {
	out := PolicyOutput{
		Wallet:       p.WalletAddress,
		Allowed:      p.AllowedCounterparties,
		DailySpent:   p.DailySpent.String(),
		DailyResetAt: p.DailyResetAt,
		PauseScope:   p.PauseScope,
		PausedAt:     p.PausedAt,
	}
	if p.MaxPerTx != nil {
		s := p.MaxPerTx.String()
		out.MaxPerTx = &s
	}
	if p.MaxPerDay != nil {
		s := p.MaxPerDay.String()
		out.MaxPerDay = &s
	}
	return out
}

// NewPolicyCommand creates the policy command group.
func NewPolicyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Manage per-wallet spending policies",
	}
	cmd.AddCommand(newPolicyGetCommand(rootOpts))
	cmd.AddCommand(newPolicySetCommand(rootOpts))
	cmd.AddCommand(newPolicyApplyCommand(rootOpts))
	cmd.AddCommand(newPolicyPauseCommand(rootOpts))
	cmd.AddCommand(newPolicyResumeCommand(rootOpts))
	return cmd
}

func newPolicyGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <wallet>",
		Short: "Show a wallet's policy",
		Long: `Show a wallet's spending policy after applying the daily-window
reset. A wallet with no stored policy shows the permissive defaults.

Example:
  walletd policy get 0xabc --db ./walletd.db`,
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

			pol, err := eng.Policy(context.Background(), args[0])
			if err != nil {
				return formatter.engineError(err)
			}

			if rootOpts.Format == "json" {
				return formatter.Success(policyOutput(pol))
			}
			printPolicyText(cmd, pol)
			return nil
		},
	}
}

func printPolicyText(cmd *cobra.Command, p store.Policy) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Policy for %s\n", p.WalletAddress)
	if p.MaxPerTx != nil {
		fmt.Fprintf(w, "  Max per tx:   %s\n", p.MaxPerTx)
	} else {
		fmt.Fprintln(w, "  Max per tx:   (none)")
	}
	if p.MaxPerDay != nil {
		fmt.Fprintf(w, "  Max per day:  %s\n", p.MaxPerDay)
	} else {
		fmt.Fprintln(w, "  Max per day:  (none)")
	}
	switch {
	case p.AllowedCounterparties == nil:
		fmt.Fprintln(w, "  Allow-list:   (unrestricted)")
	case len(p.AllowedCounterparties) == 0:
		fmt.Fprintln(w, "  Allow-list:   (empty: all counterparties blocked)")
	default:
		fmt.Fprintf(w, "  Allow-list:   %s\n", strings.Join(p.AllowedCounterparties, ", "))
	}
	fmt.Fprintf(w, "  Daily spent:  %s (resets %s)\n", p.DailySpent, p.DailyResetAt.Format(time.RFC3339))
	if p.PausedAt != nil {
		fmt.Fprintf(w, "  Paused:       scope %s since %s\n", p.PauseScope, p.PausedAt.Format(time.RFC3339))
	}
}

func newPolicySetCommand(rootOpts *RootOptions) *cobra.Command {
	var maxPerTx, maxPerDay string
	var allowed []string
	var restrict bool

	cmd := &cobra.Command{
		Use:   "set <wallet>",
		Short: "Set a wallet's caps and allow-list",
		Long: `Set a wallet's spending caps and counterparty allow-list.

Omitting a cap flag removes that cap. Omitting --allow removes the
allow-list restriction; --restrict with no --allow installs an empty
allow-list, which blocks every counterparty. Changing limits mid-window
keeps the accumulated daily spend.

Examples:
  walletd policy set 0xabc --max-per-tx 50 --max-per-day 200 --db ./walletd.db
  walletd policy set 0xabc --allow 0xdef --allow 0xcafe --db ./walletd.db
  walletd policy set 0xabc --restrict --db ./walletd.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)

			var txCap, dayCap *money.Amount
			if maxPerTx != "" {
				amt, err := money.Parse(maxPerTx)
				if err != nil {
					return WrapExitError(ExitCommandError, fmt.Sprintf("invalid --max-per-tx %q", maxPerTx), err)
				}
				txCap = &amt
			}
			if maxPerDay != "" {
				amt, err := money.Parse(maxPerDay)
				if err != nil {
					return WrapExitError(ExitCommandError, fmt.Sprintf("invalid --max-per-day %q", maxPerDay), err)
				}
				dayCap = &amt
			}
			allowList := allowed
			if restrict && allowList == nil {
				allowList = []string{}
			}

			eng, st, err := adminEngine(rootOpts)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := context.Background()
			if err := eng.SetPolicyLimits(ctx, args[0], txCap, dayCap, allowList); err != nil {
				return formatter.engineError(err)
			}
			pol, err := eng.Policy(ctx, args[0])
			if err != nil {
				return formatter.engineError(err)
			}

			if rootOpts.Format == "json" {
				return formatter.Success(policyOutput(pol))
			}
			printPolicyText(cmd, pol)
			return nil
		},
	}

	cmd.Flags().StringVar(&maxPerTx, "max-per-tx", "", "per-transaction cap (empty removes it)")
	cmd.Flags().StringVar(&maxPerDay, "max-per-day", "", "daily cap (empty removes it)")
	cmd.Flags().StringArrayVar(&allowed, "allow", nil, "allowed counterparty (repeatable)")
	cmd.Flags().BoolVar(&restrict, "restrict", false, "install an empty allow-list when no --allow given")
	return cmd
}

func newPolicyApplyCommand(rootOpts *RootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply a YAML policy document",
		Long: `Apply a YAML policy document to the database.

The document is validated in full before any wallet is written, so a
bad entry rejects the whole file. Document format:

  policies:
    - wallet: "0xabc"
      max_per_tx: "50"
      max_per_day: "200"
      allowed_counterparties: ["0xdef"]

Example:
  walletd policy apply -f policies.yaml --db ./walletd.db`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)

			changes, err := LoadPolicyFile(file)
			if err != nil {
				return WrapExitError(ExitCommandError, "policy document rejected", err)
			}

			eng, st, err := adminEngine(rootOpts)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := context.Background()
			for _, ch := range changes {
				if err := eng.SetPolicyLimits(ctx, ch.Wallet, ch.MaxPerTx, ch.MaxPerDay, ch.Allowed); err != nil {
					return formatter.engineError(err)
				}
				formatter.VerboseLog("applied policy for %s", ch.Wallet)
			}

			if rootOpts.Format == "json" {
				return formatter.Success(map[string]int{"applied": len(changes)})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d wallet policies\n", len(changes))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "policy document path (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newPolicyPauseCommand(rootOpts *RootOptions) *cobra.Command {
	var scope string

	cmd := &cobra.Command{
		Use:   "pause <wallet>",
		Short: "Pause a single wallet",
		Long: `Pause one wallet without tripping the global breaker.

Paused wallets reject new work with the same caller-visible behavior as
a global pause; recorded outcomes are still served.

Examples:
  walletd policy pause 0xabc --db ./walletd.db
  walletd policy pause 0xabc --scope send --db ./walletd.db`,
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

			if err := eng.PauseWallet(context.Background(), args[0], scope); err != nil {
				return WrapExitError(ExitCommandError, "pause failed", err)
			}
			if rootOpts.Format == "json" {
				return formatter.Success(map[string]string{"wallet": args[0], "scope": scope, "state": "paused"})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wallet %s paused (scope %s)\n", args[0], scope)
			return nil
		},
	}

	cmd.Flags().StringVar(&scope, "scope", engine.ScopeAll, "scope to pause")
	return cmd
}

func newPolicyResumeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "resume <wallet>",
		Short:         "Resume a paused wallet",
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

			if err := eng.ResumeWallet(context.Background(), args[0]); err != nil {
				return WrapExitError(ExitCommandError, "resume failed", err)
			}
			if rootOpts.Format == "json" {
				return formatter.Success(map[string]string{"wallet": args[0], "state": "resumed"})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wallet %s resumed\n", args[0])
			return nil
		},
	}
}
