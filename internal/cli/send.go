package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/primsh/walletd/internal/action"
	"github.com/primsh/walletd/internal/engine"
	"github.com/primsh/walletd/internal/money"
)

// SubmitOptions holds the flags shared by send and swap.
type SubmitOptions struct {
	*RootOptions
	Key     string
	Owner   string
	Wallet  string
	Balance string
	Fail    bool
}

// SubmitOutput is the JSON payload for a completed submission.
type SubmitOutput struct {
	Key      string `json:"key"`
	Status   string `json:"status"`
	Replayed bool   `json:"replayed"`
	Ref      string `json:"ref,omitempty"`
	Code     string `json:"code,omitempty"`
	Message  string `json:"message,omitempty"`
}

func addSubmitFlags(cmd *cobra.Command, opts *SubmitOptions) {
	cmd.Flags().StringVar(&opts.Key, "key", "", "idempotency key (required)")
	_ = cmd.MarkFlagRequired("key")
	cmd.Flags().StringVar(&opts.Wallet, "wallet", "", "source wallet address (required)")
	_ = cmd.MarkFlagRequired("wallet")
	cmd.Flags().StringVar(&opts.Owner, "owner", "dev", "owner identity for the ownership check")
	cmd.Flags().StringVar(&opts.Balance, "balance", "1000000", "loopback oracle balance")
	cmd.Flags().BoolVar(&opts.Fail, "fail-submit", false, "make the loopback submitter fail")
}

// NewSendCommand creates the send command.
func NewSendCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SubmitOptions{RootOptions: rootOpts}
	var to, asset, amount string

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Submit a token transfer through the execution engine",
		Long: `Submit a token transfer through the in-process execution engine.

The engine runs against loopback collaborators, so nothing leaves the
machine, but every ledger, policy, breaker and journal rule applies.
Resubmitting with the same --key replays the recorded outcome.

Examples:
  walletd send --db ./walletd.db --key inv-42 --wallet 0xabc --to 0xdef --asset USDC --amount 25
  walletd send --db ./walletd.db --key inv-42 --wallet 0xabc --to 0xdef --asset USDC --amount 25 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			amt, err := money.Parse(amount)
			if err != nil {
				return WrapExitError(ExitCommandError, fmt.Sprintf("invalid --amount %q", amount), err)
			}
			return runSubmit(opts, cmd, action.Send{To: to, AssetSymbol: asset, Amount: amt})
		},
	}

	addSubmitFlags(cmd, opts)
	cmd.Flags().StringVar(&to, "to", "", "destination address (required)")
	_ = cmd.MarkFlagRequired("to")
	cmd.Flags().StringVar(&asset, "asset", "", "asset symbol (required)")
	_ = cmd.MarkFlagRequired("asset")
	cmd.Flags().StringVar(&amount, "amount", "", "amount to send (required)")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

// NewSwapCommand creates the swap command.
func NewSwapCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SubmitOptions{RootOptions: rootOpts}
	var sell, buy, amount, minReceive string

	cmd := &cobra.Command{
		Use:   "swap",
		Short: "Submit an asset swap through the execution engine",
		Long: `Submit an asset swap through the in-process execution engine.

Example:
  walletd swap --db ./walletd.db --key inv-43 --wallet 0xabc --sell ETH --buy USDC --amount 0.5`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			amt, err := money.Parse(amount)
			if err != nil {
				return WrapExitError(ExitCommandError, fmt.Sprintf("invalid --amount %q", amount), err)
			}
			min, err := money.Parse(minReceive)
			if err != nil {
				return WrapExitError(ExitCommandError, fmt.Sprintf("invalid --min-receive %q", minReceive), err)
			}
			return runSubmit(opts, cmd, action.Swap{SellAsset: sell, BuyAsset: buy, Amount: amt, MinReceive: min})
		},
	}

	addSubmitFlags(cmd, opts)
	cmd.Flags().StringVar(&sell, "sell", "", "asset to sell (required)")
	_ = cmd.MarkFlagRequired("sell")
	cmd.Flags().StringVar(&buy, "buy", "", "asset to buy (required)")
	_ = cmd.MarkFlagRequired("buy")
	cmd.Flags().StringVar(&amount, "amount", "", "amount of the sell asset (required)")
	_ = cmd.MarkFlagRequired("amount")
	cmd.Flags().StringVar(&minReceive, "min-receive", "0", "minimum acceptable amount of the buy asset")

	return cmd
}

func runSubmit(opts *SubmitOptions, cmd *cobra.Command, payload action.Payload) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	eng, st, err := openEngine(opts.RootOptions, opts.Owner, opts.Balance, opts.Fail)
	if err != nil {
		return err
	}
	defer st.Close()

	res, err := eng.Submit(context.Background(), engine.SubmitRequest{
		OwnerID:        opts.Owner,
		WalletAddress:  opts.Wallet,
		IdempotencyKey: opts.Key,
		Payload:        payload,
	})
	if err != nil {
		return formatter.engineError(err)
	}

	out := SubmitOutput{
		Key:      opts.Key,
		Status:   string(res.Status),
		Replayed: res.Replayed,
	}
	if res.Result != nil {
		out.Ref = res.Result.Ref
		out.Code = res.Result.Code
		out.Message = res.Result.Message
	}

	if opts.Format == "json" {
		return formatter.Success(out)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Execution %s: %s\n", out.Key, out.Status)
	if out.Replayed {
		fmt.Fprintln(w, "  (replayed from ledger)")
	}
	if out.Ref != "" {
		fmt.Fprintf(w, "  Ref: %s\n", out.Ref)
	}
	if out.Code != "" {
		fmt.Fprintf(w, "  Error: [%s] %s\n", out.Code, out.Message)
	}
	return nil
}

// newFormatter builds the output formatter for one command invocation.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
