package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/primsh/walletd/internal/config"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	Database string
	Verbose  bool
	Format   string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the walletd CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	defaultDB := "walletd.db"
	if cfg, err := config.Load(); err == nil {
		defaultDB = cfg.DBPath
	}

	cmd := &cobra.Command{
		Use:   "walletd",
		Short: "walletd - idempotent wallet execution engine",
		Long:  "Administer and exercise a policy-gated, exactly-once wallet execution ledger.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.Database, "db", defaultDB, "path to SQLite database")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	// Add subcommands
	cmd.AddCommand(NewSendCommand(opts))
	cmd.AddCommand(NewSwapCommand(opts))
	cmd.AddCommand(NewExecCommand(opts))
	cmd.AddCommand(NewPolicyCommand(opts))
	cmd.AddCommand(NewPauseCommand(opts))
	cmd.AddCommand(NewResumeCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewDeadlettersCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
