package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// DeadLetterOutput is the JSON rendering of one dead letter.
type DeadLetterOutput struct {
	ID        int64           `json:"id"`
	Key       *string         `json:"key,omitempty"`
	Reason    string          `json:"reason"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewDeadlettersCommand creates the deadletters command.
func NewDeadlettersCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "deadletters",
		Short: "List recorded dead letters",
		Long: `List dead letters, oldest first.

A dead letter records an irrecoverable failure (an unreachable balance
oracle, a rejected external submission) with enough context to diagnose
it after the fact.

Example:
  walletd deadletters --db ./walletd.db --limit 20`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			eng, st, err := adminEngine(rootOpts)
			if err != nil {
				return err
			}
			defer st.Close()

			letters, err := eng.DeadLetters(context.Background(), limit)
			if err != nil {
				return formatter.engineError(err)
			}

			out := make([]DeadLetterOutput, 0, len(letters))
			for _, dl := range letters {
				out = append(out, DeadLetterOutput{
					ID:        dl.ID,
					Key:       dl.ExecutionKey,
					Reason:    dl.Reason,
					Payload:   dl.Payload,
					CreatedAt: dl.CreatedAt,
				})
			}

			if rootOpts.Format == "json" {
				return formatter.Success(out)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%d dead letter(s)\n", len(out))
			for _, dl := range out {
				key := "-"
				if dl.Key != nil {
					key = *dl.Key
				}
				fmt.Fprintf(w, "  [%d] %s  key=%s  %s\n", dl.ID, dl.CreatedAt.Format(time.RFC3339), key, dl.Reason)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows to return")
	return cmd
}
