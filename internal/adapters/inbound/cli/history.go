package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/repoforge/repoforge/internal/adapters/outbound/approvals"
	"github.com/repoforge/repoforge/internal/adapters/outbound/tracker"
)

func newHistoryCmd() *cobra.Command {
	var (
		path       string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show applied transformations and approval decisions",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := tracker.New(path).Entries()
			if err != nil {
				return fmt.Errorf("reading idempotency log: %w", err)
			}
			records, err := approvals.New(path).Load()
			if err != nil {
				return fmt.Errorf("reading approval log: %w", err)
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"applied":   entries,
					"approvals": records,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Applied transformations (%d):\n", len(entries))
			for _, e := range entries {
				fmt.Fprintf(out, "  %s  %s  %.12s -> %.12s\n",
					e.RecordedAt.Format("2006-01-02 15:04:05"), e.Phase, e.PreHash, e.PostHash)
			}
			fmt.Fprintf(out, "\nApproval decisions (%d):\n", len(records))
			for _, r := range records {
				fmt.Fprintf(out, "  %s  plan %.8s  %s", r.CreatedAt.Format("2006-01-02 15:04:05"), r.PlanID, r.Decision)
				if r.Reason != "" {
					fmt.Fprintf(out, "  (%s)", r.Reason)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", ".", "Repository path")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
