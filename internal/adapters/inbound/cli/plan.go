package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/repoforge/repoforge/internal/adapters/outbound/tui"
)

func newPlanCmd() *cobra.Command {
	var (
		path       string
		jsonOutput bool
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Build the transformation plan without executing it",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps(path, verbose)
			if err != nil {
				return err
			}
			p, result, err := d.plans.Plan(cmd.Context(), path)
			if err != nil {
				return fmt.Errorf("planning failed: %w", err)
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(p)
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderFindings(result))
			fmt.Fprintln(cmd.OutOrStdout())
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderPlan(p))
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", ".", "Repository path to analyze")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Verbose logging")
	return cmd
}
