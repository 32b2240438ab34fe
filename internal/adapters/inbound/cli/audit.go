package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/repoforge/repoforge/internal/adapters/outbound/tui"
	"github.com/repoforge/repoforge/internal/domain"
)

func newAuditCmd() *cobra.Command {
	var (
		path       string
		jsonOutput bool
		verbose    bool
		ciMode     bool
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Audit the repository against the professionalization baseline",
		Long:  "Runs all read-only checks (secrets, stale references, version mismatches, structure, tests) and prints the finding set. Never mutates the repository.",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps(path, verbose)
			if err != nil {
				return err
			}
			result, err := d.audit.Audit(cmd.Context(), path)
			if err != nil {
				return fmt.Errorf("audit failed: %w", err)
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(result); err != nil {
					return err
				}
			} else {
				fmt.Fprint(cmd.OutOrStdout(), tui.RenderFindings(result))
			}

			if ciMode {
				for _, f := range result.Findings {
					if f.Severity == domain.SeverityError {
						return fmt.Errorf("audit found %s finding: %s", f.Severity, f.Message)
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", ".", "Repository path to analyze")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Verbose logging")
	cmd.Flags().BoolVar(&ciMode, "ci", false, "CI mode: exit 1 on any error-severity finding")
	return cmd
}
