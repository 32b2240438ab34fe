package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/repoforge/repoforge/internal/adapters/outbound/detector"
	"github.com/repoforge/repoforge/internal/adapters/outbound/scanner"
	"github.com/repoforge/repoforge/internal/adapters/outbound/tui"
	"github.com/repoforge/repoforge/internal/application"
)

func newDetectCmd() *cobra.Command {
	var (
		path       string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Detect the repository's implementation ecosystems",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := application.NewDetectService(scanner.New(), detector.New())
			ecosystems, _, err := svc.Detect(path)
			if err != nil {
				return fmt.Errorf("detect failed: %w", err)
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(ecosystems)
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderEcosystems(ecosystems))
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", ".", "Repository path to analyze")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
