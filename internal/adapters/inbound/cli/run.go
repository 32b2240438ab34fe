package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/repoforge/repoforge/internal/adapters/inbound/console"
	"github.com/repoforge/repoforge/internal/adapters/outbound/approvals"
	"github.com/repoforge/repoforge/internal/adapters/outbound/snapshot"
	"github.com/repoforge/repoforge/internal/adapters/outbound/tracker"
	"github.com/repoforge/repoforge/internal/adapters/outbound/tui"
	"github.com/repoforge/repoforge/internal/adapters/outbound/verify"
	"github.com/repoforge/repoforge/internal/application"
	"github.com/repoforge/repoforge/internal/domain"
	"github.com/repoforge/repoforge/internal/domain/approval"
)

func newRunCmd() *cobra.Command {
	var (
		path    string
		verbose bool
		workers int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Audit, plan, and execute approved transformations",
		Long:  "Runs the full pipeline: audit the repository, build a plan, present it at the approval gate, then execute the approved phases with per-phase snapshots, verification and rollback. Re-running against an unchanged repository skips every phase.",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps(path, verbose)
			if err != nil {
				return err
			}
			if workers <= 0 {
				workers = d.cfg.Workers
			}

			p, result, err := d.plans.Plan(cmd.Context(), path)
			if err != nil {
				return fmt.Errorf("planning failed: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderFindings(result))
			fmt.Fprintln(cmd.OutOrStdout())

			if len(p.Phases) == 0 {
				fmt.Fprint(cmd.OutOrStdout(), tui.RenderPlan(p))
				return nil
			}

			operator := console.New(cmd.InOrStdin(), cmd.OutOrStdout())
			gate := approval.NewGate(operator, approvals.New(p.RepoRoot), d.logger)
			record, approved, err := gate.Present(cmd.Context(), p)
			if err != nil {
				if errors.Is(err, domain.ErrApprovalCancelled) {
					fmt.Fprintln(cmd.OutOrStdout(), "cancelled, no phases were run")
					return nil
				}
				return err
			}
			if !record.Approved() {
				fmt.Fprintln(cmd.OutOrStdout(), "plan rejected, no phases were run")
				return nil
			}

			runner := application.NewRunService(
				snapshot.New(),
				tracker.New(p.RepoRoot),
				verify.New(d.logger),
				application.NewTransforms(d.fs),
				d.fs,
				workers,
				d.logger,
			)
			report, err := runner.Execute(cmd.Context(), approved, record, result.Caps)
			if err != nil {
				return fmt.Errorf("executing plan: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout())
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderRunReport(report))

			for _, res := range report.Results {
				if res.State == domain.StateFailed {
					return fmt.Errorf("phase %s failed", res.Phase)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", ".", "Repository path to transform")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Verbose logging")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent phase limit (default from config)")
	return cmd
}
