package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/camelcase"

	"github.com/repoforge/repoforge/internal/application"
	"github.com/repoforge/repoforge/internal/domain"
)

var (
	accent  = lipgloss.Color("#D97706") // amber
	fg      = lipgloss.Color("#E8E6E3")
	dim     = lipgloss.Color("#6B7280")
	faint   = lipgloss.Color("#3F3F46")
	success = lipgloss.Color("#22C55E")
	danger  = lipgloss.Color("#EF4444")
	warning = lipgloss.Color("#F59E0B")
	info    = lipgloss.Color("#8B949E")
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(fg)
	dimStyle    = lipgloss.NewStyle().Foreground(dim)
	faintStyle  = lipgloss.NewStyle().Foreground(faint)
	passStyle   = lipgloss.NewStyle().Foreground(success)
	failStyle   = lipgloss.NewStyle().Foreground(danger)
	warnStyle   = lipgloss.NewStyle().Foreground(warning)
	infoStyle   = lipgloss.NewStyle().Foreground(info)
	destrStyle  = lipgloss.NewStyle().Bold(true).Foreground(danger)

	separatorLine = faintStyle.Render(strings.Repeat("─", 64))
)

// RenderEcosystems renders the detection result.
func RenderEcosystems(ecosystems []domain.DetectedEcosystem) string {
	var b strings.Builder
	b.WriteString("  " + headerStyle.Render("Detected ecosystems") + "\n\n")
	for _, eco := range ecosystems {
		line := fmt.Sprintf("  %s  %s", titleStyle.Render(eco.ID), dimStyle.Render(fmt.Sprintf("confidence %.2f", eco.Confidence)))
		if len(eco.Evidence) > 0 {
			line += "  " + faintStyle.Render(strings.Join(eco.Evidence, ", "))
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

// RenderFindings renders the audit report, already ordered by category
// precedence.
func RenderFindings(result *application.AuditResult) string {
	var b strings.Builder
	b.WriteString("  " + headerStyle.Render("Audit") + "  " + dimStyle.Render(result.RepoRoot) + "\n\n")
	b.WriteString(RenderEcosystems(result.Ecosystems))
	b.WriteString("\n  " + separatorLine + "\n\n")

	if len(result.Findings) == 0 {
		b.WriteString("  " + passStyle.Render("No findings.") + "\n")
		return b.String()
	}

	for _, f := range result.Findings {
		b.WriteString(fmt.Sprintf("  %s %s\n", severityTag(f.Severity), f.Message))
		if len(f.Paths) > 0 && len(f.Paths) <= 5 {
			for _, p := range f.Paths {
				b.WriteString("      " + dimStyle.Render(p) + "\n")
			}
		}
		if f.Remediation != "" {
			b.WriteString("      " + faintStyle.Render("fix: "+string(f.Remediation)) + "\n")
		}
	}
	return b.String()
}

// RenderPlan renders the phase sequence with dependencies and flags.
func RenderPlan(p *domain.TransformationPlan) string {
	var b strings.Builder
	b.WriteString("  " + headerStyle.Render("Transformation plan") + "  " + dimStyle.Render(p.ID) + "\n\n")
	if len(p.Phases) == 0 {
		b.WriteString("  " + passStyle.Render("Nothing to do.") + "\n")
		return b.String()
	}
	for _, ph := range p.Phases {
		name := titleStyle.Render(string(ph.ID))
		if ph.Destructive {
			name += "  " + destrStyle.Render("destructive")
		}
		b.WriteString("  " + name + "\n")
		b.WriteString("      " + dimStyle.Render(ph.Description) + "\n")
		if len(ph.DependsOn) > 0 {
			deps := make([]string, len(ph.DependsOn))
			for i, d := range ph.DependsOn {
				deps[i] = string(d)
			}
			b.WriteString("      " + faintStyle.Render("after: "+strings.Join(deps, ", ")) + "\n")
		}
		b.WriteString("      " + faintStyle.Render(fmt.Sprintf("writes: %s", strings.Join(ph.WriteSet, ", "))) + "\n")
	}
	return b.String()
}

// RenderRunReport renders the per-phase outcome of a run. Failed phases
// carry the restored-state guarantee.
func RenderRunReport(report *domain.RunReport) string {
	var b strings.Builder
	b.WriteString("  " + headerStyle.Render("Run report") + "  " + dimStyle.Render(report.RunID) + "\n\n")
	for _, res := range report.Results {
		b.WriteString(fmt.Sprintf("  %s  %s\n", stateTag(res.State), titleStyle.Render(string(res.Phase))))
		if res.Error != "" {
			b.WriteString("      " + dimStyle.Render(res.Error) + "\n")
		}
		if res.State == domain.StateFailed && res.RolledBack {
			b.WriteString("      " + infoStyle.Render("write-set restored to pre-phase state") + "\n")
		}
		if res.DiffSummary != "" {
			for _, line := range strings.Split(res.DiffSummary, "\n") {
				b.WriteString("      " + faintStyle.Render(line) + "\n")
			}
		}
	}
	b.WriteString("\n  " + separatorLine + "\n")
	b.WriteString("  " + dimStyle.Render(fmt.Sprintf("%d phase(s), finished in %s",
		len(report.Results), report.FinishedAt.Sub(report.StartedAt).Round(10e6))) + "\n")
	return b.String()
}

// humanState splits CamelCase state names for display ("NotStarted" ->
// "Not Started").
func humanState(state string) string {
	return strings.Join(camelcase.Split(state), " ")
}

func stateTag(state string) string {
	label := fmt.Sprintf("%-11s", humanState(state))
	switch state {
	case domain.StateApplied:
		return passStyle.Render(label)
	case domain.StateSkipped:
		return dimStyle.Render(label)
	case domain.StateFailed:
		return failStyle.Render(label)
	default:
		return faintStyle.Render(label)
	}
}

func severityTag(severity string) string {
	switch severity {
	case domain.SeverityError:
		return failStyle.Render("ERROR")
	case domain.SeverityWarning:
		return warnStyle.Render("WARN ")
	default:
		return infoStyle.Render("INFO ")
	}
}
