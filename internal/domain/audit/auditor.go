// Package audit runs the read-only professionalization checks and emits
// the finding set a transformation plan is built from.
package audit

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/repoforge/repoforge/internal/domain"
)

// Context carries everything a rule may inspect. Rules must not mutate
// the repository.
type Context struct {
	Root       string
	Scan       *domain.ScanResult
	Ecosystems []domain.DetectedEcosystem
	Caps       map[string]domain.CapabilitySet
	FS         domain.VersionedFS
	Secrets    domain.SecretScanner
}

// Rule is one independently pluggable audit check.
type Rule interface {
	ID() string
	Check(ctx context.Context, rc *Context) ([]domain.Finding, error)
}

// RuleFailedID is the rule name used for findings synthesized from a
// rule that errored or panicked.
const RuleFailedID = "rule-failed"

// Auditor runs all rules, best-effort: a failing rule becomes a finding,
// not a fatal error, and the remaining rules still run.
type Auditor struct {
	rules  []Rule
	logger *zap.Logger
}

// New creates an Auditor. With no rules given, the default rule set is
// installed.
func New(logger *zap.Logger, rules ...Rule) *Auditor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Auditor{rules: rules, logger: logger}
}

// DefaultRules returns the built-in rule set.
func DefaultRules() []Rule {
	return []Rule{
		&TrackedSecretRule{},
		&UnignoredArtifactRule{},
		&StaleReferenceRule{},
		&VersionMismatchRule{},
		&LargeFileRule{},
		&MissingTestRule{},
		&MissingCIRule{},
		&MissingReadmeRule{},
	}
}

// Audit runs every rule and returns findings grouped by category
// precedence (secret-exposure > stale-reference > structural > style),
// stable by path within a group.
func (a *Auditor) Audit(ctx context.Context, rc *Context) []domain.Finding {
	var findings []domain.Finding
	for _, rule := range a.rules {
		fs, err := a.runRule(ctx, rule, rc)
		if err != nil {
			a.logger.Warn("audit rule failed",
				zap.String("rule", rule.ID()),
				zap.Error(err))
			findings = append(findings, domain.Finding{
				Rule:     RuleFailedID,
				Category: domain.CategoryStructural,
				Severity: domain.SeverityWarning,
				Message:  fmt.Sprintf("rule %s failed: %v", rule.ID(), err),
			})
			continue
		}
		findings = append(findings, fs...)
	}

	sortFindings(findings)
	return findings
}

// runRule isolates a single rule: a panic is converted into an error so
// the audit stays total.
func (a *Auditor) runRule(ctx context.Context, rule Rule, rc *Context) (fs []domain.Finding, err error) {
	defer func() {
		if r := recover(); r != nil {
			fs = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return rule.Check(ctx, rc)
}

func sortFindings(findings []domain.Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		ri, rj := domain.CategoryRank(findings[i].Category), domain.CategoryRank(findings[j].Category)
		if ri != rj {
			return ri < rj
		}
		return firstPath(findings[i]) < firstPath(findings[j])
	})
}

func firstPath(f domain.Finding) string {
	if len(f.Paths) == 0 {
		return ""
	}
	return f.Paths[0]
}
