// Package secrets wraps the gitleaks detection engine behind the
// domain.SecretScanner port.
package secrets

import (
	"fmt"

	"github.com/zricethezav/gitleaks/v8/detect"

	"github.com/repoforge/repoforge/internal/domain"
)

// Scanner implements domain.SecretScanner using the default gitleaks
// rule set.
type Scanner struct {
	detector *detect.Detector
}

// New builds a scanner with the default gitleaks configuration. The
// detector is constructed once; it is expensive to build per call.
func New() (*Scanner, error) {
	d, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("building gitleaks detector: %w", err)
	}
	return &Scanner{detector: d}, nil
}

func (s *Scanner) Detect(content string) ([]domain.SecretMatch, error) {
	findings := s.detector.DetectString(content)
	out := make([]domain.SecretMatch, 0, len(findings))
	for _, f := range findings {
		out = append(out, domain.SecretMatch{
			RuleID:      f.RuleID,
			Description: f.Description,
			Line:        f.StartLine,
		})
	}
	return out, nil
}
