package detector

import (
	"path/filepath"
	"sort"

	"github.com/repoforge/repoforge/internal/domain"
)

// signature is one ecosystem's detection rule: a set of manifest-file
// predicates. Each predicate is an exact name or a glob relative to the
// repository root. Confidence is matched predicates over total.
type signature struct {
	id         string
	predicates []string
}

// signatures are evaluated in declaration order, which also breaks
// confidence ties, keeping detection stable and deterministic.
var signatures = []signature{
	{id: "go-like", predicates: []string{"go.mod|go.sum"}},
	{id: "node-like", predicates: []string{"package.json", "package-lock.json|yarn.lock|pnpm-lock.yaml"}},
	{id: "python-like", predicates: []string{"pyproject.toml", "setup.py|setup.cfg|requirements.txt"}},
	{id: "rust-like", predicates: []string{"Cargo.toml", "Cargo.lock"}},
	{id: "jvm-like", predicates: []string{"pom.xml|build.gradle|build.gradle.kts"}},
}

// EcosystemDetector implements domain.EcosystemDetector over a scan.
type EcosystemDetector struct{}

func New() *EcosystemDetector {
	return &EcosystemDetector{}
}

// Detect returns the matched ecosystems ordered by confidence, ties
// broken by signature declaration order. With no match at all it
// returns the single "unknown" sentinel.
func (d *EcosystemDetector) Detect(scan *domain.ScanResult) ([]domain.DetectedEcosystem, error) {
	type scored struct {
		eco   domain.DetectedEcosystem
		index int
	}
	var matched []scored

	for i, sig := range signatures {
		var evidence []string
		for _, pred := range sig.predicates {
			if hit := matchPredicate(scan, pred); hit != "" {
				evidence = append(evidence, hit)
			}
		}
		if len(evidence) == 0 {
			continue
		}
		matched = append(matched, scored{
			eco: domain.DetectedEcosystem{
				ID:         sig.id,
				Confidence: float64(len(evidence)) / float64(len(sig.predicates)),
				Evidence:   evidence,
			},
			index: i,
		})
	}

	if len(matched) == 0 {
		return []domain.DetectedEcosystem{{ID: domain.EcosystemUnknown, Confidence: 0}}, nil
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].eco.Confidence != matched[j].eco.Confidence {
			return matched[i].eco.Confidence > matched[j].eco.Confidence
		}
		return matched[i].index < matched[j].index
	})

	out := make([]domain.DetectedEcosystem, len(matched))
	for i, m := range matched {
		out[i] = m.eco
	}
	return out, nil
}

// matchPredicate resolves one predicate against the root-level files.
// Alternatives separated by "|" count as a single predicate: the first
// alternative present wins.
func matchPredicate(scan *domain.ScanResult, pred string) string {
	for _, alt := range splitAlternatives(pred) {
		for _, f := range scan.AllFiles {
			if filepath.Dir(f) != "." {
				continue
			}
			if f == alt {
				return f
			}
			if ok, _ := filepath.Match(alt, f); ok {
				return f
			}
		}
	}
	return ""
}

func splitAlternatives(pred string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(pred); i++ {
		if i == len(pred) || pred[i] == '|' {
			if i > start {
				out = append(out, pred[start:i])
			}
			start = i + 1
		}
	}
	return out
}
