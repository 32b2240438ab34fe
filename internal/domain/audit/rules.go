package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/repoforge/repoforge/internal/domain"
	"github.com/repoforge/repoforge/internal/domain/plan"
)

// maxSecretScanBytes bounds content scanning per file.
const maxSecretScanBytes = 512 * 1024

// secretNamePatterns match file names that are secrets by convention,
// independent of content.
var secretNamePatterns = []string{
	".env", ".env.*", "*.pem", "*.key", "id_rsa", "id_ed25519", "*credentials*.json",
}

// TrackedSecretRule flags version-controlled files that carry secrets,
// by name convention or by content scan.
type TrackedSecretRule struct{}

func (r *TrackedSecretRule) ID() string { return "tracked-secret" }

func (r *TrackedSecretRule) Check(ctx context.Context, rc *Context) ([]domain.Finding, error) {
	tracked, err := rc.FS.TrackedFiles()
	if err != nil {
		return nil, fmt.Errorf("listing tracked files: %w", err)
	}

	var findings []domain.Finding
	for _, path := range tracked {
		if ctx.Err() != nil {
			return findings, ctx.Err()
		}
		base := filepath.Base(path)
		if matchesAny(base, secretNamePatterns) {
			findings = append(findings, secretFinding(r.ID(), path,
				fmt.Sprintf("%s is tracked but looks like a secret or credential file", path)))
			continue
		}
		if rc.Secrets == nil {
			continue
		}
		matches, err := scanContent(rc, path)
		if err != nil {
			continue // unreadable or binary, name check already passed
		}
		if len(matches) > 0 {
			findings = append(findings, secretFinding(r.ID(), path,
				fmt.Sprintf("%s contains a %s", path, matches[0].Description)))
		}
	}
	return findings, nil
}

func scanContent(rc *Context, path string) ([]domain.SecretMatch, error) {
	info, err := os.Stat(filepath.Join(rc.Root, path))
	if err != nil || info.Size() > maxSecretScanBytes {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(rc.Root, path))
	if err != nil {
		return nil, err
	}
	return rc.Secrets.Detect(string(data))
}

func secretFinding(rule, path, msg string) domain.Finding {
	return domain.Finding{
		Rule:        rule,
		Category:    domain.CategorySecretExposure,
		Severity:    domain.SeverityError,
		Paths:       []string{path},
		Message:     msg,
		Remediation: domain.PhaseID(plan.KindUntrackSecrets),
	}
}

// UnignoredArtifactRule flags tracked files that the ecosystem's ignore
// patterns say should never be in version control.
type UnignoredArtifactRule struct{}

func (r *UnignoredArtifactRule) ID() string { return "unignored-artifact" }

func (r *UnignoredArtifactRule) Check(ctx context.Context, rc *Context) ([]domain.Finding, error) {
	tracked, err := rc.FS.TrackedFiles()
	if err != nil {
		return nil, fmt.Errorf("listing tracked files: %w", err)
	}

	var findings []domain.Finding
	for _, eco := range rc.Ecosystems {
		caps, ok := rc.Caps[eco.ID]
		if !ok {
			continue
		}
		var hits []string
		for _, path := range tracked {
			if matchesAny(filepath.Base(path), caps.IgnorePatterns) || matchesAny(path, caps.IgnorePatterns) {
				hits = append(hits, path)
			}
		}
		if len(hits) > 0 {
			sort.Strings(hits)
			findings = append(findings, domain.Finding{
				Rule:        r.ID(),
				Category:    domain.CategoryStructural,
				Severity:    domain.SeverityWarning,
				Paths:       hits,
				Message:     fmt.Sprintf("%d tracked file(s) match %s ignore patterns", len(hits), eco.ID),
				Remediation: domain.PhaseID(plan.KindWriteIgnoreRules),
				Ecosystem:   eco.ID,
			})
		}
	}
	return findings, nil
}

// pathToken pulls path-like references out of markdown prose.
var pathToken = regexp.MustCompile("`([A-Za-z0-9_./-]+/[A-Za-z0-9_./-]+)`")

// StaleReferenceRule flags documentation referencing paths that no
// longer exist. Surfaced to the operator; no automated remediation.
type StaleReferenceRule struct{}

func (r *StaleReferenceRule) ID() string { return "stale-reference" }

func (r *StaleReferenceRule) Check(ctx context.Context, rc *Context) ([]domain.Finding, error) {
	var findings []domain.Finding
	for _, doc := range rc.Scan.AllFiles {
		if !strings.HasSuffix(doc, ".md") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(rc.Root, doc))
		if err != nil {
			continue
		}
		for _, m := range pathToken.FindAllStringSubmatch(string(data), -1) {
			ref := strings.TrimSuffix(m[1], "/")
			if strings.Contains(ref, "://") {
				continue
			}
			if _, err := os.Stat(filepath.Join(rc.Root, ref)); os.IsNotExist(err) {
				findings = append(findings, domain.Finding{
					Rule:     r.ID(),
					Category: domain.CategoryStaleReference,
					Severity: domain.SeverityWarning,
					Paths:    []string{doc},
					Message:  fmt.Sprintf("%s references %s which does not exist", doc, ref),
				})
			}
		}
	}
	return findings, nil
}

// VersionMismatchRule compares the manifest version against the top
// CHANGELOG entry.
type VersionMismatchRule struct{}

func (r *VersionMismatchRule) ID() string { return "version-mismatch" }

var changelogVersion = regexp.MustCompile(`(?m)^#+\s*\[?v?(\d+\.\d+\.\d+)`)

func (r *VersionMismatchRule) Check(ctx context.Context, rc *Context) ([]domain.Finding, error) {
	changelog, err := os.ReadFile(filepath.Join(rc.Root, "CHANGELOG.md"))
	if err != nil {
		return nil, nil // nothing to compare against
	}
	m := changelogVersion.FindSubmatch(changelog)
	if m == nil {
		return nil, nil
	}
	released := string(m[1])

	var findings []domain.Finding
	for _, eco := range rc.Ecosystems {
		caps, ok := rc.Caps[eco.ID]
		if !ok || caps.Manifest.File == "" || caps.Manifest.VersionKey == "" {
			continue
		}
		version, err := manifestVersion(rc.Root, caps.Manifest)
		if err != nil || version == "" {
			continue
		}
		if version != released {
			findings = append(findings, domain.Finding{
				Rule:        r.ID(),
				Category:    domain.CategoryStructural,
				Severity:    domain.SeverityWarning,
				Paths:       []string{caps.Manifest.File},
				Message:     fmt.Sprintf("%s declares %s but CHANGELOG.md top entry is %s", caps.Manifest.File, version, released),
				Remediation: domain.PhaseID(plan.KindNormalizeManifest),
				Ecosystem:   eco.ID,
			})
		}
	}
	return findings, nil
}

// manifestVersion reads the version value out of a TOML or JSON manifest.
func manifestVersion(root string, spec domain.ManifestSpec) (string, error) {
	path := filepath.Join(root, spec.File)
	switch {
	case strings.HasSuffix(spec.File, ".toml"):
		var doc map[string]any
		if _, err := toml.DecodeFile(path, &doc); err != nil {
			return "", err
		}
		return lookupKey(doc, spec.VersionKey), nil
	case strings.HasSuffix(spec.File, ".json"):
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err != nil {
			return "", err
		}
		return lookupKey(doc, spec.VersionKey), nil
	default:
		return "", nil // go.mod and friends carry no version
	}
}

// lookupKey resolves a dotted key like "project.version".
func lookupKey(doc map[string]any, key string) string {
	parts := strings.Split(key, ".")
	cur := any(doc)
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur = m[p]
	}
	s, _ := cur.(string)
	return s
}

// LargeFileRule flags files above the ecosystem's refactor threshold.
type LargeFileRule struct{}

func (r *LargeFileRule) ID() string { return "large-file" }

func (r *LargeFileRule) Check(ctx context.Context, rc *Context) ([]domain.Finding, error) {
	threshold := domain.GenericCapabilities().LargeFileBytes
	for _, eco := range rc.Ecosystems {
		if caps, ok := rc.Caps[eco.ID]; ok && caps.LargeFileBytes > 0 && caps.LargeFileBytes < threshold {
			threshold = caps.LargeFileBytes
		}
	}

	var findings []domain.Finding
	for _, f := range rc.Scan.AllFiles {
		info, err := os.Stat(filepath.Join(rc.Root, f))
		if err != nil {
			continue
		}
		if info.Size() > threshold {
			findings = append(findings, domain.Finding{
				Rule:     r.ID(),
				Category: domain.CategoryStructural,
				Severity: domain.SeverityInfo,
				Paths:    []string{f},
				Message:  fmt.Sprintf("%s is %d bytes, above the %d byte refactor threshold", f, info.Size(), threshold),
			})
		}
	}
	return findings, nil
}

// testStub maps a source file to the placeholder test path for its
// ecosystem. Empty means the ecosystem has no scaffold convention.
func testStub(eco, src string) string {
	dir, base := filepath.Dir(src), filepath.Base(src)
	switch eco {
	case "go-like":
		if strings.HasSuffix(base, ".go") && !strings.HasSuffix(base, "_test.go") {
			return filepath.Join(dir, strings.TrimSuffix(base, ".go")+"_test.go")
		}
	case "python-like":
		if strings.HasSuffix(base, ".py") && !strings.HasPrefix(base, "test_") && base != "setup.py" && base != "conftest.py" {
			return filepath.Join(dir, "test_"+base)
		}
	case "node-like":
		for _, ext := range []string{".ts", ".js"} {
			if strings.HasSuffix(base, ext) && !strings.Contains(base, ".test.") && !strings.Contains(base, ".spec.") {
				return filepath.Join(dir, strings.TrimSuffix(base, ext)+".test"+ext)
			}
		}
	}
	return ""
}

// MissingTestRule flags source files without a test counterpart. The
// finding paths are the stub paths the scaffold phase would create.
type MissingTestRule struct{}

func (r *MissingTestRule) ID() string { return "missing-test" }

func (r *MissingTestRule) Check(ctx context.Context, rc *Context) ([]domain.Finding, error) {
	var findings []domain.Finding
	for _, eco := range rc.Ecosystems {
		var stubs []string
		for _, src := range rc.Scan.AllFiles {
			stub := testStub(eco.ID, src)
			if stub == "" || rc.Scan.Has(stub) {
				continue
			}
			stubs = append(stubs, stub)
		}
		if len(stubs) > 0 {
			sort.Strings(stubs)
			findings = append(findings, domain.Finding{
				Rule:        r.ID(),
				Category:    domain.CategoryStyle,
				Severity:    domain.SeverityInfo,
				Paths:       stubs,
				Message:     fmt.Sprintf("%d %s source file(s) have no test counterpart", len(stubs), eco.ID),
				Remediation: domain.PhaseID(plan.KindScaffoldTests),
				Ecosystem:   eco.ID,
			})
		}
	}
	return findings, nil
}

// MissingCIRule flags the absence of any CI workflow.
type MissingCIRule struct{}

func (r *MissingCIRule) ID() string { return "missing-ci" }

func (r *MissingCIRule) Check(ctx context.Context, rc *Context) ([]domain.Finding, error) {
	for _, f := range rc.Scan.AllFiles {
		if strings.HasPrefix(filepath.ToSlash(f), ".github/workflows/") {
			return nil, nil
		}
	}
	var findings []domain.Finding
	for _, eco := range rc.Ecosystems {
		caps, ok := rc.Caps[eco.ID]
		if !ok || caps.CITemplate == "" {
			continue
		}
		findings = append(findings, domain.Finding{
			Rule:        r.ID(),
			Category:    domain.CategoryStructural,
			Severity:    domain.SeverityWarning,
			Message:     fmt.Sprintf("no CI workflow found for %s", eco.ID),
			Remediation: domain.PhaseID(plan.KindAddCIWorkflow),
			Ecosystem:   eco.ID,
		})
	}
	return findings, nil
}

// MissingReadmeRule flags the absence of a README.
type MissingReadmeRule struct{}

func (r *MissingReadmeRule) ID() string { return "missing-readme" }

func (r *MissingReadmeRule) Check(ctx context.Context, rc *Context) ([]domain.Finding, error) {
	if rc.Scan.Has("README.md") || rc.Scan.Has("README") {
		return nil, nil
	}
	return []domain.Finding{{
		Rule:        r.ID(),
		Category:    domain.CategoryStyle,
		Severity:    domain.SeverityInfo,
		Message:     "repository has no README",
		Remediation: domain.PhaseID(plan.KindAddReadme),
	}}, nil
}

func matchesAny(name string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := filepath.Match(p, name); ok {
			return true
		}
	}
	return false
}
