package application

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/repoforge/repoforge/internal/domain"
	"github.com/repoforge/repoforge/internal/domain/plan"
)

// Transforms resolves planned phases to their apply functions. The file
// contents written here (ignore rules, CI text, stubs) come from the
// capability table; the transforms only place them.
type Transforms struct {
	fs domain.VersionedFS
}

func NewTransforms(fs domain.VersionedFS) *Transforms {
	return &Transforms{fs: fs}
}

func (t *Transforms) Resolve(ph domain.Phase) (domain.ApplyFunc, error) {
	switch ph.Kind {
	case plan.KindWriteIgnoreRules:
		return t.writeIgnoreRules, nil
	case plan.KindUntrackSecrets:
		return t.untrackSecrets(ph), nil
	case plan.KindNormalizeManifest:
		return t.normalizeManifest, nil
	case plan.KindAddCIWorkflow:
		return t.addCIWorkflow, nil
	case plan.KindScaffoldTests:
		return t.scaffoldTests(ph), nil
	case plan.KindAddReadme:
		return t.addReadme, nil
	default:
		return nil, fmt.Errorf("no transform for phase kind %q", ph.Kind)
	}
}

// writeIgnoreRules appends the capability's ignore patterns that are not
// already present. Re-running against the result is a no-op.
func (t *Transforms) writeIgnoreRules(ctx context.Context, repoRoot string, caps domain.CapabilitySet) error {
	return appendIgnoreRules(repoRoot, caps.IgnorePatterns)
}

// untrackSecrets removes the secret files from version control, keeps
// them on disk, and ignores them going forward.
func (t *Transforms) untrackSecrets(ph domain.Phase) domain.ApplyFunc {
	return func(ctx context.Context, repoRoot string, caps domain.CapabilitySet) error {
		var targets []string
		for _, p := range ph.WriteSet {
			if p != ".gitignore" {
				targets = append(targets, p)
			}
		}
		// The index mutation goes last: everything before it touches only
		// write-set files, so a failure here is fully undone by the
		// snapshot restore.
		if err := appendIgnoreRules(repoRoot, targets); err != nil {
			return err
		}
		return t.fs.Untrack(targets)
	}
}

var (
	tomlVersionLine = regexp.MustCompile(`(?m)^(\s*version\s*=\s*")[^"]+(")`)
	jsonVersionLine = regexp.MustCompile(`("version"\s*:\s*")[^"]+(")`)
)

// normalizeManifest syncs the manifest's version field with the top
// CHANGELOG entry and guarantees a trailing newline.
func (t *Transforms) normalizeManifest(ctx context.Context, repoRoot string, caps domain.CapabilitySet) error {
	if caps.Manifest.File == "" {
		return nil
	}
	path := filepath.Join(repoRoot, caps.Manifest.File)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	content := string(data)
	if released := changelogTopVersion(repoRoot); released != "" && caps.Manifest.VersionKey != "" {
		repl := "${1}" + released + "${2}"
		switch {
		case strings.HasSuffix(caps.Manifest.File, ".toml"):
			content = tomlVersionLine.ReplaceAllString(content, repl)
		case strings.HasSuffix(caps.Manifest.File, ".json"):
			content = jsonVersionLine.ReplaceAllString(content, repl)
		}
	}
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	if content == string(data) {
		return nil
	}
	return os.WriteFile(path, []byte(content), 0644)
}

var changelogVersion = regexp.MustCompile(`(?m)^#+\s*\[?v?(\d+\.\d+\.\d+)`)

func changelogTopVersion(repoRoot string) string {
	data, err := os.ReadFile(filepath.Join(repoRoot, "CHANGELOG.md"))
	if err != nil {
		return ""
	}
	m := changelogVersion.FindSubmatch(data)
	if m == nil {
		return ""
	}
	return string(m[1])
}

// addCIWorkflow writes the capability's CI template. An existing
// workflow file is left untouched; operators own their edits.
func (t *Transforms) addCIWorkflow(ctx context.Context, repoRoot string, caps domain.CapabilitySet) error {
	if caps.CITemplate == "" {
		return nil
	}
	file := caps.CIWorkflowFile
	if file == "" {
		file = "ci.yml"
	}
	path := filepath.Join(repoRoot, ".github", "workflows", file)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(caps.CITemplate), 0644)
}

// scaffoldTests creates the placeholder tests named in the write-set.
func (t *Transforms) scaffoldTests(ph domain.Phase) domain.ApplyFunc {
	return func(ctx context.Context, repoRoot string, caps domain.CapabilitySet) error {
		for _, stub := range ph.WriteSet {
			abs := filepath.Join(repoRoot, stub)
			if _, err := os.Stat(abs); err == nil {
				continue
			}
			if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
				return err
			}
			if err := os.WriteFile(abs, []byte(stubContent(ph.Ecosystem, stub)), 0644); err != nil {
				return err
			}
		}
		return nil
	}
}

func stubContent(ecosystem, stub string) string {
	switch ecosystem {
	case "go-like":
		pkg := sanitizeIdent(filepath.Base(filepath.Dir(stub)))
		if pkg == "" || pkg == "." {
			pkg = "main"
		}
		return fmt.Sprintf("package %s\n\nimport \"testing\"\n\nfunc TestPlaceholder(t *testing.T) {\n\tt.Skip(\"placeholder test\")\n}\n", pkg)
	case "python-like":
		return "def test_placeholder():\n    pass\n"
	case "node-like":
		return "test.todo(\"placeholder\");\n"
	default:
		return ""
	}
}

func sanitizeIdent(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == '-' || r == '.' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// addReadme creates a minimal README if none exists.
func (t *Transforms) addReadme(ctx context.Context, repoRoot string, caps domain.CapabilitySet) error {
	path := filepath.Join(repoRoot, "README.md")
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	name := filepath.Base(repoRoot)
	content := fmt.Sprintf("# %s\n\nTODO: describe this project.\n", name)
	return os.WriteFile(path, []byte(content), 0644)
}

// appendIgnoreRules adds the given entries to .gitignore, skipping ones
// already present.
func appendIgnoreRules(repoRoot string, entries []string) error {
	path := filepath.Join(repoRoot, ".gitignore")
	existing := map[string]bool{}
	var content string
	if data, err := os.ReadFile(path); err == nil {
		content = string(data)
		for _, line := range strings.Split(content, "\n") {
			existing[strings.TrimSpace(line)] = true
		}
	} else if !os.IsNotExist(err) {
		return err
	}

	var missing []string
	for _, e := range entries {
		if !existing[e] {
			missing = append(missing, e)
			existing[e] = true
		}
	}
	if len(missing) == 0 {
		return nil
	}
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += strings.Join(missing, "\n") + "\n"
	return os.WriteFile(path, []byte(content), 0644)
}
