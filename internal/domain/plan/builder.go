package plan

import (
	"path"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/repoforge/repoforge/internal/domain"
)

// Build selects and wires the phase sequence addressing the given
// findings. Phases for different ecosystems have no cross-ecosystem
// dependencies and overlap only on .gitignore, whose writers the
// executor's conflict check serializes; the rest of a polyglot plan's
// sub-plans can run concurrently. Deterministic for a given finding set.
func Build(repoRoot string, findings []domain.Finding, caps map[string]domain.CapabilitySet) *domain.TransformationPlan {
	builders := map[domain.PhaseID]*domain.Phase{}

	for _, f := range findings {
		kind := string(f.Remediation)
		tpl, ok := catalog[kind]
		if !ok {
			continue
		}
		id := ID(kind, f.Ecosystem)
		ph, exists := builders[id]
		if !exists {
			ph = &domain.Phase{
				ID:          id,
				Kind:        tpl.kind,
				Ecosystem:   f.Ecosystem,
				Destructive: tpl.destructive,
				Verify:      tpl.verify,
				Description: tpl.description,
			}
			builders[id] = ph
		}
		addWriteSet(ph, f, caps[f.Ecosystem])
	}

	phases := make([]domain.Phase, 0, len(builders))
	for _, ph := range builders {
		sort.Strings(ph.WriteSet)
		phases = append(phases, *ph)
	}
	sort.Slice(phases, func(i, j int) bool { return phases[i].ID < phases[j].ID })

	wireDependencies(phases)

	return &domain.TransformationPlan{
		ID:        uuid.NewString(),
		RepoRoot:  repoRoot,
		CreatedAt: time.Now().UTC(),
		Phases:    phases,
		Findings:  findings,
	}
}

// addWriteSet declares the paths a phase instance will touch, derived
// from the finding and the ecosystem's capabilities.
func addWriteSet(ph *domain.Phase, f domain.Finding, caps domain.CapabilitySet) {
	switch ph.Kind {
	case KindWriteIgnoreRules:
		appendPath(ph, ".gitignore")
	case KindUntrackSecrets:
		for _, p := range f.Paths {
			appendPath(ph, p)
		}
		appendPath(ph, ".gitignore")
	case KindNormalizeManifest:
		if caps.Manifest.File != "" {
			appendPath(ph, caps.Manifest.File)
		}
	case KindAddCIWorkflow:
		file := caps.CIWorkflowFile
		if file == "" {
			file = "ci.yml"
		}
		appendPath(ph, path.Join(".github", "workflows", file))
	case KindScaffoldTests:
		for _, p := range f.Paths {
			appendPath(ph, p)
		}
	case KindAddReadme:
		appendPath(ph, "README.md")
	}
}

func appendPath(ph *domain.Phase, p string) {
	for _, existing := range ph.WriteSet {
		if existing == p {
			return
		}
	}
	ph.WriteSet = append(ph.WriteSet, p)
}

// wireDependencies declares the ordering edges between instantiated
// phases. Only edges between phases actually present are added.
func wireDependencies(phases []domain.Phase) {
	present := map[domain.PhaseID]bool{}
	for _, ph := range phases {
		present[ph.ID] = true
	}
	for i := range phases {
		ph := &phases[i]
		switch ph.Kind {
		case KindUntrackSecrets:
			// Ignore rules should land before secrets are untracked so
			// the files do not immediately show up as untracked noise.
			for _, other := range phases {
				if other.Kind == KindWriteIgnoreRules {
					ph.DependsOn = append(ph.DependsOn, other.ID)
				}
			}
		case KindAddCIWorkflow:
			if dep := ID(KindNormalizeManifest, ph.Ecosystem); present[dep] {
				ph.DependsOn = append(ph.DependsOn, dep)
			}
			if dep := ID(KindScaffoldTests, ph.Ecosystem); present[dep] {
				ph.DependsOn = append(ph.DependsOn, dep)
			}
		}
		sort.Slice(ph.DependsOn, func(a, b int) bool { return ph.DependsOn[a] < ph.DependsOn[b] })
	}
}
