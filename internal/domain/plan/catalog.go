// Package plan builds transformation plans from audit findings.
package plan

import (
	"github.com/repoforge/repoforge/internal/domain"
)

// Phase kinds. Per-ecosystem instances get ids of the form
// "<kind>@<ecosystem>"; repository-wide kinds use the bare kind as id.
const (
	KindWriteIgnoreRules  = "write-ignore-rules"
	KindUntrackSecrets    = "untrack-secrets"
	KindNormalizeManifest = "normalize-manifest"
	KindAddCIWorkflow     = "add-ci-workflow"
	KindScaffoldTests     = "scaffold-tests"
	KindAddReadme         = "add-readme"
)

// perEcosystem lists kinds instantiated once per detected ecosystem.
var perEcosystem = map[string]bool{
	KindWriteIgnoreRules:  true,
	KindNormalizeManifest: true,
	KindAddCIWorkflow:     true,
	KindScaffoldTests:     true,
}

// ID derives the phase id for a kind within an ecosystem.
func ID(kind, ecosystem string) domain.PhaseID {
	if perEcosystem[kind] && ecosystem != "" {
		return domain.PhaseID(kind + "@" + ecosystem)
	}
	return domain.PhaseID(kind)
}

// template holds the static shape of a catalog phase.
type template struct {
	kind        string
	destructive bool
	verify      bool
	description string
}

var catalog = map[string]template{
	KindWriteIgnoreRules: {
		kind:        KindWriteIgnoreRules,
		description: "add missing ignore rules for build artifacts and local files",
	},
	KindUntrackSecrets: {
		kind:        KindUntrackSecrets,
		destructive: true,
		description: "remove secret files from version control and ignore them",
	},
	KindNormalizeManifest: {
		kind:        KindNormalizeManifest,
		verify:      true,
		description: "normalize the packaging manifest",
	},
	KindAddCIWorkflow: {
		kind:        KindAddCIWorkflow,
		description: "add a CI workflow running the ecosystem's build and tests",
	},
	KindScaffoldTests: {
		kind:        KindScaffoldTests,
		verify:      true,
		description: "create placeholder tests for untested source files",
	},
	KindAddReadme: {
		kind:        KindAddReadme,
		description: "create a README stub",
	},
}
