// Package registry holds the per-ecosystem capability table: a pure
// lookup built once at startup from embedded defaults plus optional
// project overrides.
package registry

import (
	"fmt"

	koanfyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/repoforge/repoforge/internal/domain"
)

// Registry implements domain.CapabilityRegistry. Immutable after Load.
type Registry struct {
	sets map[string]domain.CapabilitySet
}

// Load builds the registry from the embedded defaults, overlaying any
// project-level override YAML (the `ecosystems:` section of
// .repoforge.yaml). Later loads win key-by-key.
func Load(overrides []byte) (*Registry, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(defaultsYAML), koanfyaml.Parser()); err != nil {
		return nil, fmt.Errorf("parsing default capabilities: %w", err)
	}
	if len(overrides) > 0 {
		if err := k.Load(rawbytes.Provider(overrides), koanfyaml.Parser()); err != nil {
			return nil, fmt.Errorf("parsing capability overrides: %w", err)
		}
	}

	var table struct {
		Ecosystems map[string]domain.CapabilitySet `koanf:"ecosystems"`
	}
	if err := k.Unmarshal("", &table); err != nil {
		return nil, fmt.Errorf("decoding capability table: %w", err)
	}

	sets := make(map[string]domain.CapabilitySet, len(table.Ecosystems))
	for id, caps := range table.Ecosystems {
		caps.Ecosystem = id
		sets[id] = caps
	}
	return &Registry{sets: sets}, nil
}

// Get returns the capability set for an ecosystem, or
// domain.ErrUnknownEcosystem. Callers fall back to
// domain.GenericCapabilities for unknown ecosystems.
func (r *Registry) Get(ecosystem string) (domain.CapabilitySet, error) {
	caps, ok := r.sets[ecosystem]
	if !ok {
		return domain.CapabilitySet{}, fmt.Errorf("%w: %s", domain.ErrUnknownEcosystem, ecosystem)
	}
	return caps, nil
}

// Ecosystems returns the registered ecosystem ids.
func (r *Registry) Ecosystems() []string {
	out := make([]string, 0, len(r.sets))
	for id := range r.sets {
		out = append(out, id)
	}
	return out
}
