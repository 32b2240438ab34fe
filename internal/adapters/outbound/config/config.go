// Package config loads .repoforge.yaml with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	koanfyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const fileName = ".repoforge.yaml"

var defaultsYAML = []byte(`
workers: 4
verbose: false
`)

// Config is the orchestrator's own configuration, distinct from the
// capability table. Precedence: env (REPOFORGE_*) > .repoforge.yaml >
// defaults.
type Config struct {
	Workers int  `koanf:"workers"`
	Verbose bool `koanf:"verbose"`

	// CapabilityOverrides is the raw project file content; its
	// `ecosystems:` section is overlaid onto the capability registry.
	CapabilityOverrides []byte `koanf:"-"`
}

// Load reads configuration for the repository at repoRoot. A missing
// .repoforge.yaml is not an error.
func Load(repoRoot string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(defaultsYAML), koanfyaml.Parser()); err != nil {
		return nil, fmt.Errorf("parsing config defaults: %w", err)
	}

	var raw []byte
	data, err := os.ReadFile(filepath.Join(repoRoot, fileName))
	switch {
	case err == nil:
		raw = data
		if err := k.Load(rawbytes.Provider(data), koanfyaml.Parser()); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", fileName, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// defaults only
	default:
		return nil, fmt.Errorf("reading %s: %w", fileName, err)
	}

	// REPOFORGE_WORKERS=8 -> workers, REPOFORGE_VERBOSE=true -> verbose.
	if err := k.Load(env.Provider("REPOFORGE_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "REPOFORGE_")), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	cfg.CapabilityOverrides = raw
	return &cfg, nil
}
