package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repoforge/repoforge/internal/adapters/outbound/registry"
	"github.com/repoforge/repoforge/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	reg, err := registry.Load(nil)
	require.NoError(t, err)

	caps, err := reg.Get("go-like")
	require.NoError(t, err)
	assert.Equal(t, "go-like", caps.Ecosystem)
	assert.Equal(t, []string{"go", "build", "./..."}, caps.Build.Argv)
	assert.Equal(t, []string{"go", "test", "./..."}, caps.Test.Argv)
	assert.Equal(t, "go.mod", caps.Manifest.File)
	assert.Equal(t, "go.yml", caps.CIWorkflowFile)
	assert.Contains(t, caps.IgnorePatterns, ".env")
	assert.NotEmpty(t, caps.CITemplate)
	assert.Positive(t, caps.LargeFileBytes)
}

func TestLoad_AllDefaultEcosystemsPresent(t *testing.T) {
	reg, err := registry.Load(nil)
	require.NoError(t, err)
	assert.ElementsMatch(t,
		[]string{"go-like", "node-like", "python-like", "rust-like", "jvm-like"},
		reg.Ecosystems())
}

func TestGet_UnknownEcosystem(t *testing.T) {
	reg, err := registry.Load(nil)
	require.NoError(t, err)

	_, err = reg.Get("cobol-like")
	require.ErrorIs(t, err, domain.ErrUnknownEcosystem)
}

func TestLoad_OverridesWinKeyByKey(t *testing.T) {
	overrides := []byte(`
ecosystems:
  go-like:
    test: { argv: ["gotestsum", "./..."], timeout_seconds: 60 }
  zig-like:
    test: { argv: ["zig", "build", "test"] }
    manifest: { file: "build.zig" }
`)
	reg, err := registry.Load(overrides)
	require.NoError(t, err)

	goCaps, err := reg.Get("go-like")
	require.NoError(t, err)
	assert.Equal(t, []string{"gotestsum", "./..."}, goCaps.Test.Argv)
	assert.Equal(t, 60, goCaps.Test.TimeoutSeconds)

	zig, err := reg.Get("zig-like")
	require.NoError(t, err)
	assert.Equal(t, "build.zig", zig.Manifest.File)
}

func TestLoad_MalformedOverridesRejected(t *testing.T) {
	_, err := registry.Load([]byte("ecosystems: [not: a: map"))
	require.Error(t, err)
}
