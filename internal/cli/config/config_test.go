package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// No config file: defaults apply
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.True(t, cfg.Debuggable)
	assert.Equal(t, "", cfg.Output)
	assert.Equal(t, []string{"./..."}, cfg.Patterns)
	assert.Empty(t, cfg.Manifests)
	assert.False(t, cfg.Tests)
}

func TestLoadWithConfigFile(t *testing.T) {
	tmpDir := t.TempDir()

	configContent := `
debuggable: false
output: gen
patterns:
  - ./models/...
manifests:
  - types.yaml
tests: true
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "fielder.yml"), []byte(configContent), 0644))

	cfg, err := Load(tmpDir)
	require.NoError(t, err)

	assert.False(t, cfg.Debuggable)
	assert.Equal(t, "gen", cfg.Output)
	assert.Equal(t, []string{"./models/..."}, cfg.Patterns)
	assert.Equal(t, []string{"types.yaml"}, cfg.Manifests)
	assert.True(t, cfg.Tests)
}

func TestLoadEnvironmentOverride(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("FIELDER_DEBUGGABLE", "false")
	t.Setenv("FIELDER_OUTPUT", "out")

	cfg, err := Load(tmpDir)
	require.NoError(t, err)

	assert.False(t, cfg.Debuggable)
	assert.Equal(t, "out", cfg.Output)
}

func TestLoadInvalidFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "fielder.yaml"), []byte("patterns: [\n"), 0644))

	_, err := Load(tmpDir)
	assert.Error(t, err)
}

func TestOptions(t *testing.T) {
	cfg := &Config{Debuggable: false, Output: "gen"}

	opts := cfg.Options()

	assert.Equal(t, "false", opts["debuggable"])
	assert.Equal(t, "gen", opts["output"])
}

func TestFindConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	assert.Equal(t, "", FindConfigFile(tmpDir))

	path := filepath.Join(tmpDir, "fielder.yaml")
	require.NoError(t, os.WriteFile(path, []byte(""), 0644))
	assert.Equal(t, path, FindConfigFile(tmpDir))
}

func TestValidateConfig(t *testing.T) {
	assert.Error(t, validateConfig(&Config{}))
	assert.NoError(t, validateConfig(&Config{Manifests: []string{"a.yaml"}}))
	assert.Error(t, validateConfig(&Config{Manifests: []string{""}}))
}
