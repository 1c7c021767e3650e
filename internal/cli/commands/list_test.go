package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runList(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewListCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestList_Table(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "types.yaml"), testManifest)

	stdout, _, err := runList(t, "--dir", dir, "--manifest", "types.yaml", "--no-color")
	require.NoError(t, err)

	assert.Contains(t, stdout, "Target")
	assert.Regexp(t, `com\.example\.app\.User\s+User_Fielder\s+4\s+`, stdout)
	assert.Regexp(t, `com\.example\.app\.User\.Profile\s+User_Profile_Fielder\s+1\s+`, stdout)

	// Nothing is written.
	_, err = os.Stat(filepath.Join(dir, "User_Fielder.go"))
	assert.True(t, os.IsNotExist(err))
}

func TestList_Fields(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "types.yaml"), testManifest)

	stdout, _, err := runList(t, "--dir", dir, "--manifest", "types.yaml", "--fields", "--no-color")
	require.NoError(t, err)
	assert.Contains(t, stdout, "a, m, q, z")
}

func TestList_JSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "types.yaml"), testManifest)

	stdout, _, err := runList(t, "--dir", dir, "--manifest", "types.yaml", "--json", "--output", "gen")
	require.NoError(t, err)

	var plan []plannedArtifact
	require.NoError(t, json.Unmarshal([]byte(stdout), &plan))
	require.Len(t, plan, 2)
	assert.Equal(t, "com.example.app.User", plan[0].Target)
	assert.Equal(t, []string{"a", "m", "q", "z"}, plan[0].Fields)
	assert.Equal(t, filepath.Join(dir, "gen", "User_Fielder.go"), plan[0].File)
}

func TestList_ReportsUngeneratableTargets(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "types.yaml"), "package: app\ntypes:\n  - name: Shape\n    kind: interface\n    marked: true\n")

	stdout, stderr, err := runList(t, "--dir", dir, "--manifest", "types.yaml", "--no-color")
	require.Error(t, err)
	assert.Contains(t, stdout, "No marked types found.")
	assert.Contains(t, stderr, "FLD001")
}
