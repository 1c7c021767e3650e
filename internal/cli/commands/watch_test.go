package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer is a bytes.Buffer safe for the watcher's goroutines
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchCommand_Creation(t *testing.T) {
	cmd := NewWatchCommand()

	require.NotNil(t, cmd)
	assert.Equal(t, "watch [packages...]", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)
}

func TestWatchCommand_Flags(t *testing.T) {
	cmd := NewWatchCommand()

	for _, name := range []string{"dir", "manifest", "output", "verbose", "no-color", "debuggable"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "expected --%s flag", name)
	}
	assert.Nil(t, cmd.Flags().Lookup("json"), "watch prints summaries only")
}

func TestWatchIgnoresGeneratedFiles(t *testing.T) {
	assert.Contains(t, watchIgnored, "*_Fielder.go")
	assert.Contains(t, watchPatterns, "*.go")
	assert.Contains(t, watchPatterns, "*.yaml")
}

func TestRunWatch_RegeneratesOnChange(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "types.yaml")
	writeFile(t, manifestPath, testManifest)

	var out, errOut syncBuffer
	cmd := NewWatchCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	require.NoError(t, cmd.Flags().Set("dir", dir))
	require.NoError(t, cmd.Flags().Set("manifest", "types.yaml"))
	require.NoError(t, cmd.Flags().Set("no-color", "true"))

	opts := &generateOptions{dir: dir, noColor: true}
	cfg, err := loadConfig(cmd, opts, nil)
	require.NoError(t, err)
	cfg.Manifests = []string{"types.yaml"}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runWatch(ctx, cmd, opts, cfg) }()

	assert.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, "User_Fielder.go"))
		return err == nil
	}, 2*time.Second, 20*time.Millisecond, "initial pass did not run")

	// Give the watcher time to register directories
	time.Sleep(200 * time.Millisecond)
	writeFile(t, manifestPath, testManifest+`  - name: Order
    marked: true
    fields: [total]
`)

	assert.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, "Order_Fielder.go"))
		return err == nil
	}, 3*time.Second, 20*time.Millisecond, "change did not trigger a pass")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}

	assert.Contains(t, out.String(), "Watching for changes")
	assert.Contains(t, out.String(), "file(s) changed, regenerating")
}
