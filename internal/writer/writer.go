// Package writer stores rendered artifacts on a filesystem.
package writer

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/conduit-lang/fielder/internal/compiler/codegen"
	"github.com/conduit-lang/fielder/internal/logger"
)

// FileWriter renders artifacts to Go files. Files go to OutputDir when it is
// set and next to the target's source otherwise.
type FileWriter struct {
	fs        afero.Fs
	outputDir string
	logger    *zap.Logger

	written   []string
	unchanged []string
	// claimed maps each path handed out since the last Reset to the
	// target it belongs to.
	claimed map[string]string
}

// New creates a writer on fs. An empty outputDir places every file in the
// directory of its target's source, falling back to the working directory.
func New(fs afero.Fs, outputDir string, log *zap.Logger) *FileWriter {
	if log == nil {
		log = zap.NewNop()
	}
	return &FileWriter{fs: fs, outputDir: outputDir, logger: log, claimed: make(map[string]string)}
}

// Path returns the file spec is written to.
func (w *FileWriter) Path(spec codegen.ArtifactSpec) string {
	dir := w.outputDir
	if dir == "" {
		dir = spec.Dir
	}
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, codegen.FileName(spec))
}

// Claim reserves the file for spec. Two targets from different packages
// can share a generated name; with a common output directory they would
// land on the same file, so the second claim fails.
func (w *FileWriter) Claim(spec codegen.ArtifactSpec) (string, error) {
	path := w.Path(spec)
	if owner, ok := w.claimed[path]; ok {
		return "", errors.WithHint(
			errors.Newf("%s is already generated for %s", path, owner),
			"write artifacts next to their sources or give the packages separate output directories",
		)
	}
	w.claimed[path] = spec.Origin
	return path, nil
}

// Persist renders spec and writes it. A file that already holds the same
// bytes is left untouched.
func (w *FileWriter) Persist(spec codegen.ArtifactSpec) error {
	src, err := codegen.Render(spec)
	if err != nil {
		return err
	}

	path, err := w.Claim(spec)
	if err != nil {
		return err
	}
	existing, err := afero.ReadFile(w.fs, path)
	if err == nil && bytes.Equal(existing, src) {
		w.logger.Debug("artifact unchanged", zap.String(logger.FieldFile, path))
		w.unchanged = append(w.unchanged, path)
		return nil
	}
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "read %s", path)
	}

	if err := w.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create directory for %s", path)
	}
	if err := afero.WriteFile(w.fs, path, src, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}

	w.logger.Debug("artifact written",
		zap.String(logger.FieldFile, path),
		zap.Int("fields", len(spec.Fields)))
	w.written = append(w.written, path)
	return nil
}

// Written returns the files written since the last Reset.
func (w *FileWriter) Written() []string {
	return append([]string(nil), w.written...)
}

// Unchanged returns the files that already held the rendered bytes.
func (w *FileWriter) Unchanged() []string {
	return append([]string(nil), w.unchanged...)
}

// Reset clears the written, unchanged and claimed files.
func (w *FileWriter) Reset() {
	w.written = nil
	w.unchanged = nil
	w.claimed = make(map[string]string)
}
