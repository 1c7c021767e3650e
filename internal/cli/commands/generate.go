package commands

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conduit-lang/fielder/internal/cli/config"
	"github.com/conduit-lang/fielder/internal/cli/ui"
	"github.com/conduit-lang/fielder/internal/compiler/diagnostics"
	"github.com/conduit-lang/fielder/internal/compiler/gosource"
	"github.com/conduit-lang/fielder/internal/compiler/manifest"
	"github.com/conduit-lang/fielder/internal/compiler/processor"
	"github.com/conduit-lang/fielder/internal/compiler/walker"
	"github.com/conduit-lang/fielder/internal/logger"
	"github.com/conduit-lang/fielder/internal/writer"
)

type generateOptions struct {
	dir        string
	manifests  []string
	output     string
	json       bool
	verbose    int
	noColor    bool
	debuggable bool
	tests      bool
}

// passResult is the outcome of one generation pass
type passResult struct {
	diagnostics diagnostics.List
	written     []string
	unchanged   []string
}

// NewGenerateCommand creates the generate command
func NewGenerateCommand() *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:     "generate [packages...]",
		Aliases: []string{"gen", "g"},
		Short:   "Generate <Type>_Fielder.go files for marked types",
		Long: `Run one generation pass.

Go packages matching the given patterns (default: the "patterns" setting,
"./..." unless configured) are loaded and scanned for struct types marked
with the //fielder:generate directive. With --manifest, YAML type manifests
are read instead.

Settings are read from fielder.yml in the working directory and from
FIELDER_* environment variables; flags override both.

Examples:
  fielder generate
  fielder generate ./models/...
  fielder generate --manifest types.yaml --output gen
  fielder generate --json --debuggable=false`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts, args)
			if err != nil {
				return err
			}

			result, err := runPass(cmd.Context(), cmd.ErrOrStderr(), opts, cfg)
			if err != nil {
				return err
			}
			return reportResult(cmd.OutOrStdout(), opts, result)
		},
	}

	addPassFlags(cmd, opts)
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print diagnostics as JSON instead of a summary")

	return cmd
}

// addPassFlags registers the flags shared by generate and watch
func addPassFlags(cmd *cobra.Command, opts *generateOptions) {
	cmd.Flags().StringVarP(&opts.dir, "dir", "C", ".", "Directory to run in")
	cmd.Flags().StringSliceVarP(&opts.manifests, "manifest", "m", nil, "YAML type manifest to process instead of Go packages (repeatable)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Directory for generated files (default: next to each type)")
	cmd.Flags().CountVarP(&opts.verbose, "verbose", "v", "Increase log verbosity (-v, -vv)")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	cmd.Flags().BoolVar(&opts.debuggable, "debuggable", true, "Report progress notes and stack traces")
	cmd.Flags().BoolVar(&opts.tests, "tests", false, "Include _test.go files")
}

// loadConfig reads fielder.yml from the run directory and applies the flags
// the user set explicitly
func loadConfig(cmd *cobra.Command, opts *generateOptions, args []string) (*config.Config, error) {
	cfg, err := config.Load(opts.dir)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("debuggable") {
		cfg.Debuggable = opts.debuggable
	}
	if flags.Changed("output") {
		cfg.Output = opts.output
	}
	if flags.Changed("manifest") {
		cfg.Manifests = opts.manifests
	}
	if flags.Changed("tests") {
		cfg.Tests = opts.tests
	}
	if len(args) > 0 {
		cfg.Patterns = args
	}
	return cfg, nil
}

// source is what the processor needs from a host: the marked elements and a
// way to inspect them
type source interface {
	walker.Introspector
	Targets() []walker.Element
}

// loadSource builds the manifest model when manifests are configured and
// loads Go packages otherwise
func loadSource(ctx context.Context, dir string, cfg *config.Config, log *zap.Logger) (source, error) {
	if len(cfg.Manifests) > 0 {
		paths := make([]string, len(cfg.Manifests))
		for i, m := range cfg.Manifests {
			paths[i] = resolvePath(dir, m)
		}
		model, err := manifest.LoadFiles(afero.NewOsFs(), paths...)
		if err != nil {
			return nil, fmt.Errorf("failed to load manifests: %w", err)
		}
		return model, nil
	}

	src, err := gosource.Load(ctx, gosource.Config{
		Dir:      dir,
		Patterns: cfg.Patterns,
		Tests:    cfg.Tests,
		Logger:   logger.Component(log, "gosource"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load packages: %w", err)
	}
	return src, nil
}

// runPass runs one generation pass. Diagnostics are printed to errOut as they
// arrive unless JSON output was requested.
func runPass(ctx context.Context, errOut io.Writer, opts *generateOptions, cfg *config.Config) (*passResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	log := logger.NewWithWriter(errOut, opts.verbose)
	defer func() { _ = log.Sync() }()

	src, err := loadSource(ctx, opts.dir, cfg, log)
	if err != nil {
		return nil, err
	}

	output := cfg.Output
	if output != "" {
		output = resolvePath(opts.dir, output)
	}
	w := writer.New(afero.NewOsFs(), output, logger.Component(log, "writer"))

	result := &passResult{}
	var reporter diagnostics.Reporter = &result.diagnostics
	if !opts.json {
		reporter = diagnostics.Tee(&result.diagnostics, ui.DiagnosticPrinter(errOut, opts.noColor))
	}

	p := processor.New(src, w, reporter, processor.WithLogger(logger.Component(log, "processor")))
	p.Init(cfg.Options())
	p.Process(src.Targets())

	result.written = w.Written()
	result.unchanged = w.Unchanged()
	return result, nil
}

// reportResult prints the JSON diagnostics or the summary line and turns
// error diagnostics into a command error
func reportResult(out io.Writer, opts *generateOptions, result *passResult) error {
	errCount, _ := result.diagnostics.Count()

	if opts.json {
		data, err := result.diagnostics.ToJSON()
		if err != nil {
			return fmt.Errorf("failed to encode diagnostics: %w", err)
		}
		fmt.Fprintln(out, data)
	} else {
		fmt.Fprintln(out, ui.FormatSummary(len(result.written), len(result.unchanged), errCount, opts.noColor))
	}

	if errCount > 0 {
		return fmt.Errorf("generation failed with %d error(s)", errCount)
	}
	return nil
}

func resolvePath(dir, path string) string {
	if filepath.IsAbs(path) || dir == "" {
		return path
	}
	return filepath.Join(dir, path)
}
