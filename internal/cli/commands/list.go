package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/fielder/internal/cli/config"
	"github.com/conduit-lang/fielder/internal/cli/ui"
	"github.com/conduit-lang/fielder/internal/compiler/codegen"
	"github.com/conduit-lang/fielder/internal/compiler/diagnostics"
	"github.com/conduit-lang/fielder/internal/compiler/processor"
	"github.com/conduit-lang/fielder/internal/logger"
	"github.com/conduit-lang/fielder/internal/writer"
)

// plannedWriter records artifacts instead of writing them
type plannedWriter struct {
	files *writer.FileWriter
	plan  []plannedArtifact
}

type plannedArtifact struct {
	Target   string   `json:"target"`
	Artifact string   `json:"artifact"`
	File     string   `json:"file"`
	Fields   []string `json:"fields"`
}

func (w *plannedWriter) Persist(spec codegen.ArtifactSpec) error {
	path, err := w.files.Claim(spec)
	if err != nil {
		return err
	}
	w.plan = append(w.plan, plannedArtifact{
		Target:   spec.Origin,
		Artifact: spec.Name,
		File:     path,
		Fields:   spec.FieldNames(),
	})
	return nil
}

// NewListCommand creates the list command
func NewListCommand() *cobra.Command {
	opts := &generateOptions{}
	var showFields bool

	cmd := &cobra.Command{
		Use:     "list [packages...]",
		Aliases: []string{"ls"},
		Short:   "Show what generate would write, without writing",
		Long: `Run a generation pass in dry-run mode and print one row per artifact:
the marked type, the generated identifier, the field count and the file it
would be written to. Marked declarations that cannot be generated are
reported as errors.

Examples:
  fielder list
  fielder list --fields ./models/...
  fielder list --manifest types.yaml --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts, args)
			if err != nil {
				return err
			}

			plan, list, err := runPlan(cmd, opts, cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.json {
				data, err := json.MarshalIndent(plan, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to encode plan: %w", err)
				}
				fmt.Fprintln(out, string(data))
			} else {
				renderPlan(out, plan, showFields, opts.noColor)
			}

			errs := list.Errors()
			for _, d := range errs {
				ui.WriteDiagnostic(cmd.ErrOrStderr(), d, opts.noColor)
			}
			if len(errs) > 0 {
				return fmt.Errorf("%d marked declaration(s) cannot be generated", len(errs))
			}
			return nil
		},
	}

	addPassFlags(cmd, opts)
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print the plan as JSON")
	cmd.Flags().BoolVar(&showFields, "fields", false, "Show field names instead of counts")

	return cmd
}

// runPlan runs a pass against a plannedWriter. Notes are dropped; only
// errors are kept.
func runPlan(cmd *cobra.Command, opts *generateOptions, cfg *config.Config) ([]plannedArtifact, diagnostics.List, error) {
	log := logger.NewWithWriter(cmd.ErrOrStderr(), opts.verbose)
	defer func() { _ = log.Sync() }()

	src, err := loadSource(cmd.Context(), opts.dir, cfg, log)
	if err != nil {
		return nil, nil, err
	}

	output := cfg.Output
	if output != "" {
		output = resolvePath(opts.dir, output)
	}
	w := &plannedWriter{
		files: writer.New(afero.NewReadOnlyFs(afero.NewOsFs()), output, nil),
		plan:  []plannedArtifact{},
	}

	var list diagnostics.List
	p := processor.New(src, w, &list, processor.WithLogger(logger.Component(log, "processor")))
	p.Init(map[string]string{processor.OptionDebuggable: "false"})
	p.Process(src.Targets())

	return w.plan, list, nil
}

func renderPlan(out io.Writer, plan []plannedArtifact, showFields, noColor bool) {
	if len(plan) == 0 {
		fmt.Fprintln(out, "No marked types found.")
		return
	}

	table := ui.NewTable(out, noColor, "Target", "Artifact", "Fields", "File")
	for _, a := range plan {
		fields := strconv.Itoa(len(a.Fields))
		if showFields {
			fields = strings.Join(a.Fields, ", ")
		}
		table.AddRow(a.Target, a.Artifact, fields, a.File)
	}
	table.Render()
}
