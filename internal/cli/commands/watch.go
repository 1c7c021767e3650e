package commands

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/fielder/internal/cli/config"
	"github.com/conduit-lang/fielder/internal/logger"
	"github.com/conduit-lang/fielder/internal/watch"
)

var (
	watchPatterns = []string{"*.go", "*.yaml", "*.yml"}
	// Generated files must not retrigger a pass.
	watchIgnored = []string{"*_Fielder.go", "*.swp", "*.swo", "*~"}
)

// NewWatchCommand creates the watch command
func NewWatchCommand() *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "watch [packages...]",
		Short: "Regenerate whenever sources change",
		Long: `Run a generation pass, then watch the directory tree and run another
pass whenever a .go or manifest file changes.

Generated *_Fielder.go files are ignored, and unchanged output is never
rewritten, so a pass does not trigger itself.

Examples:
  fielder watch
  fielder watch --manifest types.yaml -v`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts, args)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runWatch(ctx, cmd, opts, cfg)
		},
	}

	addPassFlags(cmd, opts)

	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, opts *generateOptions, cfg *config.Config) error {
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	// Debounced flushes may overlap; passes must not.
	var mu sync.Mutex
	pass := func() {
		mu.Lock()
		defer mu.Unlock()
		result, err := runPass(ctx, errOut, opts, cfg)
		if err != nil {
			color.New(color.FgRed).Fprintf(errOut, "Error: %v\n", err)
			return
		}
		_ = reportResult(out, opts, result)
	}

	pass()

	log := logger.Component(logger.NewWithWriter(errOut, opts.verbose), "watch")
	watcher, err := watch.NewFileWatcher(opts.dir, watchPatterns, watchIgnored, func(files []string) error {
		fmt.Fprintf(out, "\n%d file(s) changed, regenerating...\n", len(files))
		pass()
		return nil
	}, log)
	if err != nil {
		return err
	}
	if err := watcher.Start(); err != nil {
		_ = watcher.Stop()
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	color.New(color.FgYellow).Fprintln(out, "Watching for changes. Press Ctrl+C to stop.")

	<-ctx.Done()

	fmt.Fprintln(out, "\nShutting down...")
	if err := watcher.Stop(); err != nil {
		return fmt.Errorf("error stopping watcher: %w", err)
	}
	return nil
}
