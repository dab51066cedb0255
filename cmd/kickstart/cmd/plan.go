package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/kickstart/internal/plan"
	"github.com/GoCodeAlone/kickstart/logging"
	"github.com/GoCodeAlone/kickstart/manifest"
)

// watchDebounce collapses the burst of events editors emit on save.
const watchDebounce = 100 * time.Millisecond

// NewPlanCommand creates the plan command.
func NewPlanCommand() *cobra.Command {
	var (
		pluginDir string
		watch     bool
		verbose   bool
	)

	cmd := &cobra.Command{
		Use:   "plan <manifest>",
		Short: "Dry-run a bootstrap manifest",
		Long: `Plan loads a bootstrap manifest (YAML, TOML or JSON), runs the configuration
pipeline against stand-in modules and prints the activation order, the global
resource imports and the composed root. With --watch it re-plans whenever the
manifest changes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := plan.Options{PluginDir: pluginDir}
			if verbose {
				opts.Logger = logging.NewSlogAppender(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil)))
			}

			err := runPlan(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
			if !watch {
				return err
			}
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err)
			}
			return watchManifest(cmd.Context(), args[0], func() {
				if err := runPlan(cmd.Context(), cmd.OutOrStdout(), args[0], opts); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err)
				}
			})
		},
	}

	cmd.Flags().StringVar(&pluginDir, "plugins", "", "Directory of Lua plugins")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-plan when the manifest changes")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log framework activity to stderr")

	return cmd
}

// runPlan loads the manifest at name, dry-runs it and writes the plan to out.
func runPlan(ctx context.Context, out io.Writer, name string, opts plan.Options) error {
	if ctx == nil {
		ctx = context.Background()
	}

	m, err := manifest.Load(name)
	if err != nil {
		return err
	}

	p, err := plan.Build(ctx, m, opts)
	if p != nil {
		if writeErr := p.Write(out); writeErr != nil {
			return errors.Join(err, writeErr)
		}
	}
	if err != nil {
		return fmt.Errorf("plan failed: %w", err)
	}
	return nil
}

// watchManifest calls onChange after each write to name until ctx ends.
// The directory is watched so editors that replace the file are seen.
func watchManifest(ctx context.Context, name string, onChange func()) error {
	if ctx == nil {
		ctx = context.Background()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(name)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", name, err)
	}

	debounce := time.NewTimer(watchDebounce)
	debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			debounce.Reset(watchDebounce)

		case <-debounce.C:
			onChange()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch failed: %w", err)
		}
	}
}
