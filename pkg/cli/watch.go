package cli

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/platinummonkey/protomerge/pkg/report"
)

type watchOptions struct {
	mergeFlags
	format        string
	noColor       bool
	conflictsOnly bool
	debounce      time.Duration
}

func newWatchCommand() *cobra.Command {
	opts := &watchOptions{}
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-merge whenever a .proto file changes",
		Long: `Merge once, then watch every version directory and merge again after a
.proto file is written, created, removed or renamed. Unchanged sources are served
from the merge cache. Stops on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), cmd, opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json, yaml")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colored text output")
	cmd.Flags().BoolVar(&opts.conflictsOnly, "conflicts-only", false, "Only list fields with conflicts or renames")
	cmd.Flags().DurationVar(&opts.debounce, "debounce", 300*time.Millisecond, "Quiet period after the last change before merging")

	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, opts *watchOptions) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}

	format, err := report.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	r, err := newRunner(ctx, cmd, &opts.mergeFlags)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := r.close(ctx); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	ctx, stop := r.shutdown.NotifyContext(ctx)
	defer stop()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	for _, v := range r.plan.Versions {
		if err := watchTree(watcher, v.Dir); err != nil {
			return fmt.Errorf("watching version %s: %w", v.Name, err)
		}
	}
	for _, dir := range r.plan.ImportPaths {
		if err := watchTree(watcher, dir); err != nil {
			return fmt.Errorf("watching import path %s: %w", dir, err)
		}
	}

	renderOpts := report.Options{NoColor: opts.noColor, ConflictsOnly: opts.conflictsOnly}
	render := func() {
		merged, err := r.run(ctx)
		if err != nil {
			r.logger.WithError(err).Error("merge failed")
			fmt.Fprintf(cmd.ErrOrStderr(), "merge failed: %v\n", err)
			return
		}
		if err := report.Render(cmd.OutOrStdout(), merged, format, renderOpts); err != nil {
			r.logger.WithError(err).Error("rendering report failed")
		}
	}

	render()
	r.logger.Infof("Watching %d version directories and %d import paths for .proto changes",
		len(r.plan.Versions), len(r.plan.ImportPaths))

	// Idle until the first change resets it to the debounce period
	timer := time.NewTimer(time.Hour)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Watch stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create != 0 {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					if err := watchTree(watcher, event.Name); err != nil {
						r.logger.WithError(err).Warnf("Error watching new directory %s", event.Name)
					}
					timer.Reset(opts.debounce)
					continue
				}
			}
			if filepath.Ext(event.Name) != ".proto" {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				r.logger.WithField("file", event.Name).Debug("proto file changed")
				timer.Reset(opts.debounce)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.WithError(err).Warn("Watcher error")

		case <-timer.C:
			fmt.Fprintln(cmd.OutOrStdout())
			render()
		}
	}
}

// watchTree adds root and every directory below it, skipping hidden directories
func watchTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
