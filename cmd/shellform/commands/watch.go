package commands

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/shellform/shellform/pkg/telemetry"
)

// watchDebounce coalesces the burst of events editors emit on save.
const watchDebounce = 250 * time.Millisecond

func newWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-plan whenever the manifest changes",
		Long: `Watch the manifest file and re-run planning on every change. Useful
while authoring a manifest: each save shows what apply would do. Lifecycle
commands never run; stop with Ctrl+C.`,
		Example: `  # Watch the default manifest
  shellform watch

  # Watch a specific manifest
  shellform watch -f infra.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return err
			}
			defer watcher.Close()

			// Watch the directory, not the file: editors replace files on
			// save, which would drop a file-level watch.
			dir := filepath.Dir(manifestPath)
			if err := watcher.Add(dir); err != nil {
				return err
			}

			replan(ctx)

			var timer *time.Timer
			var fire <-chan time.Time
			for {
				select {
				case <-ctx.Done():
					return nil
				case event, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					if filepath.Clean(event.Name) != filepath.Clean(manifestPath) {
						continue
					}
					if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
						continue
					}
					if timer == nil {
						timer = time.NewTimer(watchDebounce)
						fire = timer.C
					} else {
						timer.Reset(watchDebounce)
					}
				case err, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					return err
				case <-fire:
					timer = nil
					fire = nil
					replan(ctx)
				}
			}
		},
	}
	return cmd
}

// replan runs one plan pass, reporting failures without stopping the loop.
func replan(ctx context.Context) {
	rt, err := newRuntime(ctx, true)
	if err != nil {
		// The manifest is mid-edit more often than not; keep watching.
		telemetry.NewLogger(telemetry.LoggerOptions{Level: logLevel, Console: true}).
			Warn().Err(err).Msg("plan skipped")
		return
	}
	defer rt.close(ctx)

	actions, err := planActions(ctx, rt)
	for _, a := range actions {
		printAction(rt, a)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		rt.logger.Warn().Err(err).Msg("planning reported errors")
	}
	rt.logger.Info().Msg("watching for changes")
}
