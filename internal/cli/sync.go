package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mrlokans/highlights/internal/scheduler"
)

func newSyncCommand(a *app) *cobra.Command {
	flags := &sourceFlags{}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Keep the Markdown export up to date",
		Long: `Sync exports once, then again on a cron schedule and, with --watch, whenever
the Apple Books annotation database changes. It runs until interrupted.`,
		Example: `  # Hourly export (default schedule "0 * * * *"):
  highlights sync -o ~/Obsidian/Books

  # Export within seconds of a new highlight:
  highlights sync -o ~/Obsidian/Books --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSync(cmd, *flags)
		},
	}

	addSourceFlags(cmd, flags)
	cmd.Flags().String("schedule", "", `Cron schedule (env SYNC_SCHEDULE, default "0 * * * *")`)
	cmd.Flags().Bool("watch", false, "Also export when the annotation database changes (env SYNC_WATCH)")
	cmd.Flags().Duration("debounce", 0, "Quiet period after a change before exporting (env SYNC_DEBOUNCE, default 2s)")

	return cmd
}

func (a *app) runSync(cmd *cobra.Command, flags sourceFlags) error {
	out := cmd.OutOrStdout()
	cfg := a.cfg

	if flags.fromArchive && cfg.Sync.Watch {
		return errors.New("--watch cannot be combined with --from-archive")
	}

	s, err := a.newSetup(flags)
	if err != nil {
		return err
	}
	defer s.Close()

	options := scheduler.Options{
		Schedule: cfg.Sync.Schedule,
		Debounce: cfg.Sync.Debounce,
	}
	if cfg.Sync.Watch {
		options.WatchDir = filepath.Dir(s.paths.AnnotationDB)
	}
	if err := scheduler.ValidateCronSchedule(options.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", options.Schedule, err)
	}

	fmt.Fprintln(out, "🔄 Apple Books Sync")
	fmt.Fprintln(out, "===================")
	s.describe(out)
	fmt.Fprintf(out, "⏰ Schedule: %s\n", options.Schedule)
	if options.WatchDir != "" {
		fmt.Fprintf(out, "👀 Watching: %s\n", options.WatchDir)
	}
	fmt.Fprintln(out, "\nPress Ctrl+C to stop.")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return scheduler.NewExportSync(s.pipeline, options, a.logger).Run(ctx)
}
