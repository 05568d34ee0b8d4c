// Package cli implements the highlights command line.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mrlokans/highlights/internal/config"
	"github.com/mrlokans/highlights/internal/logging"
)

// BuildInfo is set at build time via ldflags.
type BuildInfo struct {
	Version string
	Commit  string
}

// app carries state shared by every subcommand of one invocation.
type app struct {
	verbose bool
	cfg     *config.Config
	logger  *zap.Logger
}

// NewRootCommand builds the command tree.
func NewRootCommand(info BuildInfo) *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "highlights",
		Short: "Export Apple Books highlights to Markdown",
		Long: `highlights reads the Apple Books annotation and library databases and writes
one Markdown file per book. Edits to the themes and status front-matter fields
survive repeated exports.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewConfig(cmd.Flags())
			if err != nil {
				return err
			}

			level := cfg.Log.Level
			if a.verbose {
				level = "debug"
			}
			logger, err := logging.New(level)
			if err != nil {
				return err
			}

			a.cfg = cfg
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")
	root.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (env LOG_LEVEL)")

	root.AddCommand(
		newExportCommand(a),
		newSyncCommand(a),
		newVersionCommand(info),
	)

	return root
}

// Execute runs the root command and exits non-zero on failure.
// This is called by main.main().
func Execute(info BuildInfo) {
	if err := NewRootCommand(info).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
