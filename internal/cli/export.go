package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

type exportFlags struct {
	sourceFlags
	dryRun bool
}

func newExportCommand(a *app) *cobra.Command {
	flags := &exportFlags{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export highlights to Markdown once",
		Long: `Export reads every highlight from Apple Books and writes one Markdown file per
book into the output directory. Existing files are overwritten; their themes and
status fields are kept. Books without any highlight text are left untouched.

On macOS the databases are found under
~/Library/Containers/com.apple.iBooksX/Data/Documents. Elsewhere pass copies of
them with --annotation-db and --book-db, or export a saved snapshot with
--archive PATH --from-archive.`,
		Example: `  # Export to ./highlights (auto-detect Apple Books databases on macOS):
  highlights export

  # Export to an Obsidian vault and keep a snapshot:
  highlights export -o ~/Obsidian/Books --archive ~/.highlights/archive.db

  # Preview what would be exported:
  highlights export --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runExport(cmd, *flags)
		},
	}

	addSourceFlags(cmd, &flags.sourceFlags)
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Show what would be exported without writing files")

	return cmd
}

func (a *app) runExport(cmd *cobra.Command, flags exportFlags) error {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "📚 Apple Books Export")
	fmt.Fprintln(out, "=====================")

	if flags.dryRun {
		fmt.Fprintln(out, "🔍 DRY RUN MODE - No changes will be made")
		fmt.Fprintln(out)
	}

	s, err := a.newSetup(flags.sourceFlags)
	if err != nil {
		return err
	}
	defer s.Close()

	s.describe(out)

	if flags.dryRun {
		documents, err := s.pipeline.Preview(cmd.Context())
		if err != nil {
			return err
		}
		if len(documents) == 0 {
			fmt.Fprintln(out, "\nℹ️  No books with highlights found")
			return nil
		}

		fmt.Fprintln(out, "\n=== Files ===")
		for i, doc := range documents {
			if !doc.Renderable() {
				fmt.Fprintf(out, "%d. %s (skipped, no highlight text)\n", i+1, doc.Filename)
				continue
			}
			fmt.Fprintf(out, "%d. %s (%d highlights", i+1, doc.Filename, doc.Book.Count())
			if doc.Sources > 1 {
				fmt.Fprintf(out, ", merged from %d books", doc.Sources)
			}
			fmt.Fprintln(out, ")")
		}
		fmt.Fprintln(out, "\n✅ Dry run complete. Use without --dry-run to export.")
		return nil
	}

	fmt.Fprintln(out, "\n📖 Reading highlights...")
	result, err := s.pipeline.Import(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "📚 Found %d books with %d total highlights\n", result.BooksFetched, result.HighlightsFetched)

	fmt.Fprintln(out, "\n=== Export Summary ===")
	fmt.Fprintf(out, "📄 Files written: %d\n", result.Export.BooksProcessed)
	fmt.Fprintf(out, "📝 Highlights exported: %d\n", result.Export.HighlightsProcessed)
	if result.Export.BooksSkipped > 0 {
		fmt.Fprintf(out, "⏭️  Skipped (no highlight text): %d\n", result.Export.BooksSkipped)
	}
	if result.Snapshot != nil {
		fmt.Fprintf(out, "🗄️  Snapshot saved: %s\n", result.Snapshot.ID)
	}

	if a.verbose {
		for _, file := range result.Export.Files {
			fmt.Fprintf(out, "  → %s\n", file)
		}
	}

	fmt.Fprintln(out, "\n✅ Export complete!")
	return nil
}
