package cli

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mrlokans/highlights/internal/applebooks"
	"github.com/mrlokans/highlights/internal/database"
	"github.com/mrlokans/highlights/internal/exporters"
	"github.com/mrlokans/highlights/internal/importers"
)

// sourceFlags are shared by export and sync.
type sourceFlags struct {
	fromArchive bool
}

func addSourceFlags(cmd *cobra.Command, flags *sourceFlags) {
	cmd.Flags().String("annotation-db", "", "Path to Apple Books annotation database (auto-detected if not specified)")
	cmd.Flags().String("book-db", "", "Path to Apple Books library database (auto-detected if not specified)")
	cmd.Flags().String("container", "", "Apple Books documents directory searched for the databases")
	cmd.Flags().StringP("output", "o", "", "Output directory for markdown files (env EXPORT_DIR, default ./highlights)")
	cmd.Flags().String("archive", "", "Snapshot database; each fetched library is saved there before export")
	cmd.Flags().BoolVar(&flags.fromArchive, "from-archive", false, "Export the library stored in --archive instead of reading Apple Books")
}

// setup is everything one export pass needs.
type setup struct {
	pipeline  *importers.Pipeline
	paths     *applebooks.Paths
	archive   string
	outputDir string
	closers   []io.Closer
}

func (s *setup) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func (a *app) newSetup(flags sourceFlags) (*setup, error) {
	cfg := a.cfg
	s := &setup{archive: cfg.Archive.Path}

	outputDir, err := filepath.Abs(cfg.Export.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for output: %w", err)
	}
	s.outputDir = outputDir
	exporter := exporters.NewMarkdownExporter(outputDir, a.logger)

	var db *database.Database
	if cfg.Archive.Path != "" {
		db, err = database.NewDatabase(cfg.Archive.Path, a.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open archive: %w", err)
		}
		s.closers = append(s.closers, db)
	}

	if flags.fromArchive {
		if db == nil {
			return nil, errors.New("--from-archive requires --archive or ARCHIVE_PATH")
		}
		s.pipeline = importers.NewPipeline(db, exporter)
		return s, nil
	}

	paths, err := applebooks.ResolvePaths(cfg.AppleBooks.Container, cfg.AppleBooks.AnnotationDB, cfg.AppleBooks.BookDB)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.paths = &paths

	s.pipeline = importers.NewPipeline(applebooks.NewQuery(applebooks.NewConnection(paths)), exporter)
	if db != nil {
		s.pipeline.WithArchiver(db)
	}
	return s, nil
}

func (s *setup) describe(w io.Writer) {
	if s.paths != nil {
		fmt.Fprintf(w, "📁 Annotation DB: %s\n", s.paths.AnnotationDB)
		fmt.Fprintf(w, "📁 Book DB: %s\n", s.paths.BookDB)
	} else {
		fmt.Fprintf(w, "🗄️  Source archive: %s\n", s.archive)
	}
	if s.paths != nil && s.archive != "" {
		fmt.Fprintf(w, "🗄️  Archive: %s\n", s.archive)
	}
	fmt.Fprintf(w, "📝 Output: %s\n", s.outputDir)
}
