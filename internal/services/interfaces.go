package services

import (
	"context"
	"time"

	"github.com/mrlokans/highlights/internal/entities"
	"github.com/mrlokans/highlights/internal/exporters"
)

// LibrarySource provides read-only access to a highlight library.
// Implemented by the Apple Books query and by the snapshot archive.
type LibrarySource interface {
	Fetch(ctx context.Context) (entities.Library, error)
}

// LibraryArchiver persists a snapshot of a library.
type LibraryArchiver interface {
	Save(ctx context.Context, library entities.Library) (Snapshot, error)
}

// LibraryExporter renders a library to its destination.
type LibraryExporter interface {
	Export(library entities.Library) (exporters.ExportResult, error)
}

// Snapshot describes one saved archive state.
type Snapshot struct {
	ID         string
	SavedAt    time.Time
	Books      int
	Highlights int
}

// ImportResult contains the outcome of one fetch, archive and export pass.
type ImportResult struct {
	BooksFetched      int
	HighlightsFetched int
	Snapshot          *Snapshot
	Export            exporters.ExportResult
}
