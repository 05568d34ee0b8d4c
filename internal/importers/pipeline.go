package importers

import (
	"context"
	"fmt"

	"github.com/mrlokans/highlights/internal/exporters"
	"github.com/mrlokans/highlights/internal/services"
)

// Pipeline handles the common export workflow:
// fetch → archive (optional) → export.
type Pipeline struct {
	source   services.LibrarySource
	archiver services.LibraryArchiver
	exporter services.LibraryExporter
}

// NewPipeline creates a new pipeline reading from source and writing through exporter.
func NewPipeline(source services.LibrarySource, exporter services.LibraryExporter) *Pipeline {
	return &Pipeline{source: source, exporter: exporter}
}

// WithArchiver makes every pass save the fetched library before exporting it.
func (p *Pipeline) WithArchiver(archiver services.LibraryArchiver) *Pipeline {
	p.archiver = archiver
	return p
}

// Import runs one full pass. Nothing is exported when archiving fails.
func (p *Pipeline) Import(ctx context.Context) (services.ImportResult, error) {
	library, err := p.source.Fetch(ctx)
	if err != nil {
		return services.ImportResult{}, fmt.Errorf("failed to read highlights: %w", err)
	}

	result := services.ImportResult{
		BooksFetched:      library.Count(),
		HighlightsFetched: library.HighlightCount(),
	}

	if p.archiver != nil {
		snapshot, err := p.archiver.Save(ctx, library)
		if err != nil {
			return result, fmt.Errorf("failed to archive library: %w", err)
		}
		result.Snapshot = &snapshot
	}

	exportResult, err := p.exporter.Export(library)
	if err != nil {
		return result, fmt.Errorf("failed to export library: %w", err)
	}
	result.Export = exportResult

	return result, nil
}

// Preview fetches the library and returns the documents an export would consider,
// without touching the filesystem.
func (p *Pipeline) Preview(ctx context.Context) ([]exporters.Document, error) {
	library, err := p.source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read highlights: %w", err)
	}
	return exporters.Plan(library), nil
}
