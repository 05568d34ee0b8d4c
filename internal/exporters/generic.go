package exporters

import "github.com/mrlokans/highlights/internal/entities"

type BookExporter interface {
	Export(library entities.Library) (ExportResult, error)
}

type ExportResult struct {
	BooksProcessed      int      `json:"books_processed"`
	BooksSkipped        int      `json:"books_skipped"`
	HighlightsProcessed int      `json:"highlights_processed"`
	Files               []string `json:"files"`
}
