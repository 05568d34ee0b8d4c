package exporters

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mrlokans/highlights/internal/entities"
	"github.com/mrlokans/highlights/internal/frontmatter"
	"github.com/mrlokans/highlights/internal/utils"
)

// Document is one output file and the book it is rendered from.
type Document struct {
	Filename string
	Book     entities.Book
	// Sources is the number of library books merged into Book.
	Sources int
}

// Renderable reports whether the document has at least one non-blank highlight.
func (d Document) Renderable() bool {
	return hasRenderable(d.Book)
}

// Plan groups the library's books by output filename and merges each group
// into a single book. Books with a blank title are left out. Groups keep the
// order in which their first book appears.
func Plan(library entities.Library) []Document {
	groups := make(map[string][]entities.Book)
	var order []string

	for _, book := range library.Books() {
		if isBlank(book.Title()) {
			continue
		}
		filename := utils.BookFilename(book.Title())
		if _, exists := groups[filename]; !exists {
			order = append(order, filename)
		}
		groups[filename] = append(groups[filename], book)
	}

	documents := make([]Document, 0, len(order))
	for _, filename := range order {
		books := groups[filename]
		documents = append(documents, Document{
			Filename: filename,
			Book:     merge(books),
			Sources:  len(books),
		})
	}
	return documents
}

// merge keeps the first book's identity and concatenates all highlights in
// group order.
func merge(books []entities.Book) entities.Book {
	if len(books) == 1 {
		return books[0]
	}
	var annotations []entities.Annotation
	for _, book := range books {
		annotations = append(annotations, book.Annotations()...)
	}
	first := books[0]
	return entities.NewBook(first.Identifier(), first.Title(), first.Author(), annotations)
}

// MarkdownExporter writes one markdown file per book into ExportDir, keeping
// the themes and status a reader added to files from earlier exports.
type MarkdownExporter struct {
	ExportDir string
	logger    *zap.Logger
}

func NewMarkdownExporter(exportDir string, logger *zap.Logger) *MarkdownExporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MarkdownExporter{
		ExportDir: exportDir,
		logger:    logger,
	}
}

func (exporter *MarkdownExporter) Export(library entities.Library) (ExportResult, error) {
	result := ExportResult{Files: []string{}}

	if err := os.MkdirAll(exporter.ExportDir, 0755); err != nil {
		return result, fmt.Errorf("failed to create export directory: %w", err)
	}

	for _, document := range Plan(library) {
		if !document.Renderable() {
			exporter.logger.Debug("Skipping book without highlights",
				zap.String("title", document.Book.Title()),
				zap.String("file", document.Filename))
			result.BooksSkipped++
			continue
		}

		path, err := exporter.exportDocument(document)
		if err != nil {
			return result, err
		}

		highlights := countRenderable(document.Book.Annotations())
		exporter.logger.Info("Exported book",
			zap.String("title", document.Book.Title()),
			zap.String("file", path),
			zap.Int("highlights", highlights),
			zap.Int("merged_records", document.Sources))

		result.BooksProcessed++
		result.HighlightsProcessed += highlights
		result.Files = append(result.Files, path)
	}

	skippedTitles := library.Count() - countTitled(library)
	if skippedTitles > 0 {
		exporter.logger.Debug("Skipped books with blank titles", zap.Int("count", skippedTitles))
	}

	return result, nil
}

func (exporter *MarkdownExporter) exportDocument(document Document) (string, error) {
	outputPath := filepath.Join(exporter.ExportDir, document.Filename)

	preserved := frontmatter.Read(outputPath)
	content, err := GenerateMarkdown(document.Book, preserved)
	if err != nil {
		return "", fmt.Errorf("failed to render %q: %w", document.Book.Title(), err)
	}

	if err := os.WriteFile(outputPath, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", outputPath, err)
	}
	return outputPath, nil
}

func countTitled(library entities.Library) int {
	count := 0
	for _, book := range library.Books() {
		if !isBlank(book.Title()) {
			count++
		}
	}
	return count
}

var _ BookExporter = (*MarkdownExporter)(nil)
