// Package importers provides the pipeline that moves highlights from a source to disk.
//
// # Architecture
//
// The pipeline follows a simple flow:
//
//	LibrarySource → entities.Library → LibraryArchiver (optional) → LibraryExporter → Markdown files
//
// Sources are the Apple Books query (applebooks.Query) and the snapshot archive
// (database.Database). Both return a Library so either can feed the same exporter.
//
// # Example Usage
//
//	query := applebooks.NewQuery(applebooks.NewConnection(paths))
//	exporter := exporters.NewMarkdownExporter(dir, logger)
//
//	pipeline := importers.NewPipeline(query, exporter).WithArchiver(db)
//	result, err := pipeline.Import(ctx)
//
//	// Dry run
//	documents, err := pipeline.Preview(ctx)
package importers
