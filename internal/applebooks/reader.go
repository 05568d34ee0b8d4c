package applebooks

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mrlokans/highlights/internal/entities"
)

// Alias under which the library database is attached to the annotation database.
const attachedSchema = "books"

const highlightsQuery = `
	SELECT
		ZANNOTATIONASSETID AS asset_id,
		books.ZBKLIBRARYASSET.ZTITLE AS title,
		books.ZBKLIBRARYASSET.ZAUTHOR AS author,
		ZANNOTATIONSELECTEDTEXT AS selected_text,
		ZANNOTATIONNOTE AS note,
		ZFUTUREPROOFING5 AS chapter,
		ZANNOTATIONMODIFICATIONDATE AS modified_date
	FROM ZAEANNOTATION
	LEFT JOIN books.ZBKLIBRARYASSET
		ON ZAEANNOTATION.ZANNOTATIONASSETID = books.ZBKLIBRARYASSET.ZASSETID
	WHERE ZANNOTATIONSELECTEDTEXT IS NOT NULL
		AND ZANNOTATIONDELETED = 0
	ORDER BY books.ZBKLIBRARYASSET.ZTITLE, ZPLLOCATIONRANGESTART
`

// Connection opens the annotation database and attaches the library database
// so both can be joined in one query.
type Connection struct {
	paths Paths
}

func NewConnection(paths Paths) *Connection {
	return &Connection{paths: paths}
}

func (c *Connection) Paths() Paths {
	return c.paths
}

// Open runs fn on a single connection that has the library database attached.
// ATTACH is per connection, so fn must not use any other connection from the pool.
func (c *Connection) Open(ctx context.Context, fn func(conn *sql.Conn) error) error {
	db, err := sql.Open("sqlite3", "file:"+c.paths.AnnotationDB+"?mode=ro")
	if err != nil {
		return fmt.Errorf("failed to open annotation database: %w", err)
	}
	defer db.Close()

	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to open annotation database: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "ATTACH DATABASE ? AS "+attachedSchema, c.paths.BookDB); err != nil {
		return fmt.Errorf("failed to attach book database: %w", err)
	}

	return fn(conn)
}

type highlightRow struct {
	AssetID      string
	Title        string
	Author       string
	SelectedText string
	Note         string
	Chapter      string
	ModifiedDate float64
}

// Query extracts every live highlight as a Library.
type Query struct {
	connection *Connection
}

func NewQuery(connection *Connection) *Query {
	return &Query{connection: connection}
}

// Fetch returns books ordered by title with highlights in position order.
// Rows are grouped by asset ID in the order the asset first appears.
func (q *Query) Fetch(ctx context.Context) (entities.Library, error) {
	var rows []highlightRow
	err := q.connection.Open(ctx, func(conn *sql.Conn) error {
		var err error
		rows, err = queryHighlights(ctx, conn)
		return err
	})
	if err != nil {
		return entities.Library{}, err
	}
	return buildLibrary(rows), nil
}

func queryHighlights(ctx context.Context, conn *sql.Conn) ([]highlightRow, error) {
	rows, err := conn.QueryContext(ctx, highlightsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query highlights: %w", err)
	}
	defer rows.Close()

	var highlights []highlightRow
	for rows.Next() {
		var assetID, title, author, selectedText, note, chapter sql.NullString
		var modifiedDate sql.NullFloat64

		if err := rows.Scan(&assetID, &title, &author, &selectedText, &note, &chapter, &modifiedDate); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		highlights = append(highlights, highlightRow{
			AssetID:      assetID.String,
			Title:        title.String,
			Author:       author.String,
			SelectedText: selectedText.String,
			Note:         note.String,
			Chapter:      chapter.String,
			ModifiedDate: modifiedDate.Float64,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return highlights, nil
}

func buildLibrary(rows []highlightRow) entities.Library {
	type group struct {
		first       highlightRow
		annotations []entities.Annotation
	}

	groups := make(map[string]*group)
	var order []string

	for _, row := range rows {
		g, exists := groups[row.AssetID]
		if !exists {
			g = &group{first: row}
			groups[row.AssetID] = g
			order = append(order, row.AssetID)
		}
		g.annotations = append(g.annotations, entities.NewAnnotation(
			row.SelectedText,
			row.Note,
			row.Chapter,
			CoreDataTime(row.ModifiedDate),
		))
	}

	books := make([]entities.Book, 0, len(order))
	for _, assetID := range order {
		g := groups[assetID]
		books = append(books, entities.NewBook(g.first.AssetID, g.first.Title, g.first.Author, g.annotations))
	}
	return entities.NewLibrary(books)
}
