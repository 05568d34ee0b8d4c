package exporters

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/highlights/internal/entities"
)

var stub = []entities.Annotation{entities.NewAnnotation("x", "", "", day1)}

func buildLibrary() entities.Library {
	return entities.NewLibrary([]entities.Book{
		entities.NewBook("id1", "Deep Work", "Cal Newport", []entities.Annotation{
			entities.NewAnnotation("Focus is a skill", "Important", "Rule 1", day1),
		}),
		entities.NewBook("id2", "Thinking, Fast & Slow", "Daniel Kahneman", []entities.Annotation{
			entities.NewAnnotation("Two systems", "", "Part 1", day2),
		}),
	})
}

func singleBook(title string, annotations []entities.Annotation) entities.Library {
	return entities.NewLibrary([]entities.Book{entities.NewBook("x1", title, "Author", annotations)})
}

func export(t *testing.T, library entities.Library, dir string) ExportResult {
	t.Helper()
	result, err := NewMarkdownExporter(dir, nil).Export(library)
	require.NoError(t, err)
	return result
}

func markdownFiles(t *testing.T, dir string) []string {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(dir, "*.md"))
	require.NoError(t, err)
	return files
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(content)
}

func TestMarkdownExporter(t *testing.T) {
	t.Run("creates directory when missing", func(t *testing.T) {
		nested := filepath.Join(t.TempDir(), "sub", "highlights")

		export(t, buildLibrary(), nested)

		assert.DirExists(t, nested)
	})

	t.Run("writes one file per book", func(t *testing.T) {
		dir := t.TempDir()

		result := export(t, buildLibrary(), dir)

		assert.Len(t, markdownFiles(t, dir), 2)
		assert.Equal(t, 2, result.BooksProcessed)
		assert.Equal(t, 2, result.HighlightsProcessed)
		assert.Equal(t, 0, result.BooksSkipped)
		assert.Equal(t, []string{
			filepath.Join(dir, "Deep Work.md"),
			filepath.Join(dir, "Thinking, Fast & Slow.md"),
		}, result.Files)
	})

	t.Run("names files after sanitized titles", func(t *testing.T) {
		dir := t.TempDir()

		export(t, buildLibrary(), dir)

		assert.FileExists(t, filepath.Join(dir, "Deep Work.md"))
		assert.FileExists(t, filepath.Join(dir, "Thinking, Fast & Slow.md"))
	})

	t.Run("strips unsafe characters from filename", func(t *testing.T) {
		dir := t.TempDir()

		export(t, singleBook("Hello: World", stub), dir)

		assert.FileExists(t, filepath.Join(dir, "Hello World.md"))
	})

	t.Run("strips quotes around title", func(t *testing.T) {
		dir := t.TempDir()

		export(t, singleBook(`"Dance First"`, stub), dir)

		assert.FileExists(t, filepath.Join(dir, "Dance First.md"))
	})

	t.Run("preserves unicode characters in filename", func(t *testing.T) {
		dir := t.TempDir()

		export(t, singleBook("Война и мир", stub), dir)

		assert.FileExists(t, filepath.Join(dir, "Война и мир.md"))
	})

	t.Run("new file gets default status", func(t *testing.T) {
		dir := t.TempDir()

		export(t, buildLibrary(), dir)

		meta := parseFrontMatter(t, readFile(t, filepath.Join(dir, "Deep Work.md")))
		assert.Equal(t, "raw", meta["status"])
	})

	t.Run("file contains annotations", func(t *testing.T) {
		dir := t.TempDir()

		export(t, buildLibrary(), dir)

		content := readFile(t, filepath.Join(dir, "Deep Work.md"))
		assert.Contains(t, content, "> Focus is a skill")
		assert.Contains(t, content, "### Rule 1")
		assert.Contains(t, content, "*Note: Important*")
	})

	t.Run("overwrites stale body", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "Deep Work.md")
		require.NoError(t, os.WriteFile(path, []byte("---\nstatus: reviewed\n---\n\n> stale\n"), 0644))

		export(t, buildLibrary(), dir)

		content := readFile(t, path)
		assert.NotContains(t, content, "stale")
		assert.Equal(t, "reviewed", parseFrontMatter(t, content)["status"])
	})
}

func TestMarkdownExporter_Skips(t *testing.T) {
	t.Run("book with blank title", func(t *testing.T) {
		dir := t.TempDir()

		result := export(t, singleBook("  ", stub), dir)

		assert.Empty(t, markdownFiles(t, dir))
		assert.Equal(t, 0, result.BooksProcessed)
	})

	t.Run("book with empty title", func(t *testing.T) {
		dir := t.TempDir()

		export(t, singleBook("", stub), dir)

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("book with no renderable annotations", func(t *testing.T) {
		dir := t.TempDir()

		result := export(t, singleBook("Empty Book", []entities.Annotation{
			entities.NewAnnotation("", "", "", day1),
			entities.NewAnnotation(" \t\n", "note", "Ch1", day1),
		}), dir)

		assert.NoFileExists(t, filepath.Join(dir, "Empty Book.md"))
		assert.Equal(t, 1, result.BooksSkipped)
	})

	t.Run("book without annotations", func(t *testing.T) {
		dir := t.TempDir()

		export(t, singleBook("Unread", nil), dir)

		assert.NoFileExists(t, filepath.Join(dir, "Unread.md"))
	})

	t.Run("leaves existing file of a blank book untouched", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "Empty Book.md")
		original := "---\nstatus: reviewed\nthemes: [kept]\n---\n\n> old highlight\n"
		require.NoError(t, os.WriteFile(path, []byte(original), 0644))

		export(t, singleBook("Empty Book", []entities.Annotation{entities.NewAnnotation("", "", "", day1)}), dir)

		assert.Equal(t, original, readFile(t, path))
	})
}

func TestMarkdownExporter_Reexport(t *testing.T) {
	t.Run("preserves themes on re-export", func(t *testing.T) {
		dir := t.TempDir()
		export(t, buildLibrary(), dir)

		path := filepath.Join(dir, "Deep Work.md")
		content := readFile(t, path)
		require.Contains(t, content, "themes: []")
		content = strings.Replace(content, "themes: []", "themes:\n- focus\n- productivity", 1)
		content = strings.Replace(content, "status: raw", "status: reviewed", 1)
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		export(t, buildLibrary(), dir)

		meta := parseFrontMatter(t, readFile(t, path))
		assert.Equal(t, []any{"focus", "productivity"}, meta["themes"])
		assert.Equal(t, "reviewed", meta["status"])
	})

	t.Run("recomputes other fields", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "Deep Work.md")
		require.NoError(t, os.WriteFile(path, []byte(
			"---\nkind: article\nstatus: reviewed\nthemes: [focus]\ntitle: Wrong\nauthor: Nobody\nasset_id: old\nannotations: 99\nextra: dropped\n---\n"), 0644))

		library := entities.NewLibrary([]entities.Book{
			entities.NewBook("id1", "Deep Work", "Cal Newport", []entities.Annotation{
				entities.NewAnnotation("one", "", "", day1),
				entities.NewAnnotation("two", "", "", day2),
			}),
		})
		export(t, library, dir)

		meta := parseFrontMatter(t, readFile(t, path))
		assert.Equal(t, map[string]any{
			"kind":        "book",
			"status":      "reviewed",
			"themes":      []any{"focus"},
			"title":       "Deep Work",
			"author":      "Cal Newport",
			"asset_id":    "id1",
			"annotations": 2,
		}, meta)
	})

	t.Run("malformed front matter falls back to defaults", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "Deep Work.md")
		require.NoError(t, os.WriteFile(path, []byte("---\nthemes: [broken\n---\n"), 0644))

		export(t, buildLibrary(), dir)

		meta := parseFrontMatter(t, readFile(t, path))
		assert.Equal(t, "raw", meta["status"])
		assert.Equal(t, []any{}, meta["themes"])
	})

	t.Run("is idempotent", func(t *testing.T) {
		dir := t.TempDir()

		export(t, buildLibrary(), dir)
		first := map[string]string{}
		for _, file := range markdownFiles(t, dir) {
			first[file] = readFile(t, file)
		}

		export(t, buildLibrary(), dir)
		second := map[string]string{}
		for _, file := range markdownFiles(t, dir) {
			second[file] = readFile(t, file)
		}

		assert.Equal(t, first, second)
	})

	t.Run("is idempotent with preserved fields", func(t *testing.T) {
		dir := t.TempDir()
		export(t, buildLibrary(), dir)

		path := filepath.Join(dir, "Deep Work.md")
		edited := strings.Replace(readFile(t, path), "themes: []", "themes:\n  - focus", 1)
		require.NoError(t, os.WriteFile(path, []byte(edited), 0644))

		export(t, buildLibrary(), dir)
		once := readFile(t, path)
		export(t, buildLibrary(), dir)

		assert.Equal(t, once, readFile(t, path))
		assert.Contains(t, once, "- focus")
	})
}

func TestMarkdownExporter_Merge(t *testing.T) {
	t.Run("merges books with duplicate titles", func(t *testing.T) {
		dir := t.TempDir()
		library := entities.NewLibrary([]entities.Book{
			entities.NewBook("x1", "Meditations", "Marcus Aurelius", []entities.Annotation{
				entities.NewAnnotation("First highlight", "", "", day1),
			}),
			entities.NewBook("y1", "Meditations", "Marcus Aurelius", []entities.Annotation{
				entities.NewAnnotation("Second highlight", "", "", day2),
			}),
		})

		result := export(t, library, dir)

		files := markdownFiles(t, dir)
		require.Len(t, files, 1)
		content := readFile(t, files[0])
		first := strings.Index(content, "> First highlight")
		second := strings.Index(content, "> Second highlight")
		assert.NotEqual(t, -1, first)
		assert.Greater(t, second, first)
		assert.Equal(t, 1, result.BooksProcessed)
		assert.Equal(t, 2, result.HighlightsProcessed)
	})

	t.Run("merges titles differing only in stripped characters", func(t *testing.T) {
		dir := t.TempDir()
		library := entities.NewLibrary([]entities.Book{
			entities.NewBook("a", "Work: A History", "First Author", []entities.Annotation{
				entities.NewAnnotation("A1", "", "", day1),
			}),
			entities.NewBook("b", "Work A History", "Second Author", []entities.Annotation{
				entities.NewAnnotation("A2", "", "", day2),
			}),
		})

		export(t, library, dir)

		files := markdownFiles(t, dir)
		require.Len(t, files, 1)
		content := readFile(t, files[0])
		meta := parseFrontMatter(t, content)
		assert.Equal(t, "a", meta["asset_id"])
		assert.Equal(t, "Work: A History", meta["title"])
		assert.Equal(t, "First Author", meta["author"])
		assert.Equal(t, 2, meta["annotations"])
		assert.Less(t, strings.Index(content, "> A1"), strings.Index(content, "> A2"))
	})

	t.Run("merged book with one blank member is still written", func(t *testing.T) {
		dir := t.TempDir()
		library := entities.NewLibrary([]entities.Book{
			entities.NewBook("a", "Twice", "Author", []entities.Annotation{entities.NewAnnotation("", "", "", day1)}),
			entities.NewBook("b", "Twice", "Author", []entities.Annotation{entities.NewAnnotation("kept", "", "", day2)}),
		})

		export(t, library, dir)

		meta := parseFrontMatter(t, readFile(t, filepath.Join(dir, "Twice.md")))
		assert.Equal(t, "a", meta["asset_id"])
		assert.Equal(t, 1, meta["annotations"])
	})
}

func TestPlan(t *testing.T) {
	library := entities.NewLibrary([]entities.Book{
		entities.NewBook("1", "Beta", "A", stub),
		entities.NewBook("2", "  ", "A", stub),
		entities.NewBook("3", "Alpha", "A", nil),
		entities.NewBook("4", "Beta?", "A", stub),
	})

	documents := Plan(library)

	require.Len(t, documents, 2)
	assert.Equal(t, "Beta.md", documents[0].Filename)
	assert.Equal(t, 2, documents[0].Sources)
	assert.Equal(t, 2, documents[0].Book.Count())
	assert.True(t, documents[0].Renderable())
	assert.Equal(t, "Alpha.md", documents[1].Filename)
	assert.False(t, documents[1].Renderable())
}

func TestMarkdownExporter_Errors(t *testing.T) {
	t.Run("fails when export directory cannot be created", func(t *testing.T) {
		parent := t.TempDir()
		blocker := filepath.Join(parent, "file")
		require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

		_, err := NewMarkdownExporter(filepath.Join(blocker, "out"), nil).Export(buildLibrary())

		assert.Error(t, err)
	})

	t.Run("fails when output path is not writable", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.Mkdir(filepath.Join(dir, "Deep Work.md"), 0755))

		_, err := NewMarkdownExporter(dir, nil).Export(buildLibrary())

		assert.Error(t, err)
	})

	t.Run("empty library writes nothing", func(t *testing.T) {
		dir := t.TempDir()

		result := export(t, entities.NewLibrary(nil), dir)

		assert.Equal(t, ExportResult{Files: []string{}}, result)
	})
}
