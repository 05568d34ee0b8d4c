package exporters

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mrlokans/highlights/internal/entities"
	"github.com/mrlokans/highlights/internal/frontmatter"
)

const (
	bookKind    = "book"
	quotePrefix = "> "
)

var (
	leadingWhitespace = regexp.MustCompile(`(?m)^[ \t]+`)
	repeatedSpaces    = regexp.MustCompile(` {2,}`)
)

// header fields are emitted in declaration order.
type header struct {
	Kind        string   `yaml:"kind"`
	Status      string   `yaml:"status"`
	Themes      []string `yaml:"themes"`
	Title       string   `yaml:"title"`
	Author      string   `yaml:"author"`
	AssetID     string   `yaml:"asset_id"`
	Annotations int      `yaml:"annotations"`
}

// GenerateMarkdown renders a book as a document with YAML front matter followed
// by its highlights as blockquotes grouped under chapter headings.
func GenerateMarkdown(book entities.Book, preserved frontmatter.Preserved) (string, error) {
	annotations := book.Annotations()

	themes := preserved.Themes
	if themes == nil {
		themes = []string{}
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	err := encoder.Encode(header{
		Kind:        bookKind,
		Status:      preserved.Status,
		Themes:      themes,
		Title:       book.Title(),
		Author:      book.Author(),
		AssetID:     book.Identifier(),
		Annotations: countRenderable(annotations),
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode front matter: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return "", fmt.Errorf("failed to encode front matter: %w", err)
	}

	var builder strings.Builder
	builder.WriteString(frontmatter.Delimiter + "\n")
	builder.Write(buf.Bytes())
	builder.WriteString(frontmatter.Delimiter + "\n")
	builder.WriteString(renderBody(annotations))
	return builder.String(), nil
}

// renderBody emits a chapter heading only when the chapter changes. Highlights
// without a chapter keep the previous chapter current, so a chapter interrupted
// by them is not announced twice.
func renderBody(annotations []entities.Annotation) string {
	var lines []string
	lastChapter := ""

	for _, annotation := range annotations {
		if isBlank(annotation.Text()) {
			continue
		}

		chapter := annotation.Chapter()
		if chapter != "" && chapter != lastChapter {
			lines = append(lines, "### "+chapter, "")
		}
		lines = append(lines, renderPassage(annotation)...)

		if chapter != "" {
			lastChapter = chapter
		}
	}

	return "\n" + strings.Join(lines, "\n")
}

func renderPassage(annotation entities.Annotation) []string {
	lines := []string{quote(annotation.Text()), ""}
	if annotation.Noted() {
		lines = append(lines, fmt.Sprintf("*Note: %s*", annotation.Note()), "")
	}
	return lines
}

func quote(text string) string {
	text = leadingWhitespace.ReplaceAllString(text, "")
	text = repeatedSpaces.ReplaceAllString(text, " ")
	return quotePrefix + strings.ReplaceAll(text, "\n", "\n"+quotePrefix)
}

func countRenderable(annotations []entities.Annotation) int {
	count := 0
	for _, annotation := range annotations {
		if !isBlank(annotation.Text()) {
			count++
		}
	}
	return count
}

func hasRenderable(book entities.Book) bool {
	return countRenderable(book.Annotations()) > 0
}

func isBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}
