package utils

import (
	"regexp"
	"strings"
)

// MarkdownExtension is appended to every exported book filename.
const MarkdownExtension = ".md"

// Characters invalid in filenames on most filesystems
var invalidFilenameChars = regexp.MustCompile(`[/\\:*?"<>|]`)

// BookFilename derives the output filename for a book title.
// Titles that differ only in stripped characters map to the same name, which is
// how the exporter decides that two books should be merged into one file.
func BookFilename(title string) string {
	name := invalidFilenameChars.ReplaceAllString(title, "")
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, ".")
	name = strings.TrimSuffix(name, ".")
	return name + MarkdownExtension
}
