package applebooks

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	annotationDir = "AEAnnotation"
	libraryDir    = "BKLibrary"
)

// ErrDatabaseNotFound is returned when a directory holds no .sqlite file.
var ErrDatabaseNotFound = errors.New("no .sqlite file found")

// Paths locates the two Apple Books databases.
type Paths struct {
	AnnotationDB string
	BookDB       string
}

// DefaultContainer returns the Apple Books documents directory of the current user.
func DefaultContainer() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, "Library", "Containers", "com.apple.iBooksX", "Data", "Documents"), nil
}

// FindDatabase returns the first *.sqlite file, by name, inside dir.
func FindDatabase(dir string) (string, error) {
	matches, err := doublestar.Glob(os.DirFS(dir), "*.sqlite", doublestar.WithFilesOnly())
	if err != nil {
		return "", fmt.Errorf("failed to search %s: %w", dir, err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w in %s", ErrDatabaseNotFound, dir)
	}
	sort.Strings(matches)
	return filepath.Join(dir, matches[0]), nil
}

// ResolvePaths fills in whichever database path is empty by searching the
// container's AEAnnotation and BKLibrary directories.
func ResolvePaths(container, annotationDB, bookDB string) (Paths, error) {
	var err error

	if annotationDB == "" {
		annotationDB, err = FindDatabase(filepath.Join(container, annotationDir))
		if err != nil {
			return Paths{}, fmt.Errorf("failed to find annotation database: %w", err)
		}
	}
	if bookDB == "" {
		bookDB, err = FindDatabase(filepath.Join(container, libraryDir))
		if err != nil {
			return Paths{}, fmt.Errorf("failed to find book database: %w", err)
		}
	}

	if _, err := os.Stat(annotationDB); err != nil {
		return Paths{}, fmt.Errorf("annotation database not found: %s: %w", annotationDB, err)
	}
	if _, err := os.Stat(bookDB); err != nil {
		return Paths{}, fmt.Errorf("book database not found: %s: %w", bookDB, err)
	}

	return Paths{AnnotationDB: annotationDB, BookDB: bookDB}, nil
}
