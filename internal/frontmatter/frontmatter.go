// Package frontmatter recovers the user-editable fields of a previously
// exported book document so that a re-export does not overwrite them.
package frontmatter

import (
	"bytes"
	"fmt"
	"os"

	adrgfm "github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"
)

const (
	// Delimiter opens and closes the YAML block at the top of a document.
	Delimiter = "---"

	DefaultStatus = "raw"
)

var yamlFormat = adrgfm.NewFormat(Delimiter, Delimiter, yaml.Unmarshal)

// Preserved holds the fields carried across re-exports.
type Preserved struct {
	Themes []string
	Status string
}

// Defaults is used whenever a document is missing, unreadable or malformed.
func Defaults() Preserved {
	return Preserved{Themes: []string{}, Status: DefaultStatus}
}

// Read returns the preserved fields of the document at path. It never fails:
// a missing or unreadable file yields Defaults.
func Read(path string) Preserved {
	content, err := os.ReadFile(path)
	if err != nil {
		return Defaults()
	}
	return Parse(content)
}

// Parse extracts themes and status from the front matter that opens content.
// Everything else in the block is ignored.
func Parse(content []byte) Preserved {
	var meta map[string]any
	if _, err := adrgfm.Parse(bytes.NewReader(content), &meta, yamlFormat); err != nil {
		return Defaults()
	}
	if meta == nil {
		return Defaults()
	}

	preserved := Defaults()
	preserved.Themes = themes(meta["themes"])
	if status, ok := meta["status"]; ok && status != nil {
		preserved.Status = scalar(status)
	}
	return preserved
}

// themes coerces the raw YAML value into a list: absent becomes empty, a
// scalar becomes a single entry.
func themes(value any) []string {
	switch v := value.(type) {
	case nil:
		return []string{}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if item == nil {
				continue
			}
			out = append(out, scalar(item))
		}
		return out
	case map[string]any:
		return []string{}
	default:
		return []string{scalar(v)}
	}
}

func scalar(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprint(value)
}
