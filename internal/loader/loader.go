// Package loader discovers SQL view-definition files and normalizes
// them into analyzable statements.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// SourceUnit is one normalized SQL file. Immutable once created.
type SourceUnit struct {
	// Path is the file the unit was loaded from.
	Path string
	// Statement is the SQL body with the view-declaration header and
	// schema-binding directive removed.
	Statement string
	// ViewName is the declared schema.name, or empty when the header
	// pattern is absent.
	ViewName string
}

// viewHeaderPattern matches the declared view name in a definition file.
var viewHeaderPattern = regexp.MustCompile(`CREATE OR REPLACE VIEW (\w+\.\w+)`)

// Normalize strips view-declaration boilerplate from raw file text.
// It returns the SQL body - every line except the declaration line and
// any WITH NO SCHEMA BINDING directive, verbatim and in order - and the
// declared view name (empty when the header pattern is not found, which
// is not an error: dependent lookups are simply skipped downstream).
func Normalize(raw string) (body string, viewName string) {
	if m := viewHeaderPattern.FindStringSubmatch(raw); m != nil {
		viewName = m[1]
	}

	var kept []string
	for _, line := range strings.Split(raw, "\n") {
		if strings.Contains(line, "WITH NO SCHEMA BINDING") {
			continue
		}
		if strings.Contains(line, "CREATE OR REPLACE VIEW") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n"), viewName
}

// Discover returns every .sql file under root, in walk order. The order
// defines report row order.
func Discover(root string) ([]string, error) {
	var paths []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".sql") {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discovering sql files in %s: %w", root, err)
	}
	return paths, nil
}

// Load reads and normalizes one SQL file.
func Load(path string) (*SourceUnit, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // G304: path comes from Discover
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	body, viewName := Normalize(string(raw))
	return &SourceUnit{
		Path:      path,
		Statement: body,
		ViewName:  viewName,
	}, nil
}
