package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/mfgorder/backend/internal/infrastructure/config"
)

const migrationTemplate = `-- {{.Name}} ({{.Direction}}, {{.Driver}})
-- Created: {{.Timestamp}}
{{- if .Description}}
-- {{.Description}}
{{- end}}

`

var versionPattern = regexp.MustCompile(`^(\d+)_.+\.(up|down)\.sql$`)

// Dialects lists the drivers that carry SQL migrations
var Dialects = []string{config.DriverPostgres, config.DriverMySQL}

// MigrationFiles is the set of files created for one new version
type MigrationFiles struct {
	Version uint
	Name    string
	Paths   []string
}

// NextVersion returns one past the highest version found in any dialect
// directory under root
func NextVersion(root string) (uint, error) {
	var highest uint
	for _, driver := range Dialects {
		entries, err := os.ReadDir(filepath.Join(root, driver))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("failed to read migrations directory: %w", err)
		}
		for _, e := range entries {
			match := versionPattern.FindStringSubmatch(e.Name())
			if match == nil {
				continue
			}
			v, err := strconv.ParseUint(match[1], 10, 32)
			if err != nil {
				continue
			}
			highest = max(highest, uint(v))
		}
	}
	return highest + 1, nil
}

// CreateMigration writes empty up/down files for the next version in every
// dialect directory, so the dialects never drift apart in numbering
func CreateMigration(root, name, description string) (*MigrationFiles, error) {
	slug := sanitizeName(name)
	if slug == "" {
		return nil, fmt.Errorf("migration name %q has no usable characters", name)
	}
	version, err := NextVersion(root)
	if err != nil {
		return nil, err
	}

	tmpl := template.Must(template.New("migration").Parse(migrationTemplate))
	files := &MigrationFiles{Version: version, Name: slug}
	timestamp := time.Now().Format(time.RFC3339)

	for _, driver := range Dialects {
		dir := filepath.Join(root, driver)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create migrations directory: %w", err)
		}
		for _, direction := range []string{"up", "down"} {
			path := filepath.Join(dir, fmt.Sprintf("%06d_%s.%s.sql", version, slug, direction))
			if err := writeTemplate(path, tmpl, map[string]string{
				"Name":        slug,
				"Direction":   direction,
				"Driver":      driver,
				"Timestamp":   timestamp,
				"Description": description,
			}); err != nil {
				for _, p := range files.Paths {
					_ = os.Remove(p)
				}
				return nil, err
			}
			files.Paths = append(files.Paths, path)
		}
	}
	return files, nil
}

func writeTemplate(path string, tmpl *template.Template, data any) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}
	defer f.Close()
	if err := tmpl.Execute(f, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}
	return nil
}

// sanitizeName lowercases name and collapses separators to single underscores
func sanitizeName(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, c := range strings.ToLower(name) {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(c)
		case c == ' ' || c == '-' || c == '_':
			pendingSep = true
		}
	}
	return b.String()
}

// ListMigrations returns the migration base names of one dialect, in version order
func ListMigrations(root, driver string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(root, driver))
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	out := make([]string, 0, len(entries)/2)
	for _, e := range entries {
		if base, ok := strings.CutSuffix(e.Name(), ".up.sql"); ok && !e.IsDir() {
			out = append(out, base)
		}
	}
	return out, nil
}
