// Package catalog describes what pgseed creates and loads: databases, their
// schemas, and per table a column definition fragment plus a CSV source.
//
// A catalog is plain data. It is read from YAML (or the built-in default),
// validated once, and then only read by the orchestrator.
package catalog

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/vvka-141/pgseed/pkg/pgseed"
)

// Table is one catalog entry.
type Table struct {
	Name string `yaml:"name" json:"name"`

	// Columns is a raw DDL fragment placed between the parentheses of
	// CREATE TABLE. It is trusted input.
	Columns string `yaml:"columns" json:"columns"`

	// Source is a CSV location: a path (relative to the catalog's base
	// directory) or a URI such as s3://bucket/key. Empty means the table is
	// created but not loaded.
	Source string `yaml:"source,omitempty" json:"source,omitempty"`
}

// Schema groups tables in creation and load order.
type Schema struct {
	Name   string  `yaml:"name" json:"name"`
	Tables []Table `yaml:"tables,omitempty" json:"tables,omitempty"`
}

// Database groups schemas.
type Database struct {
	Name    string   `yaml:"name" json:"name"`
	Schemas []Schema `yaml:"schemas,omitempty" json:"schemas,omitempty"`
}

// Catalog is the full target topology.
type Catalog struct {
	// MaintenanceDatabase is where CREATE/DROP DATABASE are issued.
	// Empty means the connection's database.
	MaintenanceDatabase string     `yaml:"maintenance_database,omitempty" json:"maintenance_database,omitempty"`
	Databases           []Database `yaml:"databases" json:"databases"`

	// BaseDir anchors relative sources.
	BaseDir string `yaml:"-" json:"-"`
}

// DatabaseNames returns the database names in order.
func (c Catalog) DatabaseNames() []string {
	names := make([]string, 0, len(c.Databases))
	for _, d := range c.Databases {
		names = append(names, d.Name)
	}
	return names
}

// SchemaNames returns the schema names of d in order.
func (d Database) SchemaNames() []string {
	names := make([]string, 0, len(d.Schemas))
	for _, s := range d.Schemas {
		names = append(names, s.Name)
	}
	return names
}

// TableCount counts tables across all databases.
func (c Catalog) TableCount() int {
	n := 0
	for _, d := range c.Databases {
		for _, s := range d.Schemas {
			n += len(s.Tables)
		}
	}
	return n
}

// Select returns a copy restricted to the named databases, keeping catalog
// order. Names match case-insensitively. An empty list selects everything.
func (c Catalog) Select(only []string) (Catalog, error) {
	if len(only) == 0 {
		return c, nil
	}

	wanted := make(map[string]bool, len(only))
	for _, name := range only {
		wanted[strings.ToLower(strings.TrimSpace(name))] = true
	}

	selected := c
	selected.Databases = nil
	for _, d := range c.Databases {
		key := strings.ToLower(d.Name)
		if wanted[key] {
			selected.Databases = append(selected.Databases, d)
			delete(wanted, key)
		}
	}

	if len(wanted) > 0 {
		missing := make([]string, 0, len(wanted))
		for _, name := range only {
			if wanted[strings.ToLower(strings.TrimSpace(name))] {
				missing = append(missing, name)
			}
		}
		return Catalog{}, fmt.Errorf("databases not in catalog: %s: %w", strings.Join(missing, ", "), pgseed.ErrInvalidCatalog)
	}
	return selected, nil
}

// ResolveSource returns the location to open for a table source. URIs and
// absolute paths are returned unchanged; relative paths are joined to BaseDir.
func (c Catalog) ResolveSource(source string) string {
	if source == "" || strings.Contains(source, "://") || filepath.IsAbs(source) {
		return source
	}
	if c.BaseDir == "" {
		return filepath.Clean(source)
	}
	return filepath.Join(c.BaseDir, source)
}

// Validate checks structural rules and returns every violation joined.
// Names compare case-insensitively because PostgreSQL folds them.
func (c Catalog) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format+": %w", append(args, pgseed.ErrInvalidCatalog)...))
	}

	if len(c.Databases) == 0 {
		add("catalog lists no databases")
	}

	seenDB := map[string]bool{}
	for i, d := range c.Databases {
		if strings.TrimSpace(d.Name) == "" {
			add("database #%d has no name", i+1)
			continue
		}
		if key := strings.ToLower(d.Name); seenDB[key] {
			add("database %q listed twice", d.Name)
		} else {
			seenDB[key] = true
		}
		if strings.EqualFold(d.Name, c.MaintenanceDatabase) {
			add("database %q is the maintenance database and cannot be recreated", d.Name)
		}

		seenSchema := map[string]bool{}
		for j, s := range d.Schemas {
			if strings.TrimSpace(s.Name) == "" {
				add("database %q: schema #%d has no name", d.Name, j+1)
				continue
			}
			if key := strings.ToLower(s.Name); seenSchema[key] {
				add("database %q: schema %q listed twice", d.Name, s.Name)
			} else {
				seenSchema[key] = true
			}

			seenTable := map[string]bool{}
			for k, t := range s.Tables {
				where := fmt.Sprintf("%s.%s", d.Name, s.Name)
				if strings.TrimSpace(t.Name) == "" {
					add("%s: table #%d has no name", where, k+1)
					continue
				}
				if key := strings.ToLower(t.Name); seenTable[key] {
					add("%s: table %q listed twice", where, t.Name)
				} else {
					seenTable[key] = true
				}
				if strings.TrimSpace(t.Columns) == "" {
					add("%s.%s: columns cannot be empty", where, t.Name)
				}
			}
		}
	}

	return errors.Join(errs...)
}
