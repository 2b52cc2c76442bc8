// Package fixtures builds small catalogs together with their CSV sources.
package fixtures

import (
	"fmt"
	"strings"

	"github.com/vvka-141/pgseed/internal/catalog"
	"github.com/vvka-141/pgseed/internal/files/filesystem"
)

// CatalogBuilder provides a fluent API for catalogs whose CSV sources live in
// an in-memory filesystem under BaseDir.
//
// Example usage:
//
//	cat, files := fixtures.NewCatalogBuilder().
//	    Database("seed_test").
//	    Schema("ipl").
//	    Table("teams", "team_id INT PRIMARY KEY, team_name TEXT", "team_id,team_name", "1,KKR", "2,RCB").
//	    Build()
type CatalogBuilder struct {
	cat   catalog.Catalog
	files *filesystem.MemoryFileSystem
}

// BaseDir is where fixture sources resolve.
const BaseDir = "/fixtures"

// NewCatalogBuilder creates an empty builder.
func NewCatalogBuilder() *CatalogBuilder {
	return &CatalogBuilder{
		cat:   catalog.Catalog{BaseDir: BaseDir},
		files: filesystem.NewMemoryFileSystem(),
	}
}

// Database starts a new database; following Schema calls attach to it.
func (b *CatalogBuilder) Database(name string) *CatalogBuilder {
	b.cat.Databases = append(b.cat.Databases, catalog.Database{Name: name})
	return b
}

// Schema starts a new schema in the current database.
func (b *CatalogBuilder) Schema(name string) *CatalogBuilder {
	d := b.currentDatabase()
	d.Schemas = append(d.Schemas, catalog.Schema{Name: name})
	return b
}

// Table adds a table to the current schema. With a header line the table
// gets a CSV source named <database>/<schema>/<table>.csv holding header and
// rows; without one it is created but not loaded.
func (b *CatalogBuilder) Table(name, columns string, csvLines ...string) *CatalogBuilder {
	d := b.currentDatabase()
	if len(d.Schemas) == 0 {
		panic("fixtures: Table called before Schema")
	}
	s := &d.Schemas[len(d.Schemas)-1]

	t := catalog.Table{Name: name, Columns: columns}
	if len(csvLines) > 0 {
		t.Source = fmt.Sprintf("%s/%s/%s.csv", d.Name, s.Name, name)
		b.files.AddFile(BaseDir+"/"+t.Source, strings.Join(csvLines, "\n")+"\n")
	}
	s.Tables = append(s.Tables, t)
	return b
}

// Build returns the catalog and the filesystem holding its sources.
func (b *CatalogBuilder) Build() (catalog.Catalog, *filesystem.MemoryFileSystem) {
	return b.cat, b.files
}

func (b *CatalogBuilder) currentDatabase() *catalog.Database {
	if len(b.cat.Databases) == 0 {
		panic("fixtures: Schema called before Database")
	}
	return &b.cat.Databases[len(b.cat.Databases)-1]
}
