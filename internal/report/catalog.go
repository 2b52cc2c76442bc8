package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/vvka-141/pgseed/internal/catalog"
	"github.com/vvka-141/pgseed/internal/checksum"
)

type tableJSON struct {
	Database    string `json:"database"`
	Schema      string `json:"schema"`
	Table       string `json:"table"`
	Source      string `json:"source,omitempty"`
	Fingerprint string `json:"fingerprint"`
}

// RenderCatalog lists every table of cat with its resolved source and a
// fingerprint of its normalized column definition.
func RenderCatalog(w io.Writer, cat catalog.Catalog, format string) error {
	var entries []tableJSON
	for _, d := range cat.Databases {
		if len(d.Schemas) == 0 {
			entries = append(entries, tableJSON{Database: d.Name})
		}
		for _, s := range d.Schemas {
			if len(s.Tables) == 0 {
				entries = append(entries, tableJSON{Database: d.Name, Schema: s.Name})
			}
			for _, t := range s.Tables {
				entries = append(entries, tableJSON{
					Database:    d.Name,
					Schema:      s.Name,
					Table:       t.Name,
					Source:      cat.ResolveSource(t.Source),
					Fingerprint: checksum.Fingerprint(t.Columns),
				})
			}
		}
	}

	if format == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Database", "Schema", "Table", "Source", "Fingerprint"})
	for _, e := range entries {
		fp := e.Fingerprint
		if len(fp) > 12 {
			fp = fp[:12]
		}
		t.AppendRow(table.Row{e.Database, e.Schema, e.Table, e.Source, fp})
	}
	t.AppendFooter(table.Row{fmt.Sprintf("%d databases", len(cat.Databases)), "", fmt.Sprintf("%d tables", cat.TableCount()), "", ""})

	if format == FormatMarkdown || format == "md" {
		t.RenderMarkdown()
	} else {
		t.Render()
	}
	return nil
}
