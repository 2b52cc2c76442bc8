// Package report renders a run report and a catalog overview for humans
// (go-pretty tables) or machines (JSON).
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/vvka-141/pgseed/internal/ui"
	"github.com/vvka-141/pgseed/pkg/pgseed"
)

// Output formats.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// ValidateFormat rejects unknown format names.
func ValidateFormat(format string) error {
	switch format {
	case "", FormatText, FormatJSON, FormatMarkdown, "md":
		return nil
	default:
		return fmt.Errorf("unknown report format %q (want text, json or markdown): %w", format, pgseed.ErrInvalidConfig)
	}
}

type stepJSON struct {
	Kind       pgseed.StepKind `json:"kind"`
	Target     string          `json:"target"`
	Source     string          `json:"source,omitempty"`
	Rows       int64           `json:"rows,omitempty"`
	Bytes      int64           `json:"bytes,omitempty"`
	Checksum   string          `json:"checksum,omitempty"`
	DurationMS int64           `json:"duration_ms"`
	OK         bool            `json:"ok"`
	Error      string          `json:"error,omitempty"`
}

type reportJSON struct {
	RunID      string     `json:"run_id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
	DurationMS int64      `json:"duration_ms"`
	RowsLoaded int64      `json:"rows_loaded"`
	Failed     int        `json:"failed"`
	Steps      []stepJSON `json:"steps"`
}

// Render writes rep to w in format.
func Render(w io.Writer, rep *pgseed.Report, format string) error {
	if rep == nil {
		return nil
	}
	switch format {
	case FormatJSON:
		return renderJSON(w, rep)
	case FormatMarkdown, "md":
		return renderTable(w, rep, true)
	default:
		return renderTable(w, rep, false)
	}
}

func renderJSON(w io.Writer, rep *pgseed.Report) error {
	out := reportJSON{
		RunID:      rep.RunID.String(),
		StartedAt:  rep.StartedAt,
		FinishedAt: rep.FinishedAt,
		DurationMS: rep.FinishedAt.Sub(rep.StartedAt).Milliseconds(),
		RowsLoaded: rep.RowsLoaded(),
		Failed:     len(rep.Failed()),
		Steps:      make([]stepJSON, 0, len(rep.Steps)),
	}
	for _, s := range rep.Steps {
		step := stepJSON{
			Kind:       s.Kind,
			Target:     s.Target(),
			Source:     s.Source,
			Rows:       s.Rows,
			Bytes:      s.Bytes,
			Checksum:   s.Checksum,
			DurationMS: s.Duration.Milliseconds(),
			OK:         s.OK(),
		}
		if s.Err != nil {
			step.Error = s.Err.Error()
		}
		out.Steps = append(out.Steps, step)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func renderTable(w io.Writer, rep *pgseed.Report, markdown bool) error {
	if len(rep.Steps) == 0 {
		_, _ = fmt.Fprintln(w, "(no steps)")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Step", "Target", "Status", "Rows", "Duration", "Detail"})

	for _, s := range rep.Steps {
		rows := ""
		if s.Kind == pgseed.StepLoad && s.OK() {
			rows = fmt.Sprintf("%d", s.Rows)
		}
		t.AppendRow(table.Row{
			string(s.Kind),
			s.Target(),
			status(s, markdown),
			rows,
			s.Duration.Round(time.Millisecond).String(),
			detail(s),
		})
	}
	t.AppendFooter(table.Row{"", "", "", rep.RowsLoaded(), "", summary(rep)})

	if markdown {
		t.RenderMarkdown()
	} else {
		t.Render()
	}
	return nil
}

func status(s pgseed.StepResult, plain bool) string {
	switch {
	case s.OK() && plain:
		return "ok"
	case s.OK():
		return ui.SuccessStyle.Render("ok")
	case plain:
		return "FAILED"
	default:
		return ui.ErrorStyle.Render("FAILED")
	}
}

func detail(s pgseed.StepResult) string {
	if s.Err != nil {
		return firstLine(s.Err.Error())
	}
	return s.Source
}

func summary(rep *pgseed.Report) string {
	failed := len(rep.Failed())
	if failed == 0 {
		return fmt.Sprintf("%d steps ok", len(rep.Steps))
	}
	return fmt.Sprintf("%d of %d steps failed", failed, len(rep.Steps))
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
