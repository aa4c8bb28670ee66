package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

// RenderTable writes a human-readable complexity table.
func RenderTable(w io.Writer, records []Record) {
	if len(records) == 0 {
		_, _ = fmt.Fprintln(w, "(0 views)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"view", "score", "tables", "joins", "ctes", "subqueries", "operators", "used columns", "error"})

	for _, r := range records {
		name := r.ViewName
		if name == "" {
			name = r.FilePath
		}
		t.AppendRow(table.Row{
			name,
			fmt.Sprintf("%.1f", r.Metrics.Score),
			r.Metrics.TablesUsed,
			r.Metrics.JoinCount,
			r.Metrics.CTEsUsed,
			r.Metrics.SubqueriesUsed,
			r.Metrics.SQLOperators,
			strings.Join(r.UsedColumns, ", "),
			r.Err,
		})
	}

	t.Render()
}

// RenderJSON writes records as indented JSON.
func RenderJSON(w io.Writer, records []Record) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}
