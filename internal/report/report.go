// Package report assembles and renders per-view analysis records.
package report

import (
	"github.com/leapstack-labs/viewlens/pkg/analyze"
)

// Record is the final per-view report row. Append-only output: never
// mutated after assembly.
type Record struct {
	ViewName string `json:"view_name"`
	FilePath string `json:"sql_file_path"`

	Metrics analyze.Metrics `json:"metrics"`

	// Structural listings.
	TablesUsed     []string `json:"tables_used"`
	CTEsUsed       []string `json:"cte_used"`
	SubqueriesUsed []string `json:"subqueries_used"`

	// Columns of the view itself, from the warehouse (nil when the
	// metadata collaborator is absent or the view name is unknown).
	Columns []string `json:"columns,omitempty"`

	// UsedColumns is the traced target-column usage (nil when no
	// usage query was supplied).
	UsedColumns []string `json:"used_columns,omitempty"`

	// Warehouse extras, present only with live cross-referencing.
	SizeMB  *float64 `json:"size_mb,omitempty"`
	RowsCnt *int64   `json:"rows_cnt,omitempty"`

	// Err carries a per-unit diagnostic (parse failure); the record
	// still exists so one bad file never hides the rest.
	Err string `json:"error,omitempty"`
}
