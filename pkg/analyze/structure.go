// Package analyze turns extracted SQL metadata into audit results:
// a filtered structural view of each statement, alias resolution,
// target-column usage tracing and a weighted complexity score.
package analyze

import (
	"strings"

	"github.com/leapstack-labs/viewlens/pkg/sqlmeta"
)

// builtinDenylist holds SQL builtin function and keyword tokens that the
// metadata extraction is known to occasionally misreport as table
// references. Matched case-insensitively.
var builtinDenylist = map[string]struct{}{
	"current_date":      {},
	"date_trunc":        {},
	"current_timestamp": {},
	"case":              {},
	"lower":             {},
	"nvl":               {},
	"count":             {},
	"sum":               {},
	"position":          {},
}

// Structure is the filtered, read-only structural view of one statement.
type Structure struct {
	Text       string
	Tables     []string
	Aliases    map[string]string
	CTENames   []string
	CTEBodies  map[string]string
	Subqueries []string
	Columns    map[string][]sqlmeta.ColumnRef
}

// ExtractStructure builds a Structure from extracted statement metadata,
// dropping tables that match the builtin denylist. All other fields pass
// through unchanged.
func ExtractStructure(st *sqlmeta.Statement) *Structure {
	tables := make([]string, 0, len(st.Tables))
	for _, t := range st.Tables {
		if _, ok := builtinDenylist[strings.ToLower(t)]; ok {
			continue
		}
		tables = append(tables, t)
	}

	return &Structure{
		Text:       st.Text,
		Tables:     tables,
		Aliases:    st.Aliases,
		CTENames:   st.CTENames,
		CTEBodies:  st.CTEBodies,
		Subqueries: st.SubqueryNames,
		Columns:    st.ColumnsByClause,
	}
}

// EmptyStructure returns a Structure with no extracted metadata, used
// when a statement fails to parse but must still produce a report row.
func EmptyStructure(text string) *Structure {
	return &Structure{
		Text:    text,
		Aliases: map[string]string{},
		Columns: map[string][]sqlmeta.ColumnRef{},
	}
}

// traceClauses are the clauses inspected for column usage.
var traceClauses = []string{sqlmeta.ClauseSelect, sqlmeta.ClauseJoin, sqlmeta.ClauseWhere}

// traceRefs returns the column references of the select, join and where
// clauses in clause order.
func (s *Structure) traceRefs() []sqlmeta.ColumnRef {
	var refs []sqlmeta.ColumnRef
	for _, c := range traceClauses {
		refs = append(refs, s.Columns[c]...)
	}
	return refs
}
