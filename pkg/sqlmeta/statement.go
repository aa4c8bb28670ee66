// Package sqlmeta extracts structural metadata from SQL text: referenced
// tables, alias bindings, CTE names and bodies, derived-table (subquery)
// names, and per-clause column references. It is a metadata extractor, not
// a full SQL parser: it never builds an AST and tolerates most dialect
// syntax it does not understand.
package sqlmeta

// Clause names used as keys in Statement.ColumnsByClause.
const (
	ClauseSelect  = "select"
	ClauseJoin    = "join"
	ClauseWhere   = "where"
	ClauseGroupBy = "group by"
	ClauseOrderBy = "order by"
	ClauseHaving  = "having"
	ClauseQualify = "qualify"
)

// ColumnRef is a single column reference. Qualifier is empty for bare
// references (SELECT minutes) and holds the full dotted prefix for
// qualified ones (SELECT t.minutes -> Qualifier "t"; s.t.minutes ->
// Qualifier "s.t").
type ColumnRef struct {
	Qualifier string
	Name      string
}

// IsQualified returns true for qualifier.column references.
func (r ColumnRef) IsQualified() bool {
	return r.Qualifier != ""
}

// String returns the reference as written: "qualifier.name" or "name".
func (r ColumnRef) String() string {
	if r.Qualifier == "" {
		return r.Name
	}
	return r.Qualifier + "." + r.Name
}

// Statement is the extracted metadata of one SQL statement. It is
// read-only once produced by Parse.
type Statement struct {
	// Text is the input SQL.
	Text string

	// Tables lists referenced table names in first-seen order,
	// deduplicated. CTE references are excluded.
	Tables []string

	// Aliases maps alias -> table name for explicitly aliased
	// tables and CTE references.
	Aliases map[string]string

	// CTENames lists WITH-clause names in declaration order.
	CTENames []string

	// CTEBodies maps CTE name -> the SQL text of its body. Each body
	// is itself parseable, enabling recursive descent.
	CTEBodies map[string]string

	// SubqueryNames lists aliases of derived tables (FROM (...) x).
	SubqueryNames []string

	// ColumnsByClause maps clause name -> column references in
	// source order.
	ColumnsByClause map[string][]ColumnRef
}

// ClauseColumns returns the column references of the given clauses,
// concatenated in clause order.
func (s *Statement) ClauseColumns(clauses ...string) []ColumnRef {
	var refs []ColumnRef
	for _, c := range clauses {
		refs = append(refs, s.ColumnsByClause[c]...)
	}
	return refs
}
