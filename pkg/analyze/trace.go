package analyze

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/leapstack-labs/viewlens/pkg/sqlmeta"
)

// UsageQuery names the table and column subset whose usage is being
// traced. Immutable; shared read-only across all units and all
// recursive CTE descents.
type UsageQuery struct {
	Schema  string
	Table   string
	Columns []string
}

func (q UsageQuery) columnSet() map[string]struct{} {
	set := make(map[string]struct{}, len(q.Columns))
	for _, c := range q.Columns {
		set[c] = struct{}{}
	}
	return set
}

// Tracer finds references to a target table's columns across a
// statement and all of its nested CTE scopes.
type Tracer struct {
	logger *slog.Logger
}

// NewTracer creates a Tracer. A nil logger discards diagnostics.
func NewTracer(logger *slog.Logger) *Tracer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Tracer{logger: logger}
}

// Trace walks the statement's select, join and where column references,
// resolves each qualified reference through the alias map and matches it
// against the query's target. Every CTE body is traced recursively with
// its own freshly built alias map; all results are unioned. Bare
// (unqualified) references are never matched: without a single-table
// scope they are ambiguous, and precision wins over recall here.
func (t *Tracer) Trace(st *Structure, aliases map[string]string, query UsageQuery) map[string]struct{} {
	used := make(map[string]struct{})
	targets := query.columnSet()

	for _, ref := range st.traceRefs() {
		if !ref.IsQualified() {
			continue
		}
		// For schema.table.column the immediate qualifier is the
		// segment before the column name.
		qualifier := lastSegment(ref.Qualifier)
		table, ok := aliases[qualifier]
		if !ok {
			table = qualifier
		}
		if !tableMatches(table, query) {
			continue
		}
		if _, ok := targets[ref.Name]; ok {
			used[ref.Name] = struct{}{}
		}
	}

	for name, body := range st.CTEBodies {
		t.logger.Debug("descending into cte", "cte", name)
		for col := range t.TraceSQL(body, query) {
			used[col] = struct{}{}
		}
	}

	return used
}

// TraceSQL parses a SQL body and traces it with a freshly built alias
// map. A parse failure yields an empty result and a diagnostic; it never
// propagates.
func (t *Tracer) TraceSQL(sql string, query UsageQuery) map[string]struct{} {
	stmt, err := sqlmeta.Parse(sql)
	if err != nil {
		t.logger.Warn("sql parse failed during usage trace", "error", err)
		return map[string]struct{}{}
	}
	st := ExtractStructure(stmt)
	return t.Trace(st, ResolveAliases(st), query)
}

// tableMatches reports whether a resolved table identifies the target:
// it contains the schema-qualified name, equals the bare table name, or
// ends with ".table".
func tableMatches(table string, query UsageQuery) bool {
	if strings.Contains(table, query.Schema+"."+query.Table) {
		return true
	}
	if table == query.Table {
		return true
	}
	return strings.HasSuffix(table, "."+query.Table)
}

func lastSegment(s string) string {
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// SortedColumns returns a usage result as a sorted slice.
func SortedColumns(used map[string]struct{}) []string {
	cols := make([]string, 0, len(used))
	for c := range used {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}
