package analyze

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/viewlens/pkg/sqlmeta"
)

var ordersQuery = UsageQuery{
	Schema:  "public",
	Table:   "table_2",
	Columns: []string{"minutes", "fake"},
}

func traceText(t *testing.T, sql string, query UsageQuery) map[string]struct{} {
	t.Helper()
	stmt, err := sqlmeta.Parse(sql)
	require.NoError(t, err)
	st := ExtractStructure(stmt)
	return NewTracer(nil).Trace(st, ResolveAliases(st), query)
}

func TestTrace_DirectReference(t *testing.T) {
	used := traceText(t, `SELECT t.minutes FROM public.table_2 t`, ordersQuery)

	assert.Equal(t, []string{"minutes"}, SortedColumns(used))
}

func TestTrace_AliasIndirection(t *testing.T) {
	used := traceText(t,
		`SELECT x.minutes AS m FROM public.table_2 x JOIN other o ON x.id = o.id`,
		ordersQuery)

	assert.Contains(t, used, "minutes")
}

func TestTrace_CTERecursion(t *testing.T) {
	used := traceText(t,
		`WITH c AS (SELECT a.fake FROM public.table_2 a) SELECT c.fake FROM c`,
		ordersQuery)

	assert.Equal(t, []string{"fake"}, SortedColumns(used))
}

func TestTrace_NestedCTEs(t *testing.T) {
	sql := `WITH inner_c AS (
    SELECT a.minutes FROM public.table_2 a
), outer_c AS (
    SELECT i.minutes FROM inner_c i
)
SELECT o.minutes FROM outer_c o`

	used := traceText(t, sql, ordersQuery)

	assert.Equal(t, []string{"minutes"}, SortedColumns(used))
}

func TestTrace_NonMatchIsolation(t *testing.T) {
	// The column name coincides with a target column but the table
	// does not match.
	used := traceText(t, `SELECT z.minutes FROM public.other_table z`, ordersQuery)

	assert.Empty(t, used)
}

func TestTrace_BareReferencesNeverMatch(t *testing.T) {
	used := traceText(t, `SELECT minutes FROM public.table_2`, ordersQuery)

	assert.Empty(t, used)
}

func TestTrace_SchemaQualifiedReference(t *testing.T) {
	used := traceText(t,
		`SELECT public.table_2.minutes FROM public.table_2 WHERE public.table_2.fake = 1`,
		ordersQuery)

	assert.Equal(t, []string{"fake", "minutes"}, SortedColumns(used))
}

func TestTrace_UnresolvedQualifierFallback(t *testing.T) {
	// The qualifier is bound to no alias: it falls back to itself.
	used := traceText(t, `SELECT table_2.minutes FROM elsewhere`, ordersQuery)

	assert.Equal(t, []string{"minutes"}, SortedColumns(used))
}

func TestTrace_OnlySelectJoinWhereInspected(t *testing.T) {
	used := traceText(t,
		`SELECT t.id FROM public.table_2 t GROUP BY t.minutes ORDER BY t.fake`,
		ordersQuery)

	assert.Empty(t, used)
}

func TestTraceSQL_ParseFailureYieldsEmpty(t *testing.T) {
	used := NewTracer(nil).TraceSQL("SELECT ? FROM t", ordersQuery)

	assert.NotNil(t, used)
	assert.Empty(t, used)
}

func TestSortedColumns(t *testing.T) {
	got := SortedColumns(map[string]struct{}{"b": {}, "a": {}, "c": {}})
	assert.Equal(t, []string{"a", "b", "c"}, got)
}
