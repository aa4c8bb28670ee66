package sqlmeta

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_TablesAliasesAndClauses(t *testing.T) {
	sql := `SELECT col1, t.col2
FROM schema1.table1 t
JOIN table2 AS b ON t.id = b.id
WHERE t.flag = 1`

	st, err := Parse(sql)
	require.NoError(t, err)

	assert.Equal(t, []string{"schema1.table1", "table2"}, st.Tables)
	assert.Equal(t, map[string]string{
		"t": "schema1.table1",
		"b": "table2",
	}, st.Aliases)

	assert.Equal(t, []ColumnRef{
		{Name: "col1"},
		{Qualifier: "t", Name: "col2"},
	}, st.ColumnsByClause[ClauseSelect])
	assert.Equal(t, []ColumnRef{
		{Qualifier: "t", Name: "id"},
		{Qualifier: "b", Name: "id"},
	}, st.ColumnsByClause[ClauseJoin])
	assert.Equal(t, []ColumnRef{
		{Qualifier: "t", Name: "flag"},
	}, st.ColumnsByClause[ClauseWhere])

	refs := st.ClauseColumns(ClauseSelect, ClauseWhere)
	assert.Len(t, refs, 3)
}

func TestParse_CTECaptureAndClassification(t *testing.T) {
	sql := `WITH cte1 AS (
    SELECT o.minutes FROM schema2.orders o
)
SELECT c.minutes FROM cte1 c`

	st, err := Parse(sql)
	require.NoError(t, err)

	// The CTE name is not a base table; its body's table is.
	assert.Equal(t, []string{"schema2.orders"}, st.Tables)
	assert.Equal(t, []string{"cte1"}, st.CTENames)

	body, ok := st.CTEBodies["cte1"]
	require.True(t, ok)
	assert.Equal(t, "SELECT o.minutes FROM schema2.orders o", strings.TrimSpace(body))

	assert.Equal(t, "schema2.orders", st.Aliases["o"])
	assert.Equal(t, "cte1", st.Aliases["c"])
}

func TestParse_MultipleCTEs(t *testing.T) {
	sql := `WITH a AS (SELECT 1), b AS (SELECT x FROM t1)
SELECT * FROM b`

	st, err := Parse(sql)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, st.CTENames)
	assert.Equal(t, "SELECT 1", st.CTEBodies["a"])
	assert.Equal(t, "SELECT x FROM t1", st.CTEBodies["b"])
	assert.Equal(t, []string{"t1"}, st.Tables)
}

func TestParse_CTEColumnListSkipped(t *testing.T) {
	sql := `WITH c (x, y) AS (SELECT a, b FROM t1) SELECT x FROM c`

	st, err := Parse(sql)
	require.NoError(t, err)

	assert.Equal(t, []string{"c"}, st.CTENames)
	assert.Equal(t, "SELECT a, b FROM t1", st.CTEBodies["c"])
	assert.Equal(t, []string{"t1"}, st.Tables)
}

func TestParse_DerivedTable(t *testing.T) {
	sql := `SELECT x.a FROM (SELECT a FROM t1) x`

	st, err := Parse(sql)
	require.NoError(t, err)

	assert.Equal(t, []string{"t1"}, st.Tables)
	assert.Equal(t, []string{"x"}, st.SubqueryNames)
	assert.Equal(t, []ColumnRef{
		{Qualifier: "x", Name: "a"},
		{Name: "a"},
	}, st.ColumnsByClause[ClauseSelect])
}

func TestParse_DerivedTableWithAS(t *testing.T) {
	sql := `SELECT s.n FROM (SELECT n FROM t2) AS s`

	st, err := Parse(sql)
	require.NoError(t, err)

	assert.Equal(t, []string{"s"}, st.SubqueryNames)
}

func TestParse_OutputAliasAndCastSkipped(t *testing.T) {
	sql := `SELECT a AS renamed, b::varchar, CAST(c AS int) FROM t1`

	st, err := Parse(sql)
	require.NoError(t, err)

	// "renamed", "varchar" and "int" are not column references.
	assert.Equal(t, []ColumnRef{
		{Name: "a"},
		{Name: "b"},
		{Name: "c"},
	}, st.ColumnsByClause[ClauseSelect])
}

func TestParse_FunctionCallsAreNotColumns(t *testing.T) {
	sql := `SELECT lower(u.name), count(*) FROM users u GROUP BY lower(u.name)`

	st, err := Parse(sql)
	require.NoError(t, err)

	assert.Equal(t, []ColumnRef{
		{Qualifier: "u", Name: "name"},
	}, st.ColumnsByClause[ClauseSelect])
	assert.Equal(t, []ColumnRef{
		{Qualifier: "u", Name: "name"},
	}, st.ColumnsByClause[ClauseGroupBy])
	assert.Equal(t, []string{"users"}, st.Tables)
}

func TestParse_TableFunctionInFrom(t *testing.T) {
	sql := `SELECT * FROM generate_series(1, 3)`

	st, err := Parse(sql)
	require.NoError(t, err)

	assert.Empty(t, st.Tables)
}

func TestParse_StarExpansionIgnored(t *testing.T) {
	sql := `SELECT t.*, u.name FROM t JOIN u ON t.id = u.id`

	st, err := Parse(sql)
	require.NoError(t, err)

	assert.Equal(t, []ColumnRef{
		{Qualifier: "u", Name: "name"},
	}, st.ColumnsByClause[ClauseSelect])
}

func TestParse_OrderAndGroupClauses(t *testing.T) {
	sql := `SELECT a FROM t GROUP BY a HAVING count(1) > 2 ORDER BY a DESC`

	st, err := Parse(sql)
	require.NoError(t, err)

	assert.Equal(t, []ColumnRef{{Name: "a"}}, st.ColumnsByClause[ClauseGroupBy])
	assert.Equal(t, []ColumnRef{{Name: "a"}}, st.ColumnsByClause[ClauseOrderBy])
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		sql  string
	}{
		{"illegal character", "SELECT ? FROM t"},
		{"unbalanced open", "SELECT (a FROM t"},
		{"unbalanced close", "SELECT a) FROM t"},
		{"unterminated cte body", "WITH c AS (SELECT 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.sql)
			require.Error(t, err)
			var perr *ParseError
			assert.ErrorAs(t, err, &perr)
		})
	}
}

func TestParse_EmptyInput(t *testing.T) {
	st, err := Parse("")
	require.NoError(t, err)
	assert.Empty(t, st.Tables)
	assert.Empty(t, st.CTENames)
}
