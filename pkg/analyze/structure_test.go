package analyze

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/viewlens/pkg/sqlmeta"
)

func TestExtractStructure_FiltersBuiltinTables(t *testing.T) {
	stmt := &sqlmeta.Statement{
		Tables:  []string{"count", "case", "t1", "Current_Date", "NVL", "schema1.orders"},
		Aliases: map[string]string{"o": "schema1.orders"},
	}

	st := ExtractStructure(stmt)

	assert.Equal(t, []string{"t1", "schema1.orders"}, st.Tables)
	assert.Equal(t, map[string]string{"o": "schema1.orders"}, st.Aliases)
}

func TestExtractStructure_PassesThroughMetadata(t *testing.T) {
	stmt, err := sqlmeta.Parse(`WITH c AS (SELECT a FROM t1) SELECT s.b FROM (SELECT b FROM t2) s`)
	require.NoError(t, err)

	st := ExtractStructure(stmt)

	assert.Equal(t, []string{"c"}, st.CTENames)
	assert.Equal(t, []string{"s"}, st.Subqueries)
	assert.ElementsMatch(t, []string{"t1", "t2"}, st.Tables)
	assert.NotEmpty(t, st.Columns[sqlmeta.ClauseSelect])
}

func TestEmptyStructure(t *testing.T) {
	st := EmptyStructure("SELECT broken")

	assert.Equal(t, "SELECT broken", st.Text)
	assert.Empty(t, st.Tables)
	assert.NotNil(t, st.Aliases)
	assert.NotNil(t, st.Columns)
}
