package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/viewlens/internal/testutil"
	"github.com/leapstack-labs/viewlens/pkg/analyze"
)

func writeCorpus(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestNew_RequiresSQLDir(t *testing.T) {
	_, err := New(Config{})

	assert.Error(t, err)
}

func TestAnalyze_ScoresCorpusInDiscoveryOrder(t *testing.T) {
	dir := writeCorpus(t, map[string]string{
		"a.sql": "CREATE OR REPLACE VIEW s.a AS\nSELECT x FROM t1 JOIN t2 ON t1.id = t2.id",
		"b.sql": "CREATE OR REPLACE VIEW s.b AS\nSELECT y FROM t3",
	})

	eng, err := New(Config{SQLDir: dir, Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)

	records, err := eng.Analyze(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "s.a", records[0].ViewName)
	assert.Equal(t, "s.b", records[1].ViewName)
	assert.Equal(t, 2, records[0].Metrics.TablesUsed)
	assert.Equal(t, 1, records[0].Metrics.JoinCount)
	assert.Equal(t, []string{"t3"}, records[1].TablesUsed)
	assert.Empty(t, records[0].Err)
}

func TestAnalyze_ParseFailureDegradesOneUnit(t *testing.T) {
	dir := writeCorpus(t, map[string]string{
		"good.sql":   "CREATE OR REPLACE VIEW s.good AS\nSELECT a FROM t1",
		"broken.sql": "CREATE OR REPLACE VIEW s.broken AS\nSELECT ? FROM t1",
		"other.sql":  "CREATE OR REPLACE VIEW s.other AS\nSELECT b FROM t2",
	})

	eng, err := New(Config{SQLDir: dir, Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)

	records, err := eng.Analyze(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3)

	broken := records[0] // broken.sql sorts first
	assert.Equal(t, "s.broken", broken.ViewName)
	assert.Equal(t, "sql parse failed", broken.Err)
	assert.Empty(t, broken.TablesUsed)

	assert.Empty(t, records[1].Err)
	assert.Empty(t, records[2].Err)
}

func TestAnalyze_MissingHeaderStillProducesRecord(t *testing.T) {
	dir := writeCorpus(t, map[string]string{
		"v.sql": "SELECT a FROM t1",
	})

	eng, err := New(Config{SQLDir: dir, Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)

	records, err := eng.Analyze(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Empty(t, records[0].ViewName)
	assert.Equal(t, []string{"t1"}, records[0].TablesUsed)
}

func TestAnalyze_TracesTargetColumns(t *testing.T) {
	dir := writeCorpus(t, map[string]string{
		"direct.sql": "CREATE OR REPLACE VIEW s.direct AS\nSELECT t.minutes FROM public.table_2 t",
		"cte.sql":    "CREATE OR REPLACE VIEW s.cte AS\nWITH c AS (SELECT a.fake FROM public.table_2 a) SELECT c.fake FROM c",
		"none.sql":   "CREATE OR REPLACE VIEW s.none AS\nSELECT z.minutes FROM public.other z",
	})

	eng, err := New(Config{
		SQLDir: dir,
		Usage: &analyze.UsageQuery{
			Schema:  "public",
			Table:   "table_2",
			Columns: []string{"minutes", "fake"},
		},
		Logger: testutil.NewTestLogger(t),
	})
	require.NoError(t, err)

	records, err := eng.Analyze(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3)

	byView := make(map[string][]string)
	for _, r := range records {
		byView[r.ViewName] = r.UsedColumns
	}
	assert.Equal(t, []string{"fake"}, byView["s.cte"])
	assert.Equal(t, []string{"minutes"}, byView["s.direct"])
	assert.Empty(t, byView["s.none"])
}

type fakeStore struct {
	cols    []string
	sizeMB  float64
	rows    int64
	colsErr error
	sizeErr error
	rowsErr error
}

func (f *fakeStore) Columns(_ context.Context, _, _ string) ([]string, error) {
	return f.cols, f.colsErr
}

func (f *fakeStore) TableSizeMB(_ context.Context, _, _ string) (float64, error) {
	return f.sizeMB, f.sizeErr
}

func (f *fakeStore) RowCount(_ context.Context, _, _ string) (int64, error) {
	return f.rows, f.rowsErr
}

func (f *fakeStore) Close() {}

func TestAnalyze_CrossReferencesWarehouse(t *testing.T) {
	dir := writeCorpus(t, map[string]string{
		"v.sql": "CREATE OR REPLACE VIEW s.v AS\nSELECT a FROM t1",
	})

	store := &fakeStore{cols: []string{"a", "b"}, sizeMB: 12.5, rows: 42}
	eng, err := New(Config{
		SQLDir:       dir,
		Metadata:     store,
		ReportSchema: "s",
		Logger:       testutil.NewTestLogger(t),
	})
	require.NoError(t, err)

	records, err := eng.Analyze(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, []string{"a", "b"}, rec.Columns)
	require.NotNil(t, rec.SizeMB)
	assert.InDelta(t, 12.5, *rec.SizeMB, 1e-9)
	require.NotNil(t, rec.RowsCnt)
	assert.Equal(t, int64(42), *rec.RowsCnt)
}

func TestAnalyze_WarehouseFailuresDegrade(t *testing.T) {
	dir := writeCorpus(t, map[string]string{
		"v.sql": "CREATE OR REPLACE VIEW s.v AS\nSELECT a FROM t1",
	})

	store := &fakeStore{
		cols:    []string{"a"},
		sizeErr: errors.New("temp table failed"),
		rowsErr: errors.New("count failed"),
	}
	eng, err := New(Config{
		SQLDir:       dir,
		Metadata:     store,
		ReportSchema: "s",
		Logger:       testutil.NewTestLogger(t),
	})
	require.NoError(t, err)

	records, err := eng.Analyze(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, []string{"a"}, rec.Columns)
	assert.Nil(t, rec.SizeMB)
	assert.Nil(t, rec.RowsCnt)
	assert.Empty(t, rec.Err)
}
