package dataset

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapdq/pkg/adapter"
	"github.com/leapstack-labs/leapdq/pkg/adapters/duckdb"
	"github.com/leapstack-labs/leapdq/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `record_id,campaign_id,campaign_date,return_on_ad_spend,clicks
1,c1,2024-01-01,1.5,10
2,c1,2024-01-02,,20
3,c2,not a date,2,
`

func writeSample(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestCSVLoader_Load(t *testing.T) {
	ds, err := NewCSVLoader(nil).Load(context.Background(), writeSample(t, "campaigns.csv", sample))
	require.NoError(t, err)

	assert.Equal(t, []string{"record_id", "campaign_id", "campaign_date", "return_on_ad_spend", "clicks"}, ds.Columns())
	assert.Equal(t, 3, ds.Len())

	tests := []struct {
		row    int
		column string
		want   any
	}{
		{0, "record_id", int64(1)},
		{0, "campaign_id", "c1"},
		{2, "campaign_date", "not a date"},
		{0, "return_on_ad_spend", 1.5},
		{2, "return_on_ad_spend", 2.0},
		{1, "return_on_ad_spend", nil},
		{1, "clicks", int64(20)},
		{2, "clicks", nil},
	}
	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			got, ok := ds.Value(tt.row, tt.column)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCSVLoader_NullTokens(t *testing.T) {
	ds, err := NewCSVLoader(nil).Read(context.Background(), strings.NewReader(
		"id,roas,note\n1,1.0,ok\n2,NA,None\n3,null,NULL\n4,N/A,nan\n5,2.5,n/a\n"))
	require.NoError(t, err)

	for row, want := range []any{1.0, nil, nil, nil, 2.5} {
		got, ok := ds.Value(row, "roas")
		require.True(t, ok)
		assert.Equal(t, want, got, "roas row %d", row)
	}
	for row, want := range []any{"ok", nil, nil, nil, nil} {
		got, _ := ds.Value(row, "note")
		assert.Equal(t, want, got, "note row %d", row)
	}

	// Tokens are matched exactly, so ordinary words stay text.
	ds, err = NewCSVLoader(nil).Read(context.Background(), strings.NewReader("name\nNana\nnone\n"))
	require.NoError(t, err)
	got, _ := ds.Value(1, "name")
	assert.Equal(t, "none", got)
}

func TestCSVLoader_Errors(t *testing.T) {
	loader := NewCSVLoader(nil)

	_, err := loader.Load(context.Background(), filepath.Join(t.TempDir(), "absent.csv"))
	assert.ErrorContains(t, err, "failed to open CSV file")

	_, err = loader.Load(context.Background(), writeSample(t, "empty.csv", ""))
	assert.ErrorContains(t, err, "CSV file is empty")

	_, err = loader.Read(context.Background(), strings.NewReader("a,b\n1,2,3\n"))
	assert.ErrorContains(t, err, "failed to read CSV row 1")

	_, err = loader.Read(context.Background(), strings.NewReader("a,a\n1,2\n"))
	assert.ErrorContains(t, err, "duplicate column")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = loader.Read(ctx, strings.NewReader(sample))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCSVLoader_HeaderOnly(t *testing.T) {
	ds, err := NewCSVLoader(nil).Read(context.Background(), strings.NewReader("\ufeffrecord_id, campaign_id\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, ds.Len())
	assert.Equal(t, []string{"record_id", "campaign_id"}, ds.Columns())
}

func TestCSVLoader_Delimiter(t *testing.T) {
	loader := &CSVLoader{Comma: ';'}
	ds, err := loader.Read(context.Background(), strings.NewReader("a;b\n1;x\n"))
	require.NoError(t, err)
	v, _ := ds.Value(0, "b")
	assert.Equal(t, "x", v)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		source string
		want   sourceKind
	}{
		{"SELECT * FROM campaigns", sourceQuery},
		{"with x as (select 1) select * from x", sourceQuery},
		{"campaigns", sourceTable},
		{"marketing.campaigns", sourceTable},
		{"data/subset/marketing_performance.csv", sourceFile},
		{"campaigns.parquet", sourceFile},
		{"./campaigns", sourceFile},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.source))
		})
	}
}

func newDuckDB(t *testing.T) *duckdb.Adapter {
	t.Helper()
	adp := duckdb.New(nil)
	require.NoError(t, adp.Connect(context.Background(), core.AdapterConfig{}))
	t.Cleanup(func() { _ = adp.Close() })
	return adp
}

func TestSQLLoader_DuckDB(t *testing.T) {
	ctx := context.Background()
	adp := newDuckDB(t)
	loader := NewSQLLoader(adp, nil)
	path := writeSample(t, "campaigns.csv", sample)

	ds, err := loader.Load(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Len())

	require.NoError(t, adp.LoadCSV(ctx, "campaigns", path))

	ds, err = loader.Load(ctx, "campaigns")
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Len())

	ds, err = loader.Load(ctx, "SELECT record_id FROM campaigns WHERE campaign_id = 'c1'")
	require.NoError(t, err)
	assert.Equal(t, []string{"record_id"}, ds.Columns())
	assert.Equal(t, 2, ds.Len())

	_, err = loader.Load(ctx, "missing_table")
	assert.Error(t, err)

	_, err = loader.Load(ctx, "  ")
	assert.ErrorContains(t, err, "empty source")
}

func TestSQLLoader_Columns(t *testing.T) {
	ctx := context.Background()
	adp := newDuckDB(t)
	loader := NewSQLLoader(adp, nil)
	path := writeSample(t, "campaigns.csv", sample)
	require.NoError(t, adp.LoadCSV(ctx, "campaigns", path))

	want := []string{"record_id", "campaign_id", "campaign_date", "return_on_ad_spend", "clicks"}

	cols, err := loader.Columns(ctx, "campaigns")
	require.NoError(t, err)
	assert.Equal(t, want, cols)

	cols, err = loader.Columns(ctx, "main.campaigns")
	require.NoError(t, err)
	assert.Equal(t, want, cols)

	cols, err = loader.Columns(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, want, cols)

	cols, err = loader.Columns(ctx, "SELECT clicks FROM campaigns")
	require.NoError(t, err)
	assert.Equal(t, []string{"clicks"}, cols)

	_, err = loader.Columns(ctx, "missing_table")
	assert.ErrorContains(t, err, "not found")

	_, err = (&SQLLoader{}).Columns(ctx, "campaigns")
	assert.ErrorContains(t, err, "no database adapter configured")
}

// stagingAdapter has no in-place file reader, so file sources are staged.
type stagingAdapter struct {
	adapter.BaseSQLAdapter
	loaded  []string
	loadErr error
	queries []string
	result  core.Dataset
}

func (s *stagingAdapter) Name() string { return "staging" }
func (s *stagingAdapter) Connect(context.Context, adapter.Config) error { return nil }
func (s *stagingAdapter) Columns(context.Context, string) ([]adapter.Column, error) {
	return nil, nil
}

func (s *stagingAdapter) LoadCSV(_ context.Context, table, path string) error {
	s.loaded = append(s.loaded, table+"<-"+filepath.Base(path))
	return s.loadErr
}

func (s *stagingAdapter) QueryDataset(_ context.Context, q string) (core.Dataset, error) {
	s.queries = append(s.queries, q)
	if s.result == nil {
		return nil, sql.ErrNoRows
	}
	return s.result, nil
}

func TestSQLLoader_StagesFiles(t *testing.T) {
	ctx := context.Background()
	adp := &stagingAdapter{result: core.MustTable([]string{"a"}, [][]any{{1}})}
	loader := NewSQLLoader(adp, nil)

	ds, err := loader.Load(ctx, "/data/campaigns.csv")
	require.NoError(t, err)
	assert.Equal(t, 1, ds.Len())
	assert.Equal(t, []string{StagingTable + "<-campaigns.csv"}, adp.loaded)
	assert.Equal(t, []string{"SELECT * FROM " + StagingTable}, adp.queries)

	_, err = loader.Load(ctx, "/data/campaigns.parquet")
	assert.ErrorContains(t, err, "cannot read .parquet files")

	adp.loadErr = errors.New("copy failed")
	_, err = loader.Load(ctx, "/data/campaigns.csv")
	assert.ErrorContains(t, err, "copy failed")
}

func TestSQLLoader_QueryError(t *testing.T) {
	loader := NewSQLLoader(&stagingAdapter{}, nil)
	_, err := loader.Load(context.Background(), "campaigns")
	require.ErrorIs(t, err, sql.ErrNoRows)
	assert.Contains(t, err.Error(), "failed to query staging")

	_, err = (&SQLLoader{}).Load(context.Background(), "campaigns")
	assert.ErrorContains(t, err, "no database adapter configured")
}
