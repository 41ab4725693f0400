package adapter

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*BaseSQLAdapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &BaseSQLAdapter{DB: db}, mock
}

func TestBaseSQLAdapter_Close(t *testing.T) {
	tests := []struct {
		name    string
		setupDB bool
	}{
		{name: "close with nil DB"},
		{name: "close with open DB", setupDB: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := &BaseSQLAdapter{}

			if tt.setupDB {
				db, mock, err := sqlmock.New()
				require.NoError(t, err)
				mock.ExpectClose()
				base.DB = db
			}

			assert.NoError(t, base.Close())
		})
	}
}

func TestBaseSQLAdapter_Exec(t *testing.T) {
	tests := []struct {
		name      string
		setupDB   bool
		setupMock func(mock sqlmock.Sqlmock)
		sql       string
		errMsg    string
	}{
		{
			name:   "exec without connection",
			sql:    "SELECT 1",
			errMsg: "database connection not established",
		},
		{
			name:    "exec success",
			setupDB: true,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("CREATE TABLE campaigns").WillReturnResult(sqlmock.NewResult(0, 0))
			},
			sql: "CREATE TABLE campaigns (record_id INT)",
		},
		{
			name:    "exec with error",
			setupDB: true,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INVALID SQL").WillReturnError(assert.AnError)
			},
			sql:    "INVALID SQL",
			errMsg: "failed to execute SQL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := &BaseSQLAdapter{}
			var mock sqlmock.Sqlmock
			if tt.setupDB {
				base, mock = newMock(t)
				tt.setupMock(mock)
			}

			err := base.Exec(context.Background(), tt.sql)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
			}
			if mock != nil {
				assert.NoError(t, mock.ExpectationsWereMet())
			}
		})
	}
}

func TestBaseSQLAdapter_QueryDataset(t *testing.T) {
	base, mock := newMock(t)

	rows := sqlmock.NewRows([]string{"record_id", "campaign_id", "return_on_ad_spend"}).
		AddRow(int64(1), []byte("c1"), 1.5).
		AddRow(int64(2), "c2", nil)
	mock.ExpectQuery("SELECT \\* FROM campaigns").WillReturnRows(rows)

	ds, err := base.QueryDataset(context.Background(), "SELECT * FROM campaigns")
	require.NoError(t, err)

	assert.Equal(t, []string{"record_id", "campaign_id", "return_on_ad_spend"}, ds.Columns())
	assert.Equal(t, 2, ds.Len())

	v, ok := ds.Value(0, "campaign_id")
	require.True(t, ok)
	assert.Equal(t, "c1", v, "[]byte values are converted to strings")

	v, ok = ds.Value(1, "return_on_ad_spend")
	require.True(t, ok)
	assert.Nil(t, v)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBaseSQLAdapter_QueryDatasetErrors(t *testing.T) {
	t.Run("query error", func(t *testing.T) {
		base, mock := newMock(t)
		mock.ExpectQuery("SELECT").WillReturnError(assert.AnError)

		_, err := base.QueryDataset(context.Background(), "SELECT 1")
		require.ErrorIs(t, err, assert.AnError)
		assert.Contains(t, err.Error(), "failed to execute query")
	})

	t.Run("row error", func(t *testing.T) {
		base, mock := newMock(t)
		rows := sqlmock.NewRows([]string{"id"}).
			AddRow(1).
			AddRow(2).
			RowError(1, assert.AnError)
		mock.ExpectQuery("SELECT").WillReturnRows(rows)

		_, err := base.QueryDataset(context.Background(), "SELECT id FROM t")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error iterating rows")
	})

	t.Run("not connected", func(t *testing.T) {
		_, err := (&BaseSQLAdapter{}).QueryDataset(context.Background(), "SELECT 1")
		assert.ErrorIs(t, err, ErrNotConnected)
	})
}

func TestBaseSQLAdapter_ColumnsQuery(t *testing.T) {
	base, mock := newMock(t)

	rows := sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "ordinal_position"}).
		AddRow("record_id", "BIGINT", "NO", 1).
		AddRow("campaign_date", "DATE", "YES", 2)
	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs("main", "campaigns").
		WillReturnRows(rows)

	cols, err := base.ColumnsQuery(context.Background(), "main", "campaigns", "?", "?")
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, Column{Name: "record_id", Type: "BIGINT", Nullable: false, Position: 1}, cols[0])
	assert.True(t, cols[1].Nullable)

	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs("main", "missing").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "ordinal_position"}))
	_, err = base.ColumnsQuery(context.Background(), "main", "missing", "?", "?")
	assert.ErrorContains(t, err, "table main.missing not found")
}

func TestSplitQualifiedName(t *testing.T) {
	schema, table := SplitQualifiedName("marketing.campaigns", "public")
	assert.Equal(t, "marketing", schema)
	assert.Equal(t, "campaigns", table)

	schema, table = SplitQualifiedName("campaigns", "public")
	assert.Equal(t, "public", schema)
	assert.Equal(t, "campaigns", table)
}

func TestBaseSQLAdapter_IsConnected(t *testing.T) {
	assert.False(t, (&BaseSQLAdapter{}).IsConnected())
	base, _ := newMock(t)
	assert.True(t, base.IsConnected())
}
