// Package adapter provides the database adapter contract used to load
// datasets from SQL engines.
//
// Concrete adapter implementations are in pkg/adapters/ subdirectories and
// register themselves with the default registry from init().
package adapter

import (
	"context"
	"database/sql"

	"github.com/leapstack-labs/leapdq/pkg/core"
)

type (
	// Config is an alias for core.AdapterConfig.
	Config = core.AdapterConfig

	// Column is an alias for core.Column.
	Column = core.Column
)

// Adapter defines the interface that all database adapters must implement.
type Adapter interface {
	// Name returns the registered adapter type, e.g. "duckdb".
	Name() string

	// Connect establishes a connection to the database using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the database connection and releases resources.
	Close() error

	// Exec executes a SQL statement that doesn't return rows.
	Exec(ctx context.Context, sql string) error

	// Query executes a SQL statement that returns rows. The caller closes
	// the rows.
	Query(ctx context.Context, sql string) (*sql.Rows, error)

	// QueryDataset executes a query and materializes its result as a dataset.
	QueryDataset(ctx context.Context, sql string) (core.Dataset, error)

	// Columns lists the columns of a table in ordinal order.
	Columns(ctx context.Context, table string) ([]Column, error)

	// LoadCSV loads data from a CSV file into a table, replacing any
	// existing table of that name.
	LoadCSV(ctx context.Context, tableName string, filePath string) error
}

// FileReader is implemented by adapters that can query data files in place
// (for example DuckDB reading CSV or Parquet) without loading them first.
type FileReader interface {
	// FileQuery returns a SELECT statement over the file.
	FileQuery(filePath string) (string, error)
}
