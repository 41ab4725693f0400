// Package duckdb provides a DuckDB database adapter for LeapDQ.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapdq/pkg/adapter"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// Name is the registered adapter type.
const Name = "duckdb"

// Adapter implements the adapter.Adapter interface for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
	params *Params
}

// New creates a new DuckDB adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Name returns the adapter type.
func (a *Adapter) Name() string {
	return Name
}

// Connect establishes a connection to DuckDB.
// An empty path (or ":memory:") opens an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	params, err := ParseParams(cfg.Params)
	if err != nil {
		return err
	}

	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	// Settings and loaded extensions are per connection.
	db.SetMaxOpenConns(1)

	a.DB = db
	a.Cfg = cfg
	a.params = params

	if err := a.applyParams(ctx); err != nil {
		_ = db.Close()
		a.DB = nil
		return err
	}

	a.Logger.Debug("connected to duckdb", slog.String("path", path), slog.Int("extensions", len(params.Extensions)))
	return nil
}

// applyParams installs extensions and applies session settings.
func (a *Adapter) applyParams(ctx context.Context) error {
	for _, ext := range a.params.Extensions {
		ext = strings.TrimSpace(ext)
		if ext == "" {
			continue
		}
		if err := a.Exec(ctx, "INSTALL "+ext); err != nil {
			return fmt.Errorf("failed to install extension %s: %w", ext, err)
		}
		if err := a.Exec(ctx, "LOAD "+ext); err != nil {
			return fmt.Errorf("failed to load extension %s: %w", ext, err)
		}
	}

	// Sorted for a deterministic statement order.
	keys := make([]string, 0, len(a.params.Settings))
	for k := range a.params.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		stmt := fmt.Sprintf("SET %s = '%s'", key, escapeLiteral(a.params.Settings[key]))
		if err := a.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply setting %s: %w", key, err)
		}
	}
	return nil
}

// Columns lists the columns of a table. Unqualified names resolve to the
// main schema.
func (a *Adapter) Columns(ctx context.Context, table string) ([]adapter.Column, error) {
	schema, name := adapter.SplitQualifiedName(table, "main")
	return a.ColumnsQuery(ctx, schema, name, "?", "?")
}

// LoadCSV loads data from a CSV file into a table.
// DuckDB will automatically infer the schema from the CSV file.
func (a *Adapter) LoadCSV(ctx context.Context, tableName string, filePath string) error {
	if a.DB == nil {
		return adapter.ErrNotConnected
	}

	query, err := a.FileQuery(filePath)
	if err != nil {
		return err
	}

	//nolint:gosec // table names come from configuration
	stmt := fmt.Sprintf("CREATE OR REPLACE TABLE %s AS %s", tableName, query)
	if err := a.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("failed to load CSV: %w", err)
	}
	return nil
}

// FileQuery returns a SELECT over a CSV or Parquet file, read in place.
func (a *Adapter) FileQuery(filePath string) (string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}
	quoted := escapeLiteral(absPath)

	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".parquet":
		return fmt.Sprintf("SELECT * FROM read_parquet('%s')", quoted), nil
	case ".csv", ".tsv", ".txt":
		return fmt.Sprintf("SELECT * FROM read_csv_auto('%s', header=true)", quoted), nil
	default:
		return "", fmt.Errorf("unsupported file type %q (expected .csv or .parquet)", filepath.Ext(filePath))
	}
}

func escapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// Ensure Adapter implements the adapter interfaces
var (
	_ adapter.Adapter    = (*Adapter)(nil)
	_ adapter.FileReader = (*Adapter)(nil)
)
