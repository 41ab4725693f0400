package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/leapstack-labs/leapdq/pkg/adapter"
	"github.com/leapstack-labs/leapdq/pkg/core"
)

// StagingTable is the table a file source is loaded into when the adapter
// cannot read files in place.
const StagingTable = "leapdq_source"

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// SQLLoader loads a dataset through a connected database adapter.
//
// The source may be a data file (.csv or .parquet), a table name
// (optionally schema-qualified) or a SELECT/WITH query.
type SQLLoader struct {
	Adapter adapter.Adapter
	Logger  *slog.Logger
}

// NewSQLLoader creates a loader over a connected adapter.
// If logger is nil, a discard logger is used.
func NewSQLLoader(adp adapter.Adapter, logger *slog.Logger) *SQLLoader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLLoader{Adapter: adp, Logger: logger}
}

// Load resolves the source to a query and materializes its rows.
func (l *SQLLoader) Load(ctx context.Context, source string) (core.Dataset, error) {
	if l.Adapter == nil {
		return nil, fmt.Errorf("no database adapter configured")
	}

	query, err := l.resolve(ctx, source)
	if err != nil {
		return nil, err
	}

	l.Logger.Debug("loading dataset", slog.String("adapter", l.Adapter.Name()), slog.String("query", query))

	ds, err := l.Adapter.QueryDataset(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", l.Adapter.Name(), err)
	}
	return ds, nil
}

// Columns lists the column names of a source. Table sources are answered
// from the catalog without reading rows; files and queries are loaded.
func (l *SQLLoader) Columns(ctx context.Context, source string) ([]string, error) {
	if l.Adapter == nil {
		return nil, fmt.Errorf("no database adapter configured")
	}

	source = strings.TrimSpace(source)
	if source != "" && classify(source) == sourceTable {
		cols, err := l.Adapter.Columns(ctx, source)
		if err != nil {
			return nil, fmt.Errorf("failed to list columns of %s: %w", source, err)
		}
		names := make([]string, len(cols))
		for i, col := range cols {
			names[i] = col.Name
		}
		return names, nil
	}

	ds, err := l.Load(ctx, source)
	if err != nil {
		return nil, err
	}
	return ds.Columns(), nil
}

// resolve turns a source string into a SELECT statement.
func (l *SQLLoader) resolve(ctx context.Context, source string) (string, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return "", fmt.Errorf("empty source")
	}

	switch classify(source) {
	case sourceQuery:
		return source, nil
	case sourceTable:
		return "SELECT * FROM " + source, nil
	}

	if reader, ok := l.Adapter.(adapter.FileReader); ok {
		return reader.FileQuery(source)
	}
	if ext := strings.ToLower(filepath.Ext(source)); ext != ".csv" {
		return "", fmt.Errorf("adapter %s cannot read %s files", l.Adapter.Name(), ext)
	}
	if err := l.Adapter.LoadCSV(ctx, StagingTable, source); err != nil {
		return "", err
	}
	return "SELECT * FROM " + StagingTable, nil
}

type sourceKind int

const (
	sourceFile sourceKind = iota
	sourceTable
	sourceQuery
)

func classify(source string) sourceKind {
	lower := strings.ToLower(source)
	if strings.HasPrefix(lower, "select ") || strings.HasPrefix(lower, "with ") ||
		strings.HasPrefix(lower, "select\n") || strings.HasPrefix(lower, "with\n") {
		return sourceQuery
	}
	switch strings.ToLower(filepath.Ext(source)) {
	case ".csv", ".tsv", ".txt", ".parquet":
		return sourceFile
	}
	if identifierPattern.MatchString(source) {
		return sourceTable
	}
	return sourceFile
}
