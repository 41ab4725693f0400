// Package dataset loads tabular data into core.Dataset values for a
// validation run.
package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapdq/pkg/core"
	"github.com/spf13/cast"
)

// CSVLoader reads a local CSV file with a header row.
//
// Empty cells and null markers (NA, N/A, null, None, nan and the like) are
// missing. A column whose every present cell is a number
// is loaded as int64 (all integral) or float64; any other column keeps its
// text values.
type CSVLoader struct {
	// Comma is the field delimiter. Zero means ','.
	Comma rune

	Logger *slog.Logger
}

// NewCSVLoader creates a CSV loader. If logger is nil, a discard logger is used.
func NewCSVLoader(logger *slog.Logger) *CSVLoader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CSVLoader{Logger: logger}
}

// Load reads the file at path.
func (l *CSVLoader) Load(ctx context.Context, path string) (core.Dataset, error) {
	f, err := os.Open(path) //nolint:gosec // the source path comes from the command line
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return l.Read(ctx, f)
}

// Read parses CSV from r.
func (l *CSVLoader) Read(ctx context.Context, r io.Reader) (*core.Table, error) {
	reader := csv.NewReader(r)
	if l.Comma != 0 {
		reader.Comma = l.Comma
	}
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("CSV file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	var raw [][]string
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row %d: %w", len(raw)+1, err)
		}
		raw = append(raw, record)
	}

	rows := coerceColumns(columns, raw)
	table, err := core.NewTable(columns, rows)
	if err != nil {
		return nil, fmt.Errorf("invalid CSV layout: %w", err)
	}

	if l.Logger != nil {
		l.Logger.Debug("csv parsed", slog.Int("rows", table.Len()), slog.Int("columns", len(columns)))
	}
	return table, nil
}

// nullTokens are the cell values read as missing, matched exactly after
// trimming. The set follows the markers common CSV exporters and pandas
// write for absent values.
var nullTokens = map[string]struct{}{
	"#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {},
	"N/A": {}, "NA": {}, "NULL": {}, "NaN": {}, "None": {},
	"n/a": {}, "nan": {}, "null": {},
}

// isNullCell reports whether a trimmed cell is missing.
func isNullCell(cell string) bool {
	if cell == "" {
		return true
	}
	_, ok := nullTokens[cell]
	return ok
}

type columnKind int

const (
	kindInt columnKind = iota
	kindFloat
	kindText
)

// coerceColumns infers one kind per column and converts every cell.
func coerceColumns(columns []string, raw [][]string) [][]any {
	kinds := make([]columnKind, len(columns))
	for c := range columns {
		kinds[c] = inferKind(raw, c)
	}

	rows := make([][]any, len(raw))
	for r, record := range raw {
		row := make([]any, len(columns))
		for c := range columns {
			if c >= len(record) {
				continue
			}
			row[c] = convertCell(record[c], kinds[c])
		}
		rows[r] = row
	}
	return rows
}

func inferKind(raw [][]string, col int) columnKind {
	kind := kindInt
	for _, record := range raw {
		if col >= len(record) {
			continue
		}
		cell := strings.TrimSpace(record[col])
		if isNullCell(cell) {
			continue
		}
		if _, err := strconv.ParseInt(cell, 10, 64); err == nil {
			continue
		}
		if _, err := cast.ToFloat64E(cell); err == nil {
			kind = kindFloat
			continue
		}
		return kindText
	}
	return kind
}

func convertCell(cell string, kind columnKind) any {
	cell = strings.TrimSpace(cell)
	if isNullCell(cell) {
		return nil
	}
	switch kind {
	case kindInt:
		n, _ := strconv.ParseInt(cell, 10, 64)
		return n
	case kindFloat:
		return cast.ToFloat64(cell)
	default:
		return cell
	}
}
