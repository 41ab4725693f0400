package core

import (
	"fmt"
	"slices"
)

// =============================================================================
// Dataset
// =============================================================================

// Dataset is a read-only tabular view (rows x named columns) shared by every
// rule of a validation run. Implementations must not allow callers to mutate
// the underlying data: accessors return copies.
type Dataset interface {
	// Columns returns the column names in their original order.
	Columns() []string

	// Len returns the number of rows.
	Len() int

	// HasColumn reports whether the named column exists.
	HasColumn(name string) bool

	// Column returns a copy of every value in the named column.
	Column(name string) ([]any, bool)

	// Value returns a single cell. A missing cell is reported as (nil, true);
	// ok is false only when the row or column does not exist.
	Value(row int, column string) (any, bool)
}

// Table is the immutable in-memory Dataset built by loaders.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]any
}

// NewTable builds a Table from column names and row values. The input is
// deep-copied (one level: the cell values themselves are treated as scalars).
// Every row must have exactly len(columns) cells and column names must be
// unique.
func NewTable(columns []string, rows [][]any) (*Table, error) {
	index := make(map[string]int, len(columns))
	for i, name := range columns {
		if _, dup := index[name]; dup {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		index[name] = i
	}

	copied := make([][]any, len(rows))
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row %d has %d values, expected %d", i, len(row), len(columns))
		}
		copied[i] = slices.Clone(row)
	}

	return &Table{
		columns: slices.Clone(columns),
		index:   index,
		rows:    copied,
	}, nil
}

// MustTable is like NewTable but panics on error. Intended for fixtures.
func MustTable(columns []string, rows [][]any) *Table {
	t, err := NewTable(columns, rows)
	if err != nil {
		panic(err)
	}
	return t
}

// Columns returns a copy of the column names.
func (t *Table) Columns() []string {
	return slices.Clone(t.columns)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns a copy of the values in the named column.
func (t *Table) Column(name string) ([]any, bool) {
	idx, ok := t.index[name]
	if !ok {
		return nil, false
	}
	values := make([]any, len(t.rows))
	for i, row := range t.rows {
		values[i] = row[idx]
	}
	return values, true
}

// Value returns a single cell.
func (t *Table) Value(row int, column string) (any, bool) {
	idx, ok := t.index[column]
	if !ok || row < 0 || row >= len(t.rows) {
		return nil, false
	}
	return t.rows[row][idx], true
}

// Ensure Table implements Dataset.
var _ Dataset = (*Table)(nil)
