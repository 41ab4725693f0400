package starlark

import (
	"fmt"

	"github.com/leapstack-labs/leapdq/pkg/core"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// TableToStarlark exposes a dataset to scripts as a frozen struct:
//
//	table.columns        list of column names
//	table.len            number of rows
//	table.rows           list of dicts, one per row
//	table.column(name)   list of the column's values, or None if absent
//
// Missing cells are None.
func TableToStarlark(ds core.Dataset) (starlark.Value, error) {
	columns := ds.Columns()

	colValues := make(map[string]*starlark.List, len(columns))
	for _, name := range columns {
		values, _ := ds.Column(name)
		list := make([]starlark.Value, len(values))
		for i, v := range values {
			list[i] = cellToStarlark(v)
		}
		colValues[name] = starlark.NewList(list)
	}

	rows := make([]starlark.Value, ds.Len())
	for i := range rows {
		dict := starlark.NewDict(len(columns))
		for _, name := range columns {
			if err := dict.SetKey(starlark.String(name), colValues[name].Index(i)); err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
		}
		rows[i] = dict
	}

	names := make([]starlark.Value, len(columns))
	for i, name := range columns {
		names[i] = starlark.String(name)
	}

	column := starlark.NewBuiltin("column", func(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var name string
		if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &name); err != nil {
			return nil, err
		}
		if list, ok := colValues[name]; ok {
			return list, nil
		}
		return starlark.None, nil
	})

	table := starlarkstruct.FromStringDict(starlark.String("table"), starlark.StringDict{
		"columns": starlark.NewList(names),
		"len":     starlark.MakeInt(ds.Len()),
		"rows":    starlark.NewList(rows),
		"column":  column,
	})
	table.Freeze()
	return table, nil
}

// cellToStarlark converts a dataset cell. Values of driver-specific types
// are passed as their string form.
func cellToStarlark(v any) starlark.Value {
	if core.IsMissing(v) {
		return starlark.None
	}
	sv, err := GoToStarlark(v)
	if err != nil {
		return starlark.String(core.KeyString(v))
	}
	return sv
}
