// Package domain contains core domain types for the datachat application.
package domain

import (
	"encoding/json"
	"reflect"
)

// IDColumn is the reserved column holding the text identifier of each row.
const IDColumn = "_id"

// Row maps a column name to its value.
type Row map[string]any

// Dataset is an immutable row/column materialization of a collection.
// Every row carries every column; missing fields are nil.
type Dataset struct {
	columns []string
	rows    []Row
}

// NewDataset builds a dataset from an ordered column list and rows.
// Rows are copied and padded so each one holds every column.
func NewDataset(columns []string, rows []Row) *Dataset {
	cols := make([]string, len(columns))
	copy(cols, columns)

	out := make([]Row, len(rows))
	for i, r := range rows {
		row := make(Row, len(cols))
		for _, c := range cols {
			row[c] = r[c]
		}
		out[i] = row
	}
	return &Dataset{columns: cols, rows: out}
}

// Columns returns the ordered column names.
func (d *Dataset) Columns() []string {
	if d == nil {
		return nil
	}
	cols := make([]string, len(d.columns))
	copy(cols, d.columns)
	return cols
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.rows)
}

// Empty reports whether the dataset has no rows.
func (d *Dataset) Empty() bool {
	return d.Len() == 0
}

// Row returns a copy of the i-th row.
func (d *Dataset) Row(i int) Row {
	src := d.rows[i]
	row := make(Row, len(src))
	for k, v := range src {
		row[k] = v
	}
	return row
}

// Rows returns copies of all rows in order.
func (d *Dataset) Rows() []Row {
	out := make([]Row, d.Len())
	for i := range out {
		out[i] = d.Row(i)
	}
	return out
}

// Values returns the i-th row as a slice ordered like Columns.
func (d *Dataset) Values(i int) []any {
	vals := make([]any, len(d.columns))
	for j, c := range d.columns {
		vals[j] = d.rows[i][c]
	}
	return vals
}

// Head returns a dataset holding at most the first n rows.
func (d *Dataset) Head(n int) *Dataset {
	if d == nil {
		return NewDataset(nil, nil)
	}
	if n < 0 {
		n = 0
	}
	if n > len(d.rows) {
		n = len(d.rows)
	}
	return &Dataset{columns: d.columns, rows: d.rows[:n]}
}

// Column returns the values of a single column, or false if it does not exist.
func (d *Dataset) Column(name string) ([]any, bool) {
	if d == nil {
		return nil, false
	}
	found := false
	for _, c := range d.columns {
		if c == name {
			found = true
			break
		}
	}
	if !found {
		return nil, false
	}
	vals := make([]any, len(d.rows))
	for i, r := range d.rows {
		vals[i] = r[name]
	}
	return vals, true
}

// Equal reports whether both datasets hold the same columns and rows in the same order.
func (d *Dataset) Equal(other *Dataset) bool {
	if d == nil || other == nil {
		return d.Len() == other.Len() && len(d.Columns()) == len(other.Columns())
	}
	return reflect.DeepEqual(d.columns, other.columns) && reflect.DeepEqual(d.rows, other.rows)
}

type datasetJSON struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// MarshalJSON encodes the dataset as ordered columns plus row arrays.
func (d *Dataset) MarshalJSON() ([]byte, error) {
	out := datasetJSON{Columns: d.Columns(), Rows: make([][]any, d.Len())}
	if out.Columns == nil {
		out.Columns = []string{}
	}
	for i := range out.Rows {
		out.Rows[i] = d.Values(i)
	}
	return json.Marshal(out)
}
