// Package dataset defines the tabular value passed between pipeline stages:
// an ordered set of column names plus rows aligned to that order.
//
// Table is deliberately small and dependency-free. Stages never mutate a
// Table they received; each stage builds a fresh one (or a typed projection
// of one) and hands it downstream.
package dataset

import "fmt"

// Table is a schema-homogeneous collection of rows. Rows[i][j] holds the
// value of Columns[j] for row i. Cell values are scalars (string, int64,
// float64) or nil for an absent value.
type Table struct {
	Columns []string
	Rows    [][]any
}

// New returns an empty Table with the given column order.
func New(columns ...string) *Table {
	return &Table{Columns: columns}
}

// Col returns the index of name in Columns, or -1 when absent.
func (t *Table) Col(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether name is one of the Table's columns.
func (t *Table) HasColumn(name string) bool { return t.Col(name) >= 0 }

// Append adds a row. The row length must match the column count.
func (t *Table) Append(row []any) error {
	if len(row) != len(t.Columns) {
		return fmt.Errorf("row width %d does not match %d columns", len(row), len(t.Columns))
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// NumRows returns the row count.
func (t *Table) NumRows() int { return len(t.Rows) }

// Value returns the cell at row i, column name. It returns nil when the
// column is absent.
func (t *Table) Value(i int, name string) any {
	j := t.Col(name)
	if j < 0 || i < 0 || i >= len(t.Rows) {
		return nil
	}
	return t.Rows[i][j]
}

// SameColumns reports whether o declares exactly the same column set, in
// any order. Stage contracts use this to detect schema drift between files.
func (t *Table) SameColumns(o *Table) bool {
	if len(t.Columns) != len(o.Columns) {
		return false
	}
	set := make(map[string]struct{}, len(t.Columns))
	for _, c := range t.Columns {
		set[c] = struct{}{}
	}
	for _, c := range o.Columns {
		if _, ok := set[c]; !ok {
			return false
		}
	}
	return true
}
