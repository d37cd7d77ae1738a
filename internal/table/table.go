// SPDX-License-Identifier: MIT

package table

import (
	"errors"
	"fmt"
)

var (
	// ErrColumnNotFound is returned when a named column does not exist.
	ErrColumnNotFound = errors.New("column not found")
	// ErrDuplicateColumn is returned when two columns would share a name.
	ErrDuplicateColumn = errors.New("duplicate column name")
	// ErrArity is returned when a row or name list does not match the column count.
	ErrArity = errors.New("column count mismatch")
)

// Column describes one column of a Table.
type Column struct {
	Name string
	Type Type
}

// Row is one record; Row[i] belongs to Table.Columns[i].
type Row []Value

// Table is a row-oriented table with a fixed, typed schema.
type Table struct {
	Columns []Column
	Rows    []Row
}

// New creates an empty table with the given schema.
func New(cols ...Column) (*Table, error) {
	seen := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		if _, dup := seen[c.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	out := make([]Column, len(cols))
	copy(out, cols)
	return &Table{Columns: out}, nil
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Index returns the position of the named column, or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// AppendRow adds a row after checking its arity.
func (t *Table) AppendRow(r Row) error {
	if len(r) != len(t.Columns) {
		return fmt.Errorf("%w: row has %d values, table has %d columns", ErrArity, len(r), len(t.Columns))
	}
	t.Rows = append(t.Rows, r)
	return nil
}

// Clone returns a deep copy. Values are immutable so copying the slices suffices.
func (t *Table) Clone() *Table {
	out := &Table{
		Columns: make([]Column, len(t.Columns)),
		Rows:    make([]Row, len(t.Rows)),
	}
	copy(out.Columns, t.Columns)
	for i, r := range t.Rows {
		nr := make(Row, len(r))
		copy(nr, r)
		out.Rows[i] = nr
	}
	return out
}

// Rename returns a copy with new column names. Names must be unique.
func (t *Table) Rename(names []string) (*Table, error) {
	if len(names) != len(t.Columns) {
		return nil, fmt.Errorf("%w: %d names for %d columns", ErrArity, len(names), len(t.Columns))
	}
	seen := make(map[string]string, len(names))
	for i, n := range names {
		if prev, dup := seen[n]; dup {
			return nil, fmt.Errorf("%w: %q and %q both map to %q", ErrDuplicateColumn, prev, t.Columns[i].Name, n)
		}
		seen[n] = t.Columns[i].Name
	}
	out := t.Clone()
	for i := range out.Columns {
		out.Columns[i].Name = names[i]
	}
	return out, nil
}

// SetColumn returns a copy in which the named column is replaced by (or, when
// absent, appended as) a column of type typ whose values are produced by fn.
// fn receives the existing value, or NULL for a new column.
func (t *Table) SetColumn(name string, typ Type, fn func(row int, old Value) Value) *Table {
	out := t.Clone()
	idx := out.Index(name)
	if idx < 0 {
		out.Columns = append(out.Columns, Column{Name: name, Type: typ})
		idx = len(out.Columns) - 1
		for i := range out.Rows {
			out.Rows[i] = append(out.Rows[i], Null())
		}
	} else {
		out.Columns[idx].Type = typ
	}
	for i := range out.Rows {
		out.Rows[i][idx] = fn(i, out.Rows[i][idx])
	}
	return out
}

// Column returns the values of the named column.
func (t *Table) Column(name string) ([]Value, error) {
	idx := t.Index(name)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	vals := make([]Value, len(t.Rows))
	for i, r := range t.Rows {
		vals[i] = r[idx]
	}
	return vals, nil
}

// ColumnsOfType returns the indexes of all columns of the given type.
func (t *Table) ColumnsOfType(typ Type) []int {
	var idx []int
	for i, c := range t.Columns {
		if c.Type == typ {
			idx = append(idx, i)
		}
	}
	return idx
}
