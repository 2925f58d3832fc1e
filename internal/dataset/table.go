// Package dataset holds the column-oriented track table and the functions that
// build it from catalog payloads.
package dataset

import (
	"fmt"
	"slices"
)

// Column names shared by every merged batch.
const (
	TrackIDColumn    = "track_id"
	TrackNameColumn  = "track_name"
	ArtistNameColumn = "artist_name"
	ArtistIDColumn   = "artist_id"
)

// IdentityColumns are always text, even when a value looks numeric.
var IdentityColumns = []string{TrackIDColumn, TrackNameColumn, ArtistNameColumn, ArtistIDColumn}

// Table is an ordered set of equal-length columns. A nil cell is a null.
type Table struct {
	columns []string
	index   map[string]int
	data    [][]any
	rows    int
}

// NewTable returns an empty table with the given columns.
func NewTable(columns ...string) *Table {
	t := &Table{index: make(map[string]int)}
	for _, c := range columns {
		if _, ok := t.index[c]; ok {
			continue
		}
		t.index[c] = len(t.columns)
		t.columns = append(t.columns, c)
		t.data = append(t.data, nil)
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return t.rows
}

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	if t == nil {
		return nil
	}
	return slices.Clone(t.columns)
}

func (t *Table) HasColumn(name string) bool {
	if t == nil {
		return false
	}
	_, ok := t.index[name]
	return ok
}

// Column returns the named column. The returned slice must not be modified.
func (t *Table) Column(name string) ([]any, bool) {
	if t == nil {
		return nil, false
	}
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.data[i], true
}

// Value returns the cell at row i of the named column, or nil.
func (t *Table) Value(i int, name string) any {
	col, ok := t.Column(name)
	if !ok || i < 0 || i >= len(col) {
		return nil
	}
	return col[i]
}

// Row returns row i as a map keyed by column name.
func (t *Table) Row(i int) map[string]any {
	row := make(map[string]any, len(t.columns))
	for c, name := range t.columns {
		row[name] = t.data[c][i]
	}
	return row
}

// AddColumn appends a column. The first column added to an empty table sets
// the row count.
func (t *Table) AddColumn(name string, values []any) error {
	if _, ok := t.index[name]; ok {
		return fmt.Errorf("dataset: duplicate column %q", name)
	}
	if len(t.columns) > 0 && len(values) != t.rows {
		return fmt.Errorf("dataset: column %q has %d values, table has %d rows", name, len(values), t.rows)
	}
	t.rows = len(values)
	t.index[name] = len(t.columns)
	t.columns = append(t.columns, name)
	t.data = append(t.data, slices.Clone(values))
	return nil
}

// InsertColumn places a column at position pos.
func (t *Table) InsertColumn(pos int, name string, values []any) error {
	if err := t.AddColumn(name, values); err != nil {
		return err
	}
	last := len(t.columns) - 1
	if pos < 0 || pos >= last {
		return nil
	}
	col, vals := t.columns[last], t.data[last]
	copy(t.columns[pos+1:], t.columns[pos:last])
	copy(t.data[pos+1:], t.data[pos:last])
	t.columns[pos], t.data[pos] = col, vals
	for i, c := range t.columns {
		t.index[c] = i
	}
	return nil
}

// AppendRow adds one row. Columns missing from row are null; keys of row that
// are not yet columns become new columns, null-filled for earlier rows.
func (t *Table) AppendRow(row map[string]any) {
	for _, name := range sortedKeys(row) {
		if _, ok := t.index[name]; !ok {
			t.index[name] = len(t.columns)
			t.columns = append(t.columns, name)
			t.data = append(t.data, make([]any, t.rows))
		}
	}
	for c, name := range t.columns {
		t.data[c] = append(t.data[c], row[name])
	}
	t.rows++
}

// Rename changes a column name in place. Renaming a missing column is a no-op.
func (t *Table) Rename(from, to string) {
	i, ok := t.index[from]
	if !ok || from == to {
		return
	}
	delete(t.index, from)
	t.columns[i] = to
	t.index[to] = i
}

// Clone returns a deep copy of the table structure. Cell values are shared.
func (t *Table) Clone() *Table {
	c := NewTable()
	if t == nil {
		return c
	}
	for i, name := range t.columns {
		c.index[name] = i
		c.columns = append(c.columns, name)
		c.data = append(c.data, slices.Clone(t.data[i]))
	}
	c.rows = t.rows
	return c
}

// Concat appends the rows of next after the rows of base. The column set is
// the union of both, base's columns first. No row is sorted or removed.
func Concat(base, next *Table) *Table {
	if base == nil {
		return next.Clone()
	}
	out := base.Clone()
	if next == nil {
		return out
	}
	for _, name := range next.columns {
		if _, ok := out.index[name]; !ok {
			out.index[name] = len(out.columns)
			out.columns = append(out.columns, name)
			out.data = append(out.data, make([]any, out.rows))
		}
	}
	for c, name := range out.columns {
		if col, ok := next.Column(name); ok {
			out.data[c] = append(out.data[c], col...)
		} else {
			out.data[c] = append(out.data[c], make([]any, next.rows)...)
		}
	}
	out.rows += next.rows
	return out
}
