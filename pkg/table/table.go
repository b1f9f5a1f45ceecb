// Package table provides a small in-memory table: an ordered column set and
// rows of nullable values. A column absent from a row, or holding nil, is null.
//
// Operations never mutate their receiver; they return a new *Table whose rows
// may share unmodified row maps with the source.
package table

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// ErrUnknownColumn is returned when an operation names a column the table lacks.
var ErrUnknownColumn = errors.New("unknown column")

// Row maps column names to values. Missing keys and nil values are null.
type Row map[string]any

// Table is an ordered column set plus rows.
type Table struct {
	columns []string
	index   map[string]int
	rows    []Row
}

// New returns an empty table with the given columns.
func New(columns ...string) *Table {
	t := &Table{index: make(map[string]int, len(columns))}
	for _, c := range columns {
		t.addColumn(c)
	}
	return t
}

// FromRows builds a table from rows. Keys not listed in columns are appended
// as extra columns in sorted order.
func FromRows(columns []string, rows []Row) *Table {
	t := New(columns...)
	for _, r := range rows {
		t.appendRow(r)
	}
	return t
}

func (t *Table) addColumn(name string) {
	if _, ok := t.index[name]; ok {
		return
	}
	t.index[name] = len(t.columns)
	t.columns = append(t.columns, name)
}

func (t *Table) appendRow(r Row) {
	var extra []string
	for k := range r {
		if _, ok := t.index[k]; !ok {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		t.addColumn(k)
	}
	t.rows = append(t.rows, r)
}

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// HasColumn reports whether name is part of the column set.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Row returns row i. The map must not be modified.
func (t *Table) Row(i int) Row {
	return t.rows[i]
}

// Rows returns the rows in order. The maps must not be modified.
func (t *Table) Rows() []Row {
	return append([]Row(nil), t.rows...)
}

// Value returns the value at row i, column col (nil when null).
func (t *Table) Value(i int, col string) any {
	return t.rows[i][col]
}

// Column returns every value of a column in row order.
func (t *Table) Column(name string) ([]any, error) {
	if !t.HasColumn(name) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, name)
	}
	out := make([]any, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[name]
	}
	return out, nil
}

// WithColumn returns a copy with an extra column holding fill in every row.
// An existing column is left untouched.
func (t *Table) WithColumn(name string, fill any) *Table {
	if t.HasColumn(name) {
		return t.clone(t.rows)
	}
	out := New(append(t.Columns(), name)...)
	for _, r := range t.rows {
		nr := copyRow(r)
		nr[name] = fill
		out.rows = append(out.rows, nr)
	}
	return out
}

// Select projects the table onto cols, in that order.
func (t *Table) Select(cols ...string) (*Table, error) {
	for _, c := range cols {
		if !t.HasColumn(c) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, c)
		}
	}
	out := New(cols...)
	for _, r := range t.rows {
		nr := make(Row, len(cols))
		for _, c := range cols {
			if v, ok := r[c]; ok {
				nr[c] = v
			}
		}
		out.rows = append(out.rows, nr)
	}
	return out, nil
}

// Filter keeps the rows for which keep returns true.
func (t *Table) Filter(keep func(Row) bool) *Table {
	var rows []Row
	for _, r := range t.rows {
		if keep(r) {
			rows = append(rows, r)
		}
	}
	return t.clone(rows)
}

// UniqueBy keeps the first row for each distinct combination of keys.
// Nulls compare equal to each other.
func (t *Table) UniqueBy(keys ...string) (*Table, error) {
	for _, k := range keys {
		if !t.HasColumn(k) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, k)
		}
	}
	seen := make(map[string]struct{}, len(t.rows))
	var rows []Row
	for _, r := range t.rows {
		k := rowKey(r, keys)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		rows = append(rows, r)
	}
	return t.clone(rows), nil
}

// SortStable orders rows by less, keeping input order among equal rows.
func (t *Table) SortStable(less func(a, b Row) bool) *Table {
	rows := append([]Row(nil), t.rows...)
	sort.SliceStable(rows, func(i, j int) bool { return less(rows[i], rows[j]) })
	return t.clone(rows)
}

// Head returns at most the first n rows.
func (t *Table) Head(n int) *Table {
	if n < 0 {
		n = 0
	}
	if n > len(t.rows) {
		n = len(t.rows)
	}
	return t.clone(t.rows[:n])
}

// LeftJoin appends right's columns to every row of t whose key matches.
// Rows without a match get nulls; a null key never matches. Right columns
// that clash with a left column are renamed with a "_right" suffix.
func (t *Table) LeftJoin(right *Table, key string) (*Table, error) {
	if !t.HasColumn(key) {
		return nil, fmt.Errorf("left %w: %s", ErrUnknownColumn, key)
	}
	if !right.HasColumn(key) {
		return nil, fmt.Errorf("right %w: %s", ErrUnknownColumn, key)
	}

	rename := make(map[string]string)
	columns := t.Columns()
	for _, c := range right.columns {
		if c == key {
			continue
		}
		name := c
		if t.HasColumn(c) {
			name = c + "_right"
		}
		rename[c] = name
		columns = append(columns, name)
	}

	matches := make(map[string][]Row)
	for _, r := range right.rows {
		if IsNull(r[key]) {
			continue
		}
		k := rowKey(r, []string{key})
		matches[k] = append(matches[k], r)
	}

	out := New(columns...)
	for _, l := range t.rows {
		var found []Row
		if !IsNull(l[key]) {
			found = matches[rowKey(l, []string{key})]
		}
		if len(found) == 0 {
			out.rows = append(out.rows, copyRow(l))
			continue
		}
		for _, r := range found {
			nr := copyRow(l)
			for from, to := range rename {
				if v, ok := r[from]; ok {
					nr[to] = v
				}
			}
			out.rows = append(out.rows, nr)
		}
	}
	return out, nil
}

// Concat stacks tables diagonally: the result has the union of all column
// sets (first-seen order) and rows lacking a column read as null.
func Concat(tables ...*Table) *Table {
	out := New()
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, c := range t.columns {
			out.addColumn(c)
		}
		out.rows = append(out.rows, t.rows...)
	}
	return out
}

// ParseDatetimes converts text values in cols from layout (read as UTC) into
// time.Time values in loc. Values that are already time.Time, and nulls, are
// left as they are, so applying it twice is harmless. Unparseable text
// becomes null; the number of such values is returned.
func (t *Table) ParseDatetimes(layout string, loc *time.Location, cols ...string) (*Table, int, error) {
	for _, c := range cols {
		if !t.HasColumn(c) {
			return nil, 0, fmt.Errorf("%w: %s", ErrUnknownColumn, c)
		}
	}

	var unparsed int
	rows := make([]Row, len(t.rows))
	for i, r := range t.rows {
		nr := copyRow(r)
		for _, c := range cols {
			s, ok := nr[c].(string)
			if !ok {
				continue
			}
			ts, err := time.ParseInLocation(layout, s, time.UTC)
			if err != nil {
				nr[c] = nil
				unparsed++
				continue
			}
			nr[c] = ts.In(loc)
		}
		rows[i] = nr
	}
	return t.clone(rows), unparsed, nil
}

// Decode copies the rows into out, a pointer to a slice of structs, using
// `table` struct tags. Nullable columns should map to pointer fields.
func (t *Table) Decode(out any) error {
	input := make([]map[string]any, len(t.rows))
	for i, r := range t.rows {
		input[i] = r
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "table",
		Result:     out,
		DecodeHook: mapstructure.StringToTimeHookFunc(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}
	if err := decoder.Decode(input); err != nil {
		return fmt.Errorf("decode rows: %w", err)
	}
	return nil
}

// IsNull reports whether v represents a null cell.
func IsNull(v any) bool {
	return v == nil
}

func (t *Table) clone(rows []Row) *Table {
	out := New(t.columns...)
	out.rows = append([]Row(nil), rows...)
	return out
}

func copyRow(r Row) Row {
	nr := make(Row, len(r)+4)
	for k, v := range r {
		nr[k] = v
	}
	return nr
}

func rowKey(r Row, keys []string) string {
	var b strings.Builder
	for _, k := range keys {
		v := r[k]
		if v == nil {
			b.WriteString("<null>")
		} else {
			fmt.Fprintf(&b, "%T=%v", v, v)
		}
		b.WriteByte(0x1f)
	}
	return b.String()
}
