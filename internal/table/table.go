// Package table provides the in-memory tabular model the transformation
// engine operates on: ordered named columns over rows of typed cell values.
package table

import (
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Kind identifies the type of a cell value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindDate
)

// Value is a single cell. Null values propagate through transformations and
// are never coerced to zero.
type Value struct {
	kind Kind
	str  string
	num  decimal.Decimal
	date civil.Date
}

// Null returns the absent value.
func Null() Value {
	return Value{kind: KindNull}
}

// String returns a string cell.
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// Number returns a numeric cell.
func Number(d decimal.Decimal) Value {
	return Value{kind: KindNumber, num: d}
}

// Int returns a numeric cell holding an integer.
func Int(n int64) Value {
	return Number(decimal.NewFromInt(n))
}

// Date returns a calendar-date cell.
func Date(d civil.Date) Value {
	return Value{kind: KindDate, date: d}
}

// Kind reports the value's type.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is absent.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the string content. Only meaningful for KindString.
func (v Value) Str() string { return v.str }

// Decimal returns the numeric content and whether the value is a number.
func (v Value) Decimal() (decimal.Decimal, bool) {
	return v.num, v.kind == KindNumber
}

// CivilDate returns the date content and whether the value is a date.
func (v Value) CivilDate() (civil.Date, bool) {
	return v.date, v.kind == KindDate
}

// Equal reports whether two values have the same kind and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num.Equal(o.num)
	case KindDate:
		return v.date == o.date
	default:
		return true
	}
}

// String renders the cell for display and for building dedup/join keys.
// Null renders as the empty string.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num.String()
	case KindDate:
		return v.date.String()
	default:
		return ""
	}
}

// Row maps column names to cell values. Columns absent from the row read as Null.
type Row map[string]Value

// Get returns the cell for a column, Null if the row has no entry for it.
func (r Row) Get(col string) Value {
	if v, ok := r[col]; ok {
		return v
	}
	return Null()
}

// Clone returns an independent copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Table is an ordered set of named columns over rows of cells.
type Table struct {
	Columns []string
	Rows    []Row
}

// New creates an empty table with the given column order.
func New(columns ...string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

// Append adds a row.
func (t *Table) Append(r Row) {
	t.Rows = append(t.Rows, r)
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// HasColumn reports whether the table has a column with the given name.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// RenameColumn renames a column, preserving its position. Row cells move to
// the new key. It is a no-op when the old name does not exist.
func (t *Table) RenameColumn(oldName, newName string) {
	if oldName == newName {
		return
	}
	for i, c := range t.Columns {
		if c == oldName {
			t.Columns[i] = newName
			for _, row := range t.Rows {
				if v, ok := row[oldName]; ok {
					row[newName] = v
					delete(row, oldName)
				}
			}
			return
		}
	}
}

// TrimColumnNames strips surrounding whitespace from every column name and
// returns how many names changed. The operation is idempotent.
func (t *Table) TrimColumnNames() int {
	changed := 0
	for _, c := range t.Columns {
		trimmed := strings.TrimSpace(c)
		if trimmed != c {
			t.RenameColumn(c, trimmed)
			changed++
		}
	}
	return changed
}

// Select projects the table onto the given columns, keeping only those that
// exist. Rows share cell values with the source but are independent maps.
func (t *Table) Select(columns ...string) *Table {
	var kept []string
	for _, c := range columns {
		if t.HasColumn(c) {
			kept = append(kept, c)
		}
	}
	out := New(kept...)
	for _, row := range t.Rows {
		nr := make(Row, len(kept))
		for _, c := range kept {
			nr[c] = row.Get(c)
		}
		out.Append(nr)
	}
	return out
}

// Distinct returns a table with duplicate rows removed, keeping the first
// occurrence and preserving row order.
func (t *Table) Distinct() *Table {
	out := New(t.Columns...)
	seen := make(map[string]struct{}, len(t.Rows))
	for _, row := range t.Rows {
		key := Key(row, t.Columns)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out.Append(row.Clone())
	}
	return out
}

// Key builds a composite string key from the row's values in the given
// columns. Used for dedup and join lookups.
func Key(r Row, columns []string) string {
	parts := make([]string, len(columns))
	for i, c := range columns {
		v := r.Get(c)
		// Prefix with the kind so String("") and Null produce distinct keys.
		parts[i] = string(rune('0'+int(v.Kind()))) + v.String()
	}
	return strings.Join(parts, "\x1f")
}

// Intersect returns the column names present in both slices, in the order of
// the first.
func Intersect(a, b []string) []string {
	inB := make(map[string]struct{}, len(b))
	for _, c := range b {
		inB[c] = struct{}{}
	}
	var out []string
	for _, c := range a {
		if _, ok := inB[c]; ok {
			out = append(out, c)
		}
	}
	return out
}
