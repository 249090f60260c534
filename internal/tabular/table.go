package tabular

import "fmt"

// ColumnType is the element type of a column, named after the dtype
// strings stored in dataset metadata.
type ColumnType string

const (
	TypeInt64   ColumnType = "int64"
	TypeFloat64 ColumnType = "float64"
	TypeBool    ColumnType = "bool"
	TypeString  ColumnType = "string"
	TypeObject  ColumnType = "object"
)

// Numeric reports whether values of the column are numbers.
func (t ColumnType) Numeric() bool {
	return t == TypeInt64 || t == TypeFloat64
}

type Column struct {
	Name string
	Type ColumnType
}

// Table is an ordered set of named, typed columns with a row index.
// Rows are stored row-major; a nil cell is a missing value.
type Table struct {
	Columns []Column
	Index   []any
	Rows    [][]any
}

// NewTable builds a table from header names and row-major data, inferring
// column types and assigning a 0..n-1 index.
func NewTable(names []string, rows [][]any) (*Table, error) {
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, dup := seen[name]; dup {
			return nil, codecErr("encode", name, ErrNotTabular, "duplicate column name")
		}
		seen[name] = struct{}{}
	}
	for i, row := range rows {
		if len(row) != len(names) {
			return nil, codecErr("encode", fmt.Sprintf("row %d", i), ErrNotTabular,
				"row has %d values, want %d", len(row), len(names))
		}
	}

	t := &Table{Columns: make([]Column, len(names)), Index: defaultIndex(len(rows)), Rows: rows}
	for j, name := range names {
		t.Columns[j] = Column{Name: name, Type: inferType(t.columnValues(j, true))}
	}
	return t, nil
}

func (t *Table) NumRows() int { return len(t.Rows) }
func (t *Table) NumCols() int { return len(t.Columns) }

func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Values returns the raw cells of the named column.
func (t *Table) Values(name string) ([]any, bool) {
	j := t.ColumnIndex(name)
	if j < 0 {
		return nil, false
	}
	return t.columnValues(j, false), true
}

func (t *Table) columnValues(j int, normalized bool) []any {
	out := make([]any, len(t.Rows))
	for i, row := range t.Rows {
		if j >= len(row) {
			continue
		}
		v := row[j]
		if normalized {
			if nv, err := Normalize(v); err == nil {
				v = nv
			}
		}
		out[i] = v
	}
	return out
}

func (t *Table) validate() error {
	if t == nil {
		return codecErr("encode", "", ErrNotTabular, "nil table")
	}
	seen := make(map[string]struct{}, len(t.Columns))
	for _, c := range t.Columns {
		if _, dup := seen[c.Name]; dup {
			return codecErr("encode", c.Name, ErrNotTabular, "duplicate column name")
		}
		seen[c.Name] = struct{}{}
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return codecErr("encode", fmt.Sprintf("row %d", i), ErrNotTabular,
				"row has %d values, want %d", len(row), len(t.Columns))
		}
	}
	if t.Index != nil && len(t.Index) != len(t.Rows) {
		return codecErr("encode", "index", ErrNotTabular,
			"index has %d labels, want %d", len(t.Index), len(t.Rows))
	}
	return nil
}

func defaultIndex(n int) []any {
	idx := make([]any, n)
	for i := range idx {
		idx[i] = int64(i)
	}
	return idx
}

// inferType classifies already-normalized values. Missing values do not
// vote; a mix of integers and floats widens to float64.
func inferType(values []any) ColumnType {
	var ints, floats, bools, strs, other int
	for _, v := range values {
		switch v.(type) {
		case nil:
		case int64:
			ints++
		case float64:
			floats++
		case bool:
			bools++
		case string:
			strs++
		default:
			other++
		}
	}
	switch {
	case other > 0:
		return TypeObject
	case ints+floats+bools+strs == 0:
		return TypeFloat64
	case bools == 0 && strs == 0 && floats == 0:
		return TypeInt64
	case bools == 0 && strs == 0:
		return TypeFloat64
	case ints == 0 && floats == 0 && strs == 0:
		return TypeBool
	case ints == 0 && floats == 0 && bools == 0:
		return TypeString
	default:
		return TypeObject
	}
}
