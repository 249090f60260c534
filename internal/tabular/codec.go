package tabular

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Encoded is the structured persisted form of a table: one record per row
// keyed by column name, plus the column order and the row index.
type Encoded struct {
	Records []map[string]any `json:"records"`
	Columns []string         `json:"columns"`
	Index   []any            `json:"index"`
}

// Value returns e as a plain document value suitable for the store.
func (e *Encoded) Value() map[string]any {
	records := make([]any, len(e.Records))
	for i, r := range e.Records {
		records[i] = r
	}
	columns := make([]any, len(e.Columns))
	for i, c := range e.Columns {
		columns[i] = c
	}
	index := make([]any, len(e.Index))
	copy(index, e.Index)
	return map[string]any{
		"records": records,
		"columns": columns,
		"index":   index,
	}
}

// Encode converts t into its persisted form. Every cell is normalized, so
// missing values and non-finite floats are stored as null.
func Encode(t *Table) (*Encoded, error) {
	if err := t.validate(); err != nil {
		return nil, err
	}

	names := t.ColumnNames()
	enc := &Encoded{
		Records: make([]map[string]any, len(t.Rows)),
		Columns: names,
		Index:   make([]any, len(t.Rows)),
	}
	for i, row := range t.Rows {
		rec := make(map[string]any, len(names))
		for j, name := range names {
			v, err := Normalize(row[j])
			if err != nil {
				return nil, wrapPath(err, fmt.Sprintf("row %d column %q", i, name))
			}
			rec[name] = v
		}
		enc.Records[i] = rec

		label := any(int64(i))
		if t.Index != nil {
			v, err := Normalize(t.Index[i])
			if err != nil {
				return nil, wrapPath(err, fmt.Sprintf("index %d", i))
			}
			label = v
		}
		enc.Index[i] = label
	}
	return enc, nil
}

// SerializedSize is the byte length of e's JSON serialization, which is
// what the dataset size gate measures.
func SerializedSize(e *Encoded) (int, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return 0, codecErr("encode", "", err, "serialize dataset")
	}
	return len(b), nil
}

// EncodedFromValue reads a structured table back from a stored document
// value.
func EncodedFromValue(v any) (*Encoded, error) {
	switch x := v.(type) {
	case *Encoded:
		return x, nil
	case Encoded:
		return &x, nil
	case map[string]any:
		return encodedFromMap(x)
	default:
		return nil, codecErr("decode", "", ErrNotTabular, "unexpected %T", v)
	}
}

func encodedFromMap(m map[string]any) (*Encoded, error) {
	rawRecords, ok := m["records"]
	if !ok {
		return nil, codecErr("decode", "records", ErrNotTabular, "missing records")
	}

	enc := &Encoded{}
	switch recs := rawRecords.(type) {
	case []any:
		enc.Records = make([]map[string]any, len(recs))
		for i, r := range recs {
			rec, ok := r.(map[string]any)
			if !ok && r != nil {
				return nil, codecErr("decode", fmt.Sprintf("records[%d]", i), ErrNotTabular, "record is %T", r)
			}
			enc.Records[i] = rec
		}
	case []map[string]any:
		enc.Records = recs
	case nil:
	default:
		return nil, codecErr("decode", "records", ErrNotTabular, "records is %T", rawRecords)
	}

	switch cols := m["columns"].(type) {
	case []any:
		enc.Columns = make([]string, len(cols))
		for i, c := range cols {
			s, ok := c.(string)
			if !ok {
				s = fmt.Sprint(c)
			}
			enc.Columns[i] = s
		}
	case []string:
		enc.Columns = cols
	}

	if idx, ok := m["index"].([]any); ok {
		enc.Index = idx
	}
	return enc, nil
}

// Decode rebuilds a table from any form it may have been stored in: an
// *Encoded, a structured document value, or a legacy JSON string holding
// either an array of records or a split {columns, index, data} object.
func Decode(v any) (*Table, error) {
	switch x := v.(type) {
	case nil:
		return nil, codecErr("decode", "", ErrNotTabular, "no dataset")
	case *Encoded:
		return decodeEncoded(x)
	case Encoded:
		return decodeEncoded(&x)
	case map[string]any:
		if _, ok := x["records"]; ok {
			enc, err := encodedFromMap(x)
			if err != nil {
				return nil, err
			}
			return decodeEncoded(enc)
		}
		if _, ok := x["data"]; ok {
			return decodeSplit(x)
		}
		return nil, codecErr("decode", "", ErrNotTabular, "document has neither records nor data")
	case string:
		return DecodeLegacy([]byte(x))
	case []byte:
		return DecodeLegacy(x)
	default:
		return nil, codecErr("decode", "", ErrNotTabular, "unexpected %T", v)
	}
}

func decodeEncoded(enc *Encoded) (*Table, error) {
	columns := enc.Columns
	if len(columns) == 0 {
		columns = recordKeys(enc.Records)
	}

	rows := make([][]any, len(enc.Records))
	for i, rec := range enc.Records {
		row := make([]any, len(columns))
		for j, name := range columns {
			v, err := Normalize(rec[name])
			if err != nil {
				return nil, wrapPath(err, fmt.Sprintf("records[%d].%s", i, name))
			}
			row[j] = v
		}
		rows[i] = row
	}

	index := defaultIndex(len(rows))
	if len(enc.Index) == len(rows) {
		for i, label := range enc.Index {
			v, err := Normalize(label)
			if err != nil {
				return nil, wrapPath(err, fmt.Sprintf("index[%d]", i))
			}
			index[i] = v
		}
	}
	return typed(columns, index, rows), nil
}

// DecodeLegacy parses the older single-string dataset encoding.
func DecodeLegacy(raw []byte) (*Table, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, codecErr("decode", "", ErrNotTabular, "empty legacy dataset")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var parsed any
	if err := dec.Decode(&parsed); err != nil {
		return nil, codecErr("decode", "", err, "legacy dataset is not valid JSON")
	}

	switch x := parsed.(type) {
	case []any:
		enc := &Encoded{Records: make([]map[string]any, len(x))}
		for i, r := range x {
			rec, ok := r.(map[string]any)
			if !ok {
				return nil, codecErr("decode", fmt.Sprintf("[%d]", i), ErrNotTabular, "record is %T", r)
			}
			enc.Records[i] = rec
		}
		enc.Columns = firstRecordKeyOrder(raw)
		if len(enc.Columns) == 0 {
			enc.Columns = recordKeys(enc.Records)
		}
		return decodeEncoded(enc)
	case map[string]any:
		return Decode(x)
	default:
		return nil, codecErr("decode", "", ErrNotTabular, "legacy dataset is %T", parsed)
	}
}

func decodeSplit(m map[string]any) (*Table, error) {
	data, ok := m["data"].([]any)
	if !ok {
		return nil, codecErr("decode", "data", ErrNotTabular, "data is %T", m["data"])
	}

	var columns []string
	if cols, ok := m["columns"].([]any); ok {
		for _, c := range cols {
			s, ok := c.(string)
			if !ok {
				s = fmt.Sprint(c)
			}
			columns = append(columns, s)
		}
	}

	rows := make([][]any, len(data))
	for i, r := range data {
		cells, ok := r.([]any)
		if !ok {
			return nil, codecErr("decode", fmt.Sprintf("data[%d]", i), ErrNotTabular, "row is %T", r)
		}
		if columns == nil {
			for j := range cells {
				columns = append(columns, strconv.Itoa(j))
			}
		}
		if len(cells) != len(columns) {
			return nil, codecErr("decode", fmt.Sprintf("data[%d]", i), ErrNotTabular,
				"row has %d values, want %d", len(cells), len(columns))
		}
		row := make([]any, len(cells))
		for j, c := range cells {
			v, err := Normalize(c)
			if err != nil {
				return nil, wrapPath(err, fmt.Sprintf("data[%d][%d]", i, j))
			}
			row[j] = v
		}
		rows[i] = row
	}

	index := defaultIndex(len(rows))
	if idx, ok := m["index"].([]any); ok && len(idx) == len(rows) {
		for i, label := range idx {
			v, err := Normalize(label)
			if err != nil {
				return nil, wrapPath(err, fmt.Sprintf("index[%d]", i))
			}
			index[i] = v
		}
	}
	return typed(columns, index, rows), nil
}

// typed infers column types from normalized rows and widens integer cells
// in float columns.
func typed(columns []string, index []any, rows [][]any) *Table {
	t := &Table{Columns: make([]Column, len(columns)), Index: index, Rows: rows}
	for j, name := range columns {
		typ := inferType(t.columnValues(j, false))
		t.Columns[j] = Column{Name: name, Type: typ}
		if typ != TypeFloat64 {
			continue
		}
		for _, row := range rows {
			if i, ok := row[j].(int64); ok {
				row[j] = float64(i)
			}
		}
	}
	return t
}

func recordKeys(records []map[string]any) []string {
	set := make(map[string]struct{})
	for _, rec := range records {
		for k := range rec {
			set[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// firstRecordKeyOrder returns the keys of the first object in a JSON array
// in document order. Go maps drop that order, and legacy payloads carry no
// separate column list.
func firstRecordKeyOrder(raw []byte) []string {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('[') {
		return nil
	}
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil
		}
		key, ok := tok.(string)
		if !ok {
			return nil
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil
		}
		keys = append(keys, key)
	}
	return keys
}

func wrapPath(err error, path string) error {
	if ce, ok := err.(*CodecError); ok {
		out := *ce
		out.Path = path
		return &out
	}
	return codecErr("decode", path, err, "invalid value")
}
