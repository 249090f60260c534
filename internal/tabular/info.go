package tabular

import (
	"bytes"
	"encoding/json"
	"time"
)

// Summary holds the headline counts shown next to an uploaded dataset.
type Summary struct {
	TotalRows          int `json:"total_rows"`
	TotalColumns       int `json:"total_columns"`
	NumericColumns     int `json:"numeric_columns"`
	CategoricalColumns int `json:"categorical_columns"`
	MissingValues      int `json:"missing_values"`
	MemoryUsage        int `json:"memory_usage"`
}

// Info is the metadata persisted with every dataset upload. It is kept even
// when the dataset itself is too large to store.
type Info struct {
	Filename    string            `json:"filename"`
	Columns     []string          `json:"columns"`
	DTypes      map[string]string `json:"dtypes"`
	Shape       [2]int            `json:"shape"`
	UploadedAt  string            `json:"uploaded_at"`
	DataSummary Summary           `json:"data_summary"`
}

func (i Info) Rows() int { return i.Shape[0] }
func (i Info) Cols() int { return i.Shape[1] }

// BuildInfo describes t for storage alongside the upload.
func BuildInfo(t *Table, filename string, uploadedAt time.Time) Info {
	info := Info{
		Filename:   filename,
		Columns:    t.ColumnNames(),
		DTypes:     make(map[string]string, len(t.Columns)),
		Shape:      [2]int{t.NumRows(), t.NumCols()},
		UploadedAt: uploadedAt.UTC().Format(time.RFC3339),
	}

	sum := Summary{TotalRows: t.NumRows(), TotalColumns: t.NumCols()}
	for j, col := range t.Columns {
		info.DTypes[col.Name] = string(col.Type)
		if col.Type.Numeric() {
			sum.NumericColumns++
		} else {
			sum.CategoricalColumns++
		}
		for _, row := range t.Rows {
			if row[j] == nil {
				sum.MissingValues++
			}
		}
	}
	sum.MemoryUsage = estimateMemory(t)
	info.DataSummary = sum
	return info
}

// Value returns i as a plain document value.
func (i Info) Value() map[string]any {
	out, err := toDocument(i)
	if err != nil {
		// Info holds only strings, ints and string maps.
		panic(err)
	}
	return out
}

// InfoFromValue reads dataset metadata back from a stored document value.
func InfoFromValue(v any) (Info, error) {
	switch x := v.(type) {
	case Info:
		return x, nil
	case *Info:
		if x == nil {
			return Info{}, codecErr("info", "", ErrNotTabular, "nil info")
		}
		return *x, nil
	case nil:
		return Info{}, codecErr("info", "", ErrNotTabular, "no upload info")
	}

	b, err := json.Marshal(v)
	if err != nil {
		return Info{}, codecErr("info", "", err, "marshal upload info")
	}
	var info Info
	if err := json.Unmarshal(b, &info); err != nil {
		return Info{}, codecErr("info", "", err, "upload info has unexpected shape")
	}
	return info, nil
}

func toDocument(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return NormalizeDocument(raw)
}

// estimateMemory approximates the in-memory footprint of t in bytes.
func estimateMemory(t *Table) int {
	total := 8 * len(t.Rows)
	for _, row := range t.Rows {
		for _, v := range row {
			switch x := v.(type) {
			case string:
				total += 16 + len(x)
			case nil, int64, float64, bool:
				total += 8
			default:
				if b, err := json.Marshal(x); err == nil {
					total += 16 + len(b)
				} else {
					total += 16
				}
			}
		}
	}
	return total
}
