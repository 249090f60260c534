package tabular

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_Scalars(t *testing.T) {
	type celsius float32

	cases := []struct {
		name string
		in   any
		want any
	}{
		{"int", 7, int64(7)},
		{"int8", int8(-3), int64(-3)},
		{"uint32", uint32(9), int64(9)},
		{"huge uint", uint64(math.MaxUint64), float64(math.MaxUint64)},
		{"float32", float32(0.1), 0.1},
		{"named float32", celsius(21.5), 21.5},
		{"nan", math.NaN(), nil},
		{"inf", math.Inf(-1), nil},
		{"json number int", json.Number("12"), int64(12)},
		{"json number float", json.Number("1.25"), 1.25},
		{"bytes", []byte("abc"), "abc"},
		{"time", time.Date(2024, 3, 1, 10, 0, 0, 0, time.FixedZone("x", 3600)), "2024-03-01T09:00:00Z"},
		{"zero time", time.Time{}, nil},
		{"null float", sql.NullFloat64{}, nil},
		{"valid float", sql.NullFloat64{Float64: 3.5, Valid: true}, 3.5},
		{"complex", complex(1, 2), "(1+2i)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Normalize(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalize_Containers(t *testing.T) {
	type owner struct {
		Name    string `json:"name"`
		Skip    string `json:"-"`
		private int
		Score   float32
	}
	n := 5

	got, err := Normalize(map[string]any{
		"keys":  map[int]string{1: "a"},
		"list":  []int{1, 2},
		"arr":   [2]bool{true, false},
		"ptr":   &n,
		"nilp":  (*int)(nil),
		"owner": owner{Name: "ana", Skip: "x", private: 1, Score: 2.5},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"keys":  map[string]any{"1": "a"},
		"list":  []any{int64(1), int64(2)},
		"arr":   []any{true, false},
		"ptr":   int64(5),
		"nilp":  nil,
		"owner": map[string]any{"name": "ana", "Score": 2.5},
	}, got)
}

func TestNormalize_Unrepresentable(t *testing.T) {
	self := map[string]any{}
	self["self"] = self

	for name, in := range map[string]any{
		"cycle": self,
		"chan":  make(chan int),
		"func":  func() {},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Normalize(map[string]any{"v": in})
			require.Error(t, err)
			var ce *CodecError
			require.True(t, errors.As(err, &ce))
			assert.ErrorIs(t, err, ErrUnrepresentable)
		})
	}
}

func TestNormalize_SharedReferenceIsNotACycle(t *testing.T) {
	shared := []any{int64(1)}
	got, err := Normalize(map[string]any{"a": shared, "b": shared})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": []any{int64(1)}, "b": []any{int64(1)}}, got)
}

func sampleTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := NewTable([]string{"x", "y"}, [][]any{
		{1, 2.5},
		{2, nil},
		{3, 4.0},
	})
	require.NoError(t, err)
	return tbl
}

func TestNewTable_InfersTypes(t *testing.T) {
	tbl := sampleTable(t)
	assert.Equal(t, []Column{{Name: "x", Type: TypeInt64}, {Name: "y", Type: TypeFloat64}}, tbl.Columns)
	assert.Equal(t, []any{int64(0), int64(1), int64(2)}, tbl.Index)

	_, err := NewTable([]string{"a", "a"}, nil)
	assert.Error(t, err)
	_, err = NewTable([]string{"a"}, [][]any{{1, 2}})
	assert.Error(t, err)
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	tbl := sampleTable(t)

	enc, err := Encode(tbl)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, enc.Columns)
	assert.Len(t, enc.Records, 3)
	assert.Nil(t, enc.Records[1]["y"])
	assert.Contains(t, enc.Records[1], "y")

	got, err := Decode(enc.Value())
	require.NoError(t, err)
	assert.Equal(t, tbl.ColumnNames(), got.ColumnNames())
	assert.Equal(t, [][]any{
		{int64(1), 2.5},
		{int64(2), nil},
		{int64(3), 4.0},
	}, got.Rows)
	assert.Equal(t, tbl.Index, got.Index)
}

func TestEncode_DuplicateColumns(t *testing.T) {
	tbl := &Table{
		Columns: []Column{{Name: "a", Type: TypeInt64}, {Name: "a", Type: TypeInt64}},
		Rows:    [][]any{{int64(1), int64(2)}},
	}

	_, err := Encode(tbl)
	var ce *CodecError
	require.True(t, errors.As(err, &ce), "got %v", err)
	assert.ErrorIs(t, err, ErrNotTabular)
}

func TestDecode_AfterJSONStore(t *testing.T) {
	enc, err := Encode(sampleTable(t))
	require.NoError(t, err)

	b, err := json.Marshal(enc.Value())
	require.NoError(t, err)
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var stored map[string]any
	require.NoError(t, dec.Decode(&stored))

	got, err := Decode(stored)
	require.NoError(t, err)
	assert.Equal(t, TypeFloat64, got.Columns[1].Type)
	assert.Equal(t, 4.0, got.Rows[2][1])
	assert.Equal(t, int64(3), got.Rows[2][0])
}

func TestEncode_NonFiniteBecomesNull(t *testing.T) {
	tbl, err := NewTable([]string{"v"}, [][]any{{math.NaN()}, {1.5}})
	require.NoError(t, err)

	enc, err := Encode(tbl)
	require.NoError(t, err)
	assert.Nil(t, enc.Records[0]["v"])

	size, err := SerializedSize(enc)
	require.NoError(t, err)
	b, _ := json.Marshal(enc)
	assert.Equal(t, len(b), size)
}

func TestDecodeLegacy_Records(t *testing.T) {
	got, err := Decode(`[{"b":1,"a":"x"},{"b":null,"a":"y"}]`)
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "a"}, got.ColumnNames())
	assert.Equal(t, [][]any{{int64(1), "x"}, {nil, "y"}}, got.Rows)
	assert.Equal(t, TypeInt64, got.Columns[0].Type)
	assert.Equal(t, TypeString, got.Columns[1].Type)
}

func TestDecodeLegacy_Split(t *testing.T) {
	got, err := Decode([]byte(`{"columns":["a"],"index":[5,6],"data":[[1],[2.5]]}`))
	require.NoError(t, err)

	assert.Equal(t, []any{int64(5), int64(6)}, got.Index)
	assert.Equal(t, [][]any{{1.0}, {2.5}}, got.Rows)
}

func TestDecode_Invalid(t *testing.T) {
	for name, in := range map[string]any{
		"nil":        nil,
		"bad json":   "{not json",
		"scalar":     "42",
		"no records": map[string]any{"foo": 1},
		"wrong type": 3.14,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(in)
			var ce *CodecError
			assert.True(t, errors.As(err, &ce), "got %v", err)
		})
	}
}

func TestBuildInfo(t *testing.T) {
	at := time.Date(2024, 5, 2, 8, 30, 0, 0, time.UTC)
	info := BuildInfo(sampleTable(t), "baseline.csv", at)

	assert.Equal(t, "baseline.csv", info.Filename)
	assert.Equal(t, [2]int{3, 2}, info.Shape)
	assert.Equal(t, map[string]string{"x": "int64", "y": "float64"}, info.DTypes)
	assert.Equal(t, "2024-05-02T08:30:00Z", info.UploadedAt)
	assert.Equal(t, 1, info.DataSummary.MissingValues)
	assert.Equal(t, 2, info.DataSummary.NumericColumns)
	assert.Equal(t, 0, info.DataSummary.CategoricalColumns)
	assert.Positive(t, info.DataSummary.MemoryUsage)

	back, err := InfoFromValue(info.Value())
	require.NoError(t, err)
	assert.Equal(t, info, back)

	_, err = InfoFromValue("nope")
	assert.Error(t, err)
}

func TestParseCSV(t *testing.T) {
	in := "\ufeffa, b ,c,flag\n1,2.5,hello,true\n2,,world,FALSE\n3,NA,,true\n"
	tbl, err := ParseCSV(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, []Column{
		{Name: "a", Type: TypeInt64},
		{Name: "b", Type: TypeFloat64},
		{Name: "c", Type: TypeString},
		{Name: "flag", Type: TypeBool},
	}, tbl.Columns)
	assert.Equal(t, [][]any{
		{int64(1), 2.5, "hello", true},
		{int64(2), nil, "world", false},
		{int64(3), nil, nil, true},
	}, tbl.Rows)
}

func TestParseCSV_Errors(t *testing.T) {
	_, err := ParseCSV(strings.NewReader(""))
	assert.Error(t, err)

	_, err = ParseCSV(strings.NewReader("a,b\n1,2,3\n"))
	assert.Error(t, err)

	_, err = ParseCSV(strings.NewReader("a,a\n1,2\n"))
	assert.Error(t, err)
}
