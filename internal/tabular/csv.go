package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var missingTokens = map[string]struct{}{
	"": {}, "na": {}, "n/a": {}, "nan": {}, "null": {}, "none": {}, "#n/a": {},
}

// ParseCSV reads a header row followed by data rows. Column types are
// inferred per column: int64 if every present value parses as an integer,
// then float64, then bool, else string. Missing-value tokens become nil.
func ParseCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, codecErr("csv", "", ErrNotTabular, "empty file")
	}
	if err != nil {
		return nil, codecErr("csv", "header", err, "read header")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var raw [][]string
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, codecErr("csv", fmt.Sprintf("line %d", len(raw)+2), err, "read row")
		}
		raw = append(raw, rec)
	}

	rows := make([][]any, len(raw))
	for i := range rows {
		rows[i] = make([]any, len(header))
	}
	for j := range header {
		parse := columnParser(raw, j)
		for i, rec := range raw {
			rows[i][j] = parse(rec[j])
		}
	}
	return NewTable(header, rows)
}

func isMissing(s string) bool {
	_, ok := missingTokens[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

func columnParser(raw [][]string, j int) func(string) any {
	allInt, allFloat, allBool := true, true, true
	for _, rec := range raw {
		s := strings.TrimSpace(rec[j])
		if isMissing(s) {
			continue
		}
		if _, err := strconv.ParseInt(s, 10, 64); err != nil {
			allInt = false
		}
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			allFloat = false
		}
		if _, err := strconv.ParseBool(strings.ToLower(s)); err != nil || len(s) < 4 {
			allBool = false
		}
	}

	return func(cell string) any {
		s := strings.TrimSpace(cell)
		if isMissing(s) {
			return nil
		}
		switch {
		case allInt:
			i, _ := strconv.ParseInt(s, 10, 64)
			return i
		case allFloat:
			f, _ := strconv.ParseFloat(s, 64)
			return finite(f)
		case allBool:
			b, _ := strconv.ParseBool(strings.ToLower(s))
			return b
		default:
			return cell
		}
	}
}
