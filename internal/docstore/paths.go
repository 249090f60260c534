package docstore

import (
	"reflect"
	"sort"
	"strings"
)

// SetPath writes v at a dotted path, creating intermediate maps and
// replacing any non-map value found on the way.
func SetPath(doc map[string]any, path string, v any) {
	parts := strings.Split(path, ".")
	cur := doc
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[p] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = v
}

// GetPath reads the value at a dotted path.
func GetPath(doc map[string]any, path string) (any, bool) {
	var cur any = doc
	for _, p := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// ExpandPaths turns a dotted-path update set into the nested document it
// describes. Shorter paths are applied first so "a.b" lands inside "a".
func ExpandPaths(updates map[string]any) map[string]any {
	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]any, len(updates))
	for _, k := range keys {
		SetPath(out, k, Clone(updates[k]))
	}
	return out
}

// Clone deep-copies maps and slices of the document value set.
func Clone(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return CloneDoc(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = Clone(e)
		}
		return out
	default:
		return v
	}
}

func CloneDoc(doc map[string]any) map[string]any {
	if doc == nil {
		return nil
	}
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = Clone(v)
	}
	return out
}

// ValuesEqual compares two normalized values, treating int64 and float64
// with the same numeric value as equal.
func ValuesEqual(a, b any) bool {
	switch x := a.(type) {
	case int64:
		switch y := b.(type) {
		case int64:
			return x == y
		case float64:
			return float64(x) == y
		}
		return false
	case float64:
		switch y := b.(type) {
		case int64:
			return x == float64(y)
		case float64:
			return x == y
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}
