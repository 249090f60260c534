package tabular

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Normalize coerces v into the document store's value set: int64, float64,
// bool, string, nil, map[string]any and []any, recursively.
//
// NaN and infinities become nil, time.Time becomes an RFC 3339 string and
// driver.Valuer wrappers such as sql.NullFloat64 are unwrapped first.
// Reference cycles, channels and functions fail with a *CodecError.
func Normalize(v any) (any, error) {
	n := normalizer{active: make(map[visit]struct{})}
	return n.normalize(v, "$")
}

// NormalizeDocument is Normalize for a top-level document.
func NormalizeDocument(doc map[string]any) (map[string]any, error) {
	if doc == nil {
		return nil, nil
	}
	out, err := Normalize(doc)
	if err != nil {
		return nil, err
	}
	return out.(map[string]any), nil
}

type visit struct {
	ptr uintptr
	typ reflect.Type
	n   int
}

type normalizer struct {
	active map[visit]struct{}
}

func (n *normalizer) enter(rv reflect.Value, path string) (func(), error) {
	var length int
	if rv.Kind() == reflect.Slice {
		length = rv.Len()
	}
	key := visit{ptr: rv.Pointer(), typ: rv.Type(), n: length}
	if _, seen := n.active[key]; seen {
		return nil, codecErr("normalize", path, ErrUnrepresentable, "circular reference")
	}
	n.active[key] = struct{}{}
	return func() { delete(n.active, key) }, nil
}

func (n *normalizer) normalize(v any, path string) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case bool, string, int64:
		return x, nil
	case int:
		return int64(x), nil
	case float64:
		return finite(x), nil
	case json.Number:
		return normalizeNumber(x, path)
	case time.Time:
		if x.IsZero() {
			return nil, nil
		}
		return x.UTC().Format(time.RFC3339Nano), nil
	case []byte:
		return string(x), nil
	}

	rv := reflect.ValueOf(v)
	if (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) && rv.IsNil() {
		return nil, nil
	}
	if valuer, ok := v.(driver.Valuer); ok {
		inner, err := valuer.Value()
		if err != nil {
			return nil, codecErr("normalize", path, err, "value wrapper failed")
		}
		return n.normalize(inner, path)
	}
	return n.reflectValue(rv, path)
}

func (n *normalizer) reflectValue(rv reflect.Value, path string) (any, error) {
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return float64(u), nil
		}
		return int64(u), nil
	case reflect.Float32:
		// Go through the shortest float32 text so 0.1f stays 0.1.
		f, _ := strconv.ParseFloat(strconv.FormatFloat(rv.Float(), 'g', -1, 32), 64)
		return finite(f), nil
	case reflect.Float64:
		return finite(rv.Float()), nil
	case reflect.Complex64, reflect.Complex128:
		return strconv.FormatComplex(rv.Complex(), 'g', -1, 128), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Pointer:
		leave, err := n.enter(rv, path)
		if err != nil {
			return nil, err
		}
		defer leave()
		return n.normalize(rv.Elem().Interface(), path)
	case reflect.Interface:
		return n.normalize(rv.Elem().Interface(), path)
	case reflect.Map:
		return n.mapValue(rv, path)
	case reflect.Slice:
		if rv.IsNil() {
			return nil, nil
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return string(rv.Bytes()), nil
		}
		leave, err := n.enter(rv, path)
		if err != nil {
			return nil, err
		}
		defer leave()
		return n.sequence(rv, path)
	case reflect.Array:
		return n.sequence(rv, path)
	case reflect.Struct:
		return n.structValue(rv, path)
	default:
		return nil, codecErr("normalize", path, ErrUnrepresentable, "unsupported kind %s", rv.Kind())
	}
}

func (n *normalizer) mapValue(rv reflect.Value, path string) (any, error) {
	if rv.IsNil() {
		return nil, nil
	}
	leave, err := n.enter(rv, path)
	if err != nil {
		return nil, err
	}
	defer leave()

	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		key := mapKey(iter.Key())
		val, err := n.normalize(iter.Value().Interface(), path+"."+key)
		if err != nil {
			return nil, err
		}
		out[key] = val
	}
	return out, nil
}

func (n *normalizer) sequence(rv reflect.Value, path string) (any, error) {
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		val, err := n.normalize(rv.Index(i).Interface(), path+"["+strconv.Itoa(i)+"]")
		if err != nil {
			return nil, err
		}
		out[i] = val
	}
	return out, nil
}

func (n *normalizer) structValue(rv reflect.Value, path string) (any, error) {
	t := rv.Type()
	out := make(map[string]any, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := sf.Name
		if tag, ok := sf.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		val, err := n.normalize(rv.Field(i).Interface(), path+"."+name)
		if err != nil {
			return nil, err
		}
		out[name] = val
	}
	return out, nil
}

func mapKey(k reflect.Value) string {
	if k.Kind() == reflect.String {
		return k.String()
	}
	return fmt.Sprint(k.Interface())
}

func normalizeNumber(num json.Number, path string) (any, error) {
	if i, err := num.Int64(); err == nil {
		return i, nil
	}
	f, err := num.Float64()
	if err != nil {
		return nil, codecErr("normalize", path, err, "invalid number %q", num.String())
	}
	return finite(f), nil
}

func finite(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}
