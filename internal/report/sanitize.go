package report

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"
)

// jsonReady rewrites a value into a tree encoding/json accepts, replacing
// non-finite floats with null. Several statistics legitimately carry NaN
// sentinels (empty-group descriptives, collapsed Hosmer-Lemeshow bins, a
// median over zero responses) and encoding/json rejects NaN and Inf
// outright; the reports null those cells out instead of failing the run.
func jsonReady(rv reflect.Value) any {
	if !rv.IsValid() {
		return nil
	}

	if rv.CanInterface() {
		if m, ok := rv.Interface().(json.Marshaler); ok {
			if rv.Kind() == reflect.Pointer && rv.IsNil() {
				return nil
			}
			data, err := m.MarshalJSON()
			if err != nil {
				return nil
			}
			return json.RawMessage(data)
		}
	}

	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return jsonReady(rv.Elem())
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return f
	case reflect.Slice:
		if rv.IsNil() {
			return nil
		}
		return jsonReadyList(rv)
	case reflect.Array:
		return jsonReadyList(rv)
	case reflect.Map:
		if rv.IsNil() {
			return nil
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[fmt.Sprint(iter.Key().Interface())] = jsonReady(iter.Value())
		}
		return out
	case reflect.Struct:
		out := make(map[string]any)
		jsonReadyStruct(rv, out)
		return out
	default:
		return rv.Interface()
	}
}

func jsonReadyList(rv reflect.Value) []any {
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = jsonReady(rv.Index(i))
	}
	return out
}

// jsonReadyStruct flattens the struct's exported fields into out, honoring
// json tag names, "-", omitempty, and embedded structs.
func jsonReadyStruct(rv reflect.Value, out map[string]any) {
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		fv := rv.Field(i)

		if f.Anonymous && name == "" && fv.Kind() == reflect.Struct {
			jsonReadyStruct(fv, out)
			continue
		}
		if strings.Contains(opts, "omitempty") && fv.IsZero() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		out[name] = jsonReady(fv)
	}
}
