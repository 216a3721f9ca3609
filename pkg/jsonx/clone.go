package jsonx

import "reflect"

// CloneMap deep copies a JSON-like object: nested maps and slices are copied,
// other values (strings, numbers, structs, pointers) are shared.
// A nil map stays nil.
func CloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = Clone(v)
	}
	return out
}

// Clone deep copies the maps and slices reachable from val, keeping their types.
func Clone(val any) any {
	switch v := val.(type) {
	case nil:
		return nil
	case map[string]any:
		return CloneMap(v)
	case []any:
		if v == nil {
			return v
		}
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = Clone(e)
		}
		return out
	}

	rv := reflect.ValueOf(val)
	switch rv.Kind() {
	case reflect.Map:
		if rv.IsNil() {
			return val
		}
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), cloneValue(iter.Value(), rv.Type().Elem()))
		}
		return out.Interface()
	case reflect.Slice:
		if rv.IsNil() {
			return val
		}
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		for i := range rv.Len() {
			out.Index(i).Set(cloneValue(rv.Index(i), rv.Type().Elem()))
		}
		return out.Interface()
	default:
		return val
	}
}

func cloneValue(v reflect.Value, typ reflect.Type) reflect.Value {
	c := Clone(v.Interface())
	if c == nil {
		return reflect.Zero(typ)
	}
	return reflect.ValueOf(c)
}
