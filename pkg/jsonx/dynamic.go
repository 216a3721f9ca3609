package jsonx

import (
	"reflect"

	"github.com/goccy/go-json"
)

// ToDynamicJSON converts any Go value to a dynamic JSON object represented as a map[string]any.
// It marshals the input to JSON and unmarshals the bytes into a map, so numbers come back
// as float64 and structs come back keyed by their json tags.
//
// Returns an error when the value can't be marshaled or is not a JSON object.
func ToDynamicJSON(val any) (map[string]any, error) {
	result := make(map[string]any)
	b, err := json.Marshal(val)
	if err != nil {
		return nil, err
	}
	if err = json.Unmarshal(b, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// Normalize round-trips a value through JSON so values of different Go types
// that encode to the same JSON compare equal (int(3) and float64(3), []string and []any).
func Normalize(val any) (any, error) {
	b, err := json.Marshal(val)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Equal reports whether a and b encode to the same JSON value.
// Values that can't be marshaled are never equal.
func Equal(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	na, err := Normalize(a)
	if err != nil {
		return false
	}
	nb, err := Normalize(b)
	if err != nil {
		return false
	}
	return reflect.DeepEqual(na, nb)
}
