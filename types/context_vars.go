// Package types provides the shared value types of the workflow layer.
package types

import (
	"maps"

	"github.com/goccy/go-json"
)

// ContextVars is a schema-less bag of named values. It carries activity inputs,
// activity outputs and the data a workflow instance accumulates between steps.
//
// Example usage:
//
//	data := ContextVars{"brief": "spring launch", "budget": 5000}
//	data = data.Merge(ContextVars{"creative_id": "cr-42"})
//	if data.Has("creative_id") {
//	    // the creative step ran
//	}
//
// Thread Safety:
// ContextVars is a map type and is not safe for concurrent modification.
// The workflow engine only touches an instance's data while holding that
// instance's lock and hands out clones.
type ContextVars map[string]any

// String returns the JSON form of the variables, or an empty string if they can't be marshaled.
func (cv ContextVars) String() string {
	jsonData, err := json.Marshal(cv)
	if err != nil {
		return ""
	}
	return string(jsonData)
}

// Clone returns a shallow copy. Cloning nil yields an empty, non-nil map.
func (cv ContextVars) Clone() ContextVars {
	if cv == nil {
		return ContextVars{}
	}
	return maps.Clone(cv)
}

// Merge returns a shallow copy of cv with every entry of other written over it.
func (cv ContextVars) Merge(other map[string]any) ContextVars {
	out := cv.Clone()
	maps.Copy(out, other)
	return out
}

// Has reports whether key is present, even when its value is nil.
func (cv ContextVars) Has(key string) bool {
	_, ok := cv[key]
	return ok
}
