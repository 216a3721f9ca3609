package pubsub

import (
	"strings"

	"github.com/casualjim/roost/pkg/jsonx"
	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// Filter selects published payloads by equality on their entries.
type Filter map[string]any

// Matches reports whether every pair of the filter is present in content with an equal value.
// Values are compared by their JSON encoding, so 3 and 3.0 are equal.
func (f Filter) Matches(content map[string]any) bool {
	if len(f) == 0 {
		return true
	}

	var raw []byte
	for key, want := range f {
		if got, ok := content[key]; ok {
			if !jsonx.Equal(got, want) {
				return false
			}
			continue
		}

		if !strings.Contains(key, ".") {
			return false
		}
		if raw == nil {
			b, err := json.Marshal(content)
			if err != nil {
				return false
			}
			raw = b
		}
		res := gjson.GetBytes(raw, key)
		if !res.Exists() || !jsonx.Equal(res.Value(), want) {
			return false
		}
	}
	return true
}
