package jsonx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneMap(t *testing.T) {
	nested := map[string]any{"budget": 100}
	list := []any{map[string]any{"id": "a"}, "b"}
	tags := []string{"spring", "launch"}
	typed := map[string][]int{"weeks": {1, 2}}
	src := map[string]any{
		"campaign": nested,
		"items":    list,
		"tags":     tags,
		"typed":    typed,
		"none":     nil,
		"n":        3,
	}

	got := CloneMap(src)
	require.Equal(t, src, got)

	nested["budget"] = 999
	list[0].(map[string]any)["id"] = "changed"
	tags[0] = "winter"
	typed["weeks"][0] = 42

	assert.Equal(t, 100, got["campaign"].(map[string]any)["budget"])
	assert.Equal(t, "a", got["items"].([]any)[0].(map[string]any)["id"])
	assert.Equal(t, []string{"spring", "launch"}, got["tags"])
	assert.Equal(t, map[string][]int{"weeks": {1, 2}}, got["typed"])
	assert.Nil(t, got["none"])
	assert.Equal(t, 3, got["n"])
}

func TestCloneNil(t *testing.T) {
	assert.Nil(t, CloneMap(nil))
	assert.Nil(t, Clone(nil))

	var s []string
	assert.Nil(t, Clone(s))
}
