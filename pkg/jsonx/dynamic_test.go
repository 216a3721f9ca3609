package jsonx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToDynamicJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		want    map[string]any
		wantErr bool
	}{
		{
			name: "simple struct",
			input: struct {
				Name string `json:"name"`
				Age  int    `json:"age"`
			}{
				Name: "test",
				Age:  30,
			},
			want: map[string]any{
				"name": "test",
				"age":  float64(30),
			},
		},
		{
			name:    "not an object",
			input:   []int{1, 2},
			wantErr: true,
		},
		{
			name:    "invalid input",
			input:   make(chan int),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToDynamicJSON(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"same string", "a", "a", true},
		{"int and float", 3, float64(3), true},
		{"string slices", []string{"x", "y"}, []any{"x", "y"}, true},
		{"nested maps", map[string]any{"k": 1}, map[string]int{"k": 1}, true},
		{"different values", "a", "b", false},
		{"string and number", "1", 1, false},
		{"nil and nil", nil, nil, true},
		{"unmarshalable", make(chan int), 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
		})
	}
}
