package process

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
)

// Decode reads and validates one framework document.
func Decode(r io.Reader) (*Framework, error) {
	var fw Framework
	if err := json.NewDecoder(r).Decode(&fw); err != nil {
		return nil, fmt.Errorf("failed to decode framework: %w", err)
	}
	if err := fw.Validate(); err != nil {
		return nil, err
	}
	return &fw, nil
}

// Encode writes fw as an indented JSON document.
func Encode(w io.Writer, fw *Framework) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(fw); err != nil {
		return fmt.Errorf("failed to encode framework %s: %w", fw.ID, err)
	}
	return nil
}
