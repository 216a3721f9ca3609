package uuidx

import "github.com/google/uuid"

// New generates a new version 7 UUID. Version 7 ids sort by creation time,
// which keeps message and workflow ids roughly chronological in logs.
// It panics if the UUID generation fails.
func New() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// NewString returns New as a string.
func NewString() string {
	return New().String()
}

// Prefixed returns a new id of the form "<prefix>-<uuid>".
// An empty prefix yields a plain UUID string.
func Prefixed(prefix string) string {
	if prefix == "" {
		return NewString()
	}
	return prefix + "-" + NewString()
}
