package slogx

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

type named string

func (n named) String() string { return string(n) }

func TestAttrs(t *testing.T) {
	tests := []struct {
		name string
		attr slog.Attr
		key  string
		want string
	}{
		{"error", Error(errors.New("boom")), "error", "boom"},
		{"nil error", Error(nil), "error", ""},
		{"stringer", Stringer("kind", named("request")), "kind", "request"},
		{"logger", LoggerName("roost.protocol"), KeyLoggerName, "roost.protocol"},
		{"message", MessageID("m1"), KeyMessageID, "m1"},
		{"agent", AgentID("a1"), KeyAgentID, "a1"},
		{"workflow", WorkflowID("w1"), KeyWorkflowID, "w1"},
		{"activity", ActivityID("act1"), KeyActivityID, "act1"},
		{"topic", Topic("news"), KeyTopic, "news"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.key, tt.attr.Key)
			assert.Equal(t, tt.want, tt.attr.Value.String())
		})
	}
}
