package slogx

import (
	"fmt"
	"log/slog"
)

const (
	// KeyLoggerName is the attribute key naming the component that logged.
	KeyLoggerName = "logger"
	// KeyMessageID is the attribute key for a message id.
	KeyMessageID = "message_id"
	// KeyAgentID is the attribute key for an agent id.
	KeyAgentID = "agent_id"
	// KeyWorkflowID is the attribute key for a workflow instance id.
	KeyWorkflowID = "workflow_id"
	// KeyActivityID is the attribute key for an activity id.
	KeyActivityID = "activity_id"
	// KeyTopic is the attribute key for a pub/sub topic.
	KeyTopic = "topic"
)

// Error returns a slog.Attr with the key "error" and the error's message.
// A nil error is rendered as an empty string.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// Stringer creates a slog.Attr from the string form of value.
func Stringer(key string, value fmt.Stringer) slog.Attr {
	return slog.String(key, value.String())
}

// LoggerName returns an attribute naming the logger.
func LoggerName(name string) slog.Attr {
	return slog.String(KeyLoggerName, name)
}

func MessageID(id string) slog.Attr {
	return slog.String(KeyMessageID, id)
}

func AgentID(id string) slog.Attr {
	return slog.String(KeyAgentID, id)
}

func WorkflowID(id string) slog.Attr {
	return slog.String(KeyWorkflowID, id)
}

func ActivityID(id string) slog.Attr {
	return slog.String(KeyActivityID, id)
}

func Topic(name string) slog.Attr {
	return slog.String(KeyTopic, name)
}
