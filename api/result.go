package api

import (
	"errors"
	"maps"

	"github.com/casualjim/roost/types"
)

// ErrNoExecutor is returned when an agent implements neither ActivityExecutor nor Executor.
var ErrNoExecutor = errors.New("agent does not execute activities")

// Failure reasons carried by Result.Reason.
const (
	ReasonActivityNotFound    = "activity_not_found"
	ReasonIncompleteInputs    = "incomplete_inputs"
	ReasonMissingCapabilities = "missing_capabilities"
	ReasonNoHandlerOrAgent    = "no_handler_or_agent"
	ReasonHandlerError        = "handler_error"
	ReasonAgentError          = "agent_error"
	ReasonNoExecutor          = "no_executor"
	ReasonNoSuitableAgents    = "no_suitable_agents"
)

// Context statuses computed by the interpreter.
const (
	ContextReady            = "ready"
	ContextIncompleteInputs = "incomplete_inputs"
)

// Result is the uniform envelope returned for every activity execution and
// workflow step, successful or not.
type Result struct {
	Success             bool              `json:"success"`
	Message             string            `json:"message,omitempty"`
	ActivityID          string            `json:"activity_id,omitempty"`
	Reason              string            `json:"reason,omitempty"`
	Error               string            `json:"error,omitempty"`
	AgentID             string            `json:"agent_id,omitempty"`
	Outputs             types.ContextVars `json:"outputs,omitempty"`
	MissingInputs       []string          `json:"missing_inputs,omitempty"`
	MissingCapabilities []string          `json:"missing_capabilities,omitempty"`
	Data                types.ContextVars `json:"data,omitempty"`
}

// Succeeded builds a successful result for activityID.
func Succeeded(activityID string, outputs types.ContextVars) Result {
	return Result{Success: true, ActivityID: activityID, Outputs: maps.Clone(outputs)}
}

// Failed builds a failure result for activityID with a machine readable reason.
func Failed(activityID, reason, message string) Result {
	return Result{ActivityID: activityID, Reason: reason, Message: message}
}

// IsSuccess reports whether the result is a success.
func (r Result) IsSuccess() bool {
	return r.Success
}

// IsError reports whether the result is a failure.
func (r Result) IsError() bool {
	return !r.Success
}

// ExecutionContext is what a handler or agent receives when asked to run an activity.
type ExecutionContext struct {
	FrameworkID    string            `json:"framework_id"`
	ActivityID     string            `json:"activity_id"`
	ActivityName   string            `json:"activity_name"`
	Description    string            `json:"description,omitempty"`
	RequiredInputs []string          `json:"required_inputs,omitempty"`
	OptionalInputs []string          `json:"optional_inputs,omitempty"`
	Outputs        []string          `json:"outputs,omitempty"`
	Preconditions  []string          `json:"preconditions,omitempty"`
	Postconditions []string          `json:"postconditions,omitempty"`
	ExecutionSteps []string          `json:"execution_steps,omitempty"`
	Inputs         types.ContextVars `json:"inputs"`
	Status         string            `json:"status"`
	MissingInputs  []string          `json:"missing_inputs,omitempty"`
}

// Ready reports whether every required input is present.
func (ec ExecutionContext) Ready() bool {
	return ec.Status == ContextReady
}
