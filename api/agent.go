package api

import (
	"context"
	"slices"

	"github.com/casualjim/roost/messages"
)

// Agent is the contract every participant registered with the protocol or
// the workflow engine implements.
//
// Receive is called from the protocol's drain loop, one message at a time.
// Returning an error (or panicking) marks the delivery failed; the handled
// flag is informational and a false value still counts as delivered.
type Agent interface {
	// ID returns the agent's unique address.
	ID() string

	// Receive handles one delivered message.
	Receive(ctx context.Context, msg messages.Message) (bool, error)

	// Capabilities returns the capability tags the agent advertises.
	Capabilities() []string
}

// ActivityExecutor is implemented by agents that know which activity they are running.
type ActivityExecutor interface {
	ExecuteActivity(ctx context.Context, activityID string, ec ExecutionContext) (Result, error)
}

// Executor is the generic fallback for agents without activity-aware execution.
type Executor interface {
	Execute(ctx context.Context, ec ExecutionContext) (Result, error)
}

// ExecutionKind tells how a bound agent executes activities.
type ExecutionKind int

const (
	// ExecutesNothing marks agents that can only receive messages.
	ExecutesNothing ExecutionKind = iota
	// ExecutesActivities marks agents implementing ActivityExecutor.
	ExecutesActivities
	// ExecutesGeneric marks agents implementing only Executor.
	ExecutesGeneric
)

func (k ExecutionKind) String() string {
	switch k {
	case ExecutesActivities:
		return "activity"
	case ExecutesGeneric:
		return "generic"
	default:
		return "none"
	}
}

// Binding is an agent together with the way it executes activities, decided
// once by Bind instead of on every call.
type Binding struct {
	agent        Agent
	kind         ExecutionKind
	capabilities []string
	activity     ActivityExecutor
	generic      Executor
}

// Bind inspects agent once and records how it executes activities.
// When capabilities are given they replace the ones the agent advertises.
func Bind(agent Agent, capabilities ...string) *Binding {
	b := &Binding{agent: agent}
	if len(capabilities) > 0 {
		b.capabilities = dedupe(capabilities)
	} else {
		b.capabilities = dedupe(agent.Capabilities())
	}

	if ae, ok := agent.(ActivityExecutor); ok {
		b.kind = ExecutesActivities
		b.activity = ae
	} else if ge, ok := agent.(Executor); ok {
		b.kind = ExecutesGeneric
		b.generic = ge
	}
	return b
}

func dedupe(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

// Agent returns the bound agent.
func (b *Binding) Agent() Agent { return b.agent }

// ID returns the bound agent's id.
func (b *Binding) ID() string { return b.agent.ID() }

// Kind returns how the agent executes activities.
func (b *Binding) Kind() ExecutionKind { return b.kind }

// Capabilities returns a copy of the capability set the binding was indexed with.
func (b *Binding) Capabilities() []string { return slices.Clone(b.capabilities) }

// HasCapabilities reports whether the binding holds every required capability.
// It returns the ones that are missing, in the order they were required.
func (b *Binding) HasCapabilities(required []string) (bool, []string) {
	var missing []string
	for _, c := range required {
		if !slices.Contains(b.capabilities, c) {
			missing = append(missing, c)
		}
	}
	return len(missing) == 0, missing
}

// Execute runs an activity against the agent with the method chosen at bind time.
// It returns ErrNoExecutor when the agent can't execute activities.
func (b *Binding) Execute(ctx context.Context, activityID string, ec ExecutionContext) (Result, error) {
	switch b.kind {
	case ExecutesActivities:
		return b.activity.ExecuteActivity(ctx, activityID, ec)
	case ExecutesGeneric:
		return b.generic.Execute(ctx, ec)
	default:
		return Result{}, ErrNoExecutor
	}
}
