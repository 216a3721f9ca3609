// Package agent builds agents from plain functions.
//
// The kind of agent New returns depends on the options: with OnActivity it
// implements api.ActivityExecutor, with only OnExecute it implements
// api.Executor, and with neither it can only receive messages. api.Bind picks
// that up once when the agent is registered with the workflow engine.
package agent

import (
	"context"
	"errors"
	"slices"
	"strings"
	"text/template"

	"github.com/casualjim/roost/api"
	"github.com/casualjim/roost/messages"
	"github.com/casualjim/roost/types"
	"github.com/fogfish/opts"
)

// Option configures an agent built by New.
type Option = opts.Option[defaultAgent]

// MessageFunc handles a delivered message.
type MessageFunc func(ctx context.Context, msg messages.Message) (bool, error)

// ActivityFunc executes an activity knowing its id.
type ActivityFunc func(ctx context.Context, activityID string, ec api.ExecutionContext) (api.Result, error)

// ExecuteFunc executes whatever the context describes.
type ExecuteFunc func(ctx context.Context, ec api.ExecutionContext) (api.Result, error)

var (
	_ api.Agent            = (*defaultAgent)(nil)
	_ api.ActivityExecutor = (*activityAgent)(nil)
	_ api.Executor         = (*genericAgent)(nil)
)

type defaultAgent struct {
	id           string
	capabilities []string
	onMessage    MessageFunc
	onActivity   ActivityFunc
	onExecute    ExecuteFunc
}

func (a *defaultAgent) ID() string { return a.id }

func (a *defaultAgent) Capabilities() []string { return slices.Clone(a.capabilities) }

// Receive hands msg to the OnMessage function. Without one the message is acknowledged as unhandled.
func (a *defaultAgent) Receive(ctx context.Context, msg messages.Message) (bool, error) {
	if a.onMessage == nil {
		return false, nil
	}
	return a.onMessage(ctx, msg)
}

type activityAgent struct{ *defaultAgent }

func (a *activityAgent) ExecuteActivity(ctx context.Context, activityID string, ec api.ExecutionContext) (api.Result, error) {
	return a.onActivity(ctx, activityID, ec)
}

type genericAgent struct{ *defaultAgent }

func (a *genericAgent) Execute(ctx context.Context, ec api.ExecutionContext) (api.Result, error) {
	return a.onExecute(ctx, ec)
}

var (
	ID         = opts.ForName[defaultAgent, string]("id")
	OnMessage  = opts.ForName[defaultAgent, MessageFunc]("onMessage")
	OnActivity = opts.ForName[defaultAgent, ActivityFunc]("onActivity")
	OnExecute  = opts.ForName[defaultAgent, ExecuteFunc]("onExecute")
)

// Capabilities adds capability tags to the agent.
func Capabilities(capability string, extra ...string) Option {
	return opts.Type[defaultAgent](func(o *defaultAgent) error {
		for _, c := range append([]string{capability}, extra...) {
			if c != "" && !slices.Contains(o.capabilities, c) {
				o.capabilities = append(o.capabilities, c)
			}
		}
		return nil
	})
}

// New creates an agent. It panics when no id is given. When both OnActivity
// and OnExecute are set the agent executes through OnActivity.
func New(options ...Option) api.Agent {
	agent := &defaultAgent{}
	if err := opts.Apply(agent, options); err != nil {
		panic(err)
	}
	if agent.id == "" {
		panic(errors.New("agent id is required"))
	}
	switch {
	case agent.onActivity != nil:
		return &activityAgent{agent}
	case agent.onExecute != nil:
		return &genericAgent{agent}
	default:
		return agent
	}
}

// Echo returns an agent whose activity results echo the activity inputs as outputs.
func Echo(id string, capabilities ...string) api.Agent {
	options := []Option{
		ID(id),
		OnActivity(func(_ context.Context, activityID string, ec api.ExecutionContext) (api.Result, error) {
			res := api.Succeeded(activityID, ec.Inputs)
			res.Message = "echo"
			return res, nil
		}),
	}
	if len(capabilities) > 0 {
		options = append(options, Capabilities(capabilities[0], capabilities[1:]...))
	}
	return New(options...)
}

// Template returns an ActivityFunc that renders each template with the
// activity inputs and reports the rendered strings as outputs under the same keys.
// A template referring to a missing input fails the activity.
func Template(outputs map[string]string) (ActivityFunc, error) {
	literals := make(map[string]string)
	compiled := make(map[string]*template.Template)
	for name, text := range outputs {
		if !strings.Contains(text, "{{") {
			literals[name] = text
			continue
		}
		tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
		if err != nil {
			return nil, err
		}
		compiled[name] = tmpl
	}

	return func(_ context.Context, activityID string, ec api.ExecutionContext) (api.Result, error) {
		out := make(types.ContextVars, len(outputs))
		for name, text := range literals {
			out[name] = text
		}
		for name, tmpl := range compiled {
			var buf strings.Builder
			if err := tmpl.Execute(&buf, map[string]any(ec.Inputs)); err != nil {
				return api.Result{}, err
			}
			out[name] = buf.String()
		}
		return api.Succeeded(activityID, out), nil
	}, nil
}
