// Package interpreter runs single process activities.
//
// An Interpreter knows which capabilities an agent needs for each
// (framework, activity) pair and which activities have a custom handler.
// ExecuteActivity dispatches in a fixed order:
//
//  1. a handler registered for the exact pair
//  2. the given agent binding, after checking its capabilities
//  3. otherwise a no_handler_or_agent failure
//
// Every outcome is reported as an api.Result. Only malformed identifiers are
// returned as errors.
package interpreter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/casualjim/roost/api"
	"github.com/casualjim/roost/internal/registry"
	"github.com/casualjim/roost/pkg/slogx"
	"github.com/casualjim/roost/process"
	"github.com/casualjim/roost/types"
	"github.com/fogfish/opts"
)

var (
	ErrInvalidIdentifier = errors.New("framework and activity ids are required")
	ErrActivityNotFound  = process.ErrActivityNotFound
)

// Handler executes an activity in place of an agent.
type Handler func(ctx context.Context, ec api.ExecutionContext) (api.Result, error)

// ActivityRepository resolves activity definitions.
type ActivityRepository interface {
	Activity(frameworkID, activityID string) (*process.Activity, error)
}

type Interpreter struct {
	repo     ActivityRepository
	logger   *slog.Logger
	mappings registry.Registry[[]string]
	handlers registry.Registry[Handler]
}

// WithLogger sets the logger used for handler and agent failures.
var WithLogger = opts.ForName[Interpreter, *slog.Logger]("logger")

// New creates an interpreter resolving activities from repo.
func New(repo ActivityRepository, options ...opts.Option[Interpreter]) *Interpreter {
	in := &Interpreter{
		repo:     repo,
		mappings: registry.New[[]string](),
		handlers: registry.New[Handler](),
	}
	if err := opts.Apply(in, options); err != nil {
		panic(err)
	}
	if in.logger == nil {
		in.logger = slog.Default()
	}
	in.logger = in.logger.With(slogx.LoggerName("roost.interpreter"))
	return in
}

func key(frameworkID, activityID string) string {
	return frameworkID + "/" + activityID
}

func checkIDs(frameworkID, activityID string) error {
	if frameworkID == "" || activityID == "" {
		return fmt.Errorf("%w: got framework %q activity %q", ErrInvalidIdentifier, frameworkID, activityID)
	}
	return nil
}

// RegisterCapabilityMapping declares the capabilities an agent needs to run the activity.
// A later mapping for the same pair replaces the earlier one.
func (in *Interpreter) RegisterCapabilityMapping(frameworkID, activityID string, capabilities []string) error {
	if err := checkIDs(frameworkID, activityID); err != nil {
		return err
	}
	caps := make([]string, 0, len(capabilities))
	for _, c := range capabilities {
		if c != "" && !slices.Contains(caps, c) {
			caps = append(caps, c)
		}
	}
	in.mappings.Add(key(frameworkID, activityID), caps)
	return nil
}

// RequiredCapabilities returns the mapped capabilities. ok is false when the activity has no mapping.
func (in *Interpreter) RequiredCapabilities(frameworkID, activityID string) ([]string, bool) {
	caps, ok := in.mappings.Get(key(frameworkID, activityID))
	if !ok {
		return nil, false
	}
	return slices.Clone(caps), true
}

// RegisterHandler installs a handler that takes precedence over any agent for the activity.
func (in *Interpreter) RegisterHandler(frameworkID, activityID string, handler Handler) error {
	if err := checkIDs(frameworkID, activityID); err != nil {
		return err
	}
	if handler == nil {
		return errors.New("handler must not be nil")
	}
	in.handlers.Add(key(frameworkID, activityID), handler)
	return nil
}

// PrepareExecutionContext resolves the activity and computes whether its required inputs are present.
func (in *Interpreter) PrepareExecutionContext(frameworkID, activityID string, input map[string]any) (api.ExecutionContext, error) {
	if err := checkIDs(frameworkID, activityID); err != nil {
		return api.ExecutionContext{}, err
	}
	act, err := in.repo.Activity(frameworkID, activityID)
	if err != nil {
		if errors.Is(err, ErrActivityNotFound) {
			return api.ExecutionContext{}, err
		}
		return api.ExecutionContext{}, fmt.Errorf("%w: %w", ErrActivityNotFound, err)
	}

	inputs := types.ContextVars(input).Clone()
	ec := api.ExecutionContext{
		FrameworkID:    frameworkID,
		ActivityID:     act.ID,
		ActivityName:   act.Name,
		Description:    act.Description,
		RequiredInputs: slices.Clone(act.RequiredInputs),
		OptionalInputs: slices.Clone(act.OptionalInputs),
		Outputs:        slices.Clone(act.Outputs),
		Preconditions:  slices.Clone(act.Preconditions),
		Postconditions: slices.Clone(act.Postconditions),
		ExecutionSteps: slices.Clone(act.ExecutionSteps),
		Inputs:         inputs,
		Status:         api.ContextReady,
	}
	for _, name := range act.RequiredInputs {
		if !inputs.Has(name) {
			ec.MissingInputs = append(ec.MissingInputs, name)
		}
	}
	if len(ec.MissingInputs) > 0 {
		ec.Status = api.ContextIncompleteInputs
	}
	return ec, nil
}

// ExecuteActivity runs one activity with the registered handler or the given agent binding.
func (in *Interpreter) ExecuteActivity(ctx context.Context, frameworkID, activityID string, input map[string]any, binding *api.Binding) (api.Result, error) {
	ec, err := in.PrepareExecutionContext(frameworkID, activityID, input)
	if err != nil {
		if errors.Is(err, ErrInvalidIdentifier) {
			return api.Result{}, err
		}
		return api.Failed(activityID, api.ReasonActivityNotFound, err.Error()), nil
	}
	if !ec.Ready() {
		res := api.Failed(activityID, api.ReasonIncompleteInputs, "required inputs are missing")
		res.MissingInputs = slices.Clone(ec.MissingInputs)
		return res, nil
	}

	log := in.logger.With(slog.String("framework_id", frameworkID), slogx.ActivityID(activityID))

	if handler, ok := in.handlers.Get(key(frameworkID, activityID)); ok {
		res, err := runHandler(ctx, handler, ec)
		if err != nil {
			log.Error("activity handler failed", slogx.Error(err))
			res = api.Failed(activityID, api.ReasonHandlerError, err.Error())
			res.Error = err.Error()
		}
		return complete(res, activityID), nil
	}

	if binding == nil {
		return api.Failed(activityID, api.ReasonNoHandlerOrAgent, "no handler registered and no agent provided"), nil
	}

	required, _ := in.RequiredCapabilities(frameworkID, activityID)
	if ok, missing := binding.HasCapabilities(required); !ok {
		res := api.Failed(activityID, api.ReasonMissingCapabilities, fmt.Sprintf("agent %s lacks required capabilities", binding.ID()))
		res.AgentID = binding.ID()
		res.MissingCapabilities = missing
		return res, nil
	}

	start := time.Now()
	res, err := runAgent(ctx, binding, activityID, ec)
	switch {
	case errors.Is(err, api.ErrNoExecutor):
		res = api.Failed(activityID, api.ReasonNoExecutor, fmt.Sprintf("agent %s does not execute activities", binding.ID()))
	case err != nil:
		log.Error("agent failed to execute activity", slogx.AgentID(binding.ID()), slogx.Error(err))
		res = api.Failed(activityID, api.ReasonAgentError, err.Error())
		res.Error = err.Error()
	default:
		log.Debug("activity executed",
			slogx.AgentID(binding.ID()),
			slog.Bool("success", res.Success),
			slog.Duration("elapsed", time.Since(start)),
		)
	}
	res.AgentID = binding.ID()
	return complete(res, activityID), nil
}

func complete(res api.Result, activityID string) api.Result {
	if res.ActivityID == "" {
		res.ActivityID = activityID
	}
	return res
}

func runHandler(ctx context.Context, handler Handler, ec api.ExecutionContext) (res api.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler(ctx, ec)
}

func runAgent(ctx context.Context, binding *api.Binding, activityID string, ec api.ExecutionContext) (res api.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("agent panicked: %v", r)
		}
	}()
	return binding.Execute(ctx, activityID, ec)
}
