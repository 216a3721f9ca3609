package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/casualjim/roost/api"
	"github.com/casualjim/roost/internal/metrics"
	"github.com/casualjim/roost/interpreter"
	"github.com/casualjim/roost/pkg/slogx"
	"github.com/casualjim/roost/pkg/uuidx"
	"github.com/casualjim/roost/process"
	"github.com/casualjim/roost/types"
	"github.com/fogfish/opts"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ErrInvalidAgent      = errors.New("invalid agent")
	ErrAgentExists       = errors.New("agent already registered")
	ErrWorkflowNotFound  = errors.New("workflow not found")
	ErrInvalidTransition = errors.New("invalid workflow state transition")
)

// Reasons reported by the engine in addition to the interpreter's.
const (
	ReasonNotRunning = "workflow_not_running"
)

// ProcessRepository resolves processes for CreateWorkflow.
type ProcessRepository interface {
	Process(frameworkID, processID string) (*process.Process, error)
}

// Engine is safe for concurrent use. Steps of one instance are serialized,
// distinct instances can run concurrently.
type Engine struct {
	interp     *interpreter.Interpreter
	repo       ProcessRepository
	logger     *slog.Logger
	registerer prometheus.Registerer
	metrics    *metrics.Workflow
	notifier   *notifier

	mu           sync.RWMutex
	agents       map[string]*api.Binding
	order        []string
	byCapability map[string][]string
	instances    map[string]*instance
	created      []string
}

var (
	WithLogger  = opts.ForName[Engine, *slog.Logger]("logger")
	WithMetrics = opts.ForName[Engine, prometheus.Registerer]("registerer")
)

// New creates an engine executing activities through interp and resolving processes from repo.
func New(interp *interpreter.Interpreter, repo ProcessRepository, options ...opts.Option[Engine]) *Engine {
	e := &Engine{
		interp:       interp,
		repo:         repo,
		agents:       make(map[string]*api.Binding),
		byCapability: make(map[string][]string),
		instances:    make(map[string]*instance),
	}
	if err := opts.Apply(e, options); err != nil {
		panic(err)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.logger = e.logger.With(slogx.LoggerName("roost.workflow"))
	if e.notifier != nil {
		e.notifier.logger = e.logger
	}

	m, err := metrics.NewWorkflow(e.registerer)
	if err != nil {
		panic(fmt.Errorf("failed to register workflow metrics: %w", err))
	}
	e.metrics = m
	return e
}

// RegisterAgent indexes agent under the given capabilities, or the ones it
// advertises when none are given.
func (e *Engine) RegisterAgent(agent api.Agent, capabilities ...string) error {
	if agent == nil || agent.ID() == "" {
		return fmt.Errorf("%w: agent and agent id are required", ErrInvalidAgent)
	}
	binding := api.Bind(agent, capabilities...)

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.agents[binding.ID()]; exists {
		return fmt.Errorf("%w: %s", ErrAgentExists, binding.ID())
	}
	e.agents[binding.ID()] = binding
	e.order = append(e.order, binding.ID())
	for _, c := range binding.Capabilities() {
		e.byCapability[c] = append(e.byCapability[c], binding.ID())
	}
	e.logger.Debug("agent registered",
		slogx.AgentID(binding.ID()),
		slog.Any("capabilities", binding.Capabilities()),
		slogx.Stringer("kind", binding.Kind()),
	)
	return nil
}

// UnregisterAgent removes an agent from every capability index.
func (e *Engine) UnregisterAgent(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	binding, ok := e.agents[id]
	if !ok {
		return false
	}
	delete(e.agents, id)
	e.order = slices.DeleteFunc(e.order, func(s string) bool { return s == id })
	for _, c := range binding.Capabilities() {
		ids := slices.DeleteFunc(e.byCapability[c], func(s string) bool { return s == id })
		if len(ids) == 0 {
			delete(e.byCapability, c)
		} else {
			e.byCapability[c] = ids
		}
	}
	return true
}

// Agents returns the registered agent ids in registration order.
func (e *Engine) Agents() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.order)
}

// FindAgentsForActivity returns, in registration order, the agents holding
// every capability the activity is mapped to. Activities without a mapping,
// or mapped to no capabilities, have no candidates.
func (e *Engine) FindAgentsForActivity(frameworkID, activityID string) []string {
	required, ok := e.interp.RequiredCapabilities(frameworkID, activityID)
	if !ok || len(required) == 0 {
		return []string{}
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	candidates := slices.Clone(e.byCapability[required[0]])
	for _, c := range required[1:] {
		holders := e.byCapability[c]
		candidates = slices.DeleteFunc(candidates, func(id string) bool {
			return !slices.Contains(holders, id)
		})
	}
	if candidates == nil {
		return []string{}
	}
	return candidates
}

func (e *Engine) binding(id string) (*api.Binding, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	b, ok := e.agents[id]
	return b, ok
}

// CreateWorkflow creates an instance for a process in the created state.
func (e *Engine) CreateWorkflow(frameworkID, processID string) (string, error) {
	proc, err := e.repo.Process(frameworkID, processID)
	if err != nil {
		return "", fmt.Errorf("failed to create workflow: %w", err)
	}
	inst := newInstance(uuidx.Prefixed("wf"), frameworkID, proc)

	e.mu.Lock()
	e.instances[inst.id] = inst
	e.created = append(e.created, inst.id)
	e.mu.Unlock()

	e.metrics.Workflows.WithLabelValues(string(StateCreated)).Inc()
	e.logger.Info("workflow created",
		slogx.WorkflowID(inst.id),
		slog.String("framework_id", frameworkID),
		slog.String("process_id", processID),
		slog.Int("activities", len(inst.activities)),
	)
	return inst.id, nil
}

// Workflows returns the instance ids in creation order.
func (e *Engine) Workflows() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.created)
}

func (e *Engine) instance(id string) (*instance, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	inst, ok := e.instances[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, id)
	}
	return inst, nil
}

// StartWorkflow seeds the workflow data, moves the instance to running and
// executes its first activity. An instance without activities completes immediately.
func (e *Engine) StartWorkflow(ctx context.Context, id string, data map[string]any) (api.Result, error) {
	inst, err := e.instance(id)
	if err != nil {
		return api.Result{}, err
	}
	inst.step.Lock()
	defer inst.step.Unlock()

	inst.mu.Lock()
	if inst.state != StateCreated {
		state := inst.state
		inst.mu.Unlock()
		return api.Result{}, fmt.Errorf("%w: can't start workflow %s in state %s", ErrInvalidTransition, id, state)
	}
	inst.data = types.ContextVars(data).Clone()
	inst.state = StateRunning
	inst.mu.Unlock()

	e.metrics.Workflows.WithLabelValues(string(StateRunning)).Inc()
	e.logger.InfoContext(ctx, "workflow started", slogx.WorkflowID(id))
	return e.stepOnce(ctx, inst), nil
}

// ExecuteNextActivity runs the current activity of a running instance and advances it,
// whether the activity succeeded or not. Steps of one instance wait for each
// other, so an agent must not step the workflow it is executing for.
func (e *Engine) ExecuteNextActivity(ctx context.Context, id string) (api.Result, error) {
	inst, err := e.instance(id)
	if err != nil {
		return api.Result{}, err
	}
	inst.step.Lock()
	defer inst.step.Unlock()

	inst.mu.Lock()
	state := inst.state
	inst.mu.Unlock()
	if state != StateRunning {
		return api.Failed("", ReasonNotRunning, fmt.Sprintf("workflow %s is %s", id, state)), nil
	}
	return e.stepOnce(ctx, inst), nil
}

// stepOnce executes the current activity. The caller holds inst.step; inst.mu
// is only held while the instance is read or updated, never while the agent runs.
func (e *Engine) stepOnce(ctx context.Context, inst *instance) api.Result {
	inst.mu.Lock()
	if inst.done() {
		e.completeLocked(ctx, inst)
		res := api.Result{Success: true, Message: "workflow completed", Data: inst.data.Clone()}
		inst.mu.Unlock()
		return res
	}
	idx := inst.index
	rec := &inst.activities[idx]
	actID := rec.Activity.ID
	rec.State = ActivityExecuting
	rec.StartedAt = stamp()
	input := inst.data.Clone()
	inst.mu.Unlock()

	log := e.logger.With(slogx.WorkflowID(inst.id), slogx.ActivityID(actID))

	start := time.Now()
	var res api.Result
	candidates := e.FindAgentsForActivity(inst.frameworkID, actID)
	if len(candidates) == 0 {
		res = api.Failed(actID, api.ReasonNoSuitableAgents, "no suitable agents for activity")
	} else {
		res = e.dispatch(ctx, inst.frameworkID, actID, input, candidates[0])
	}
	e.metrics.Duration.Observe(time.Since(start).Seconds())

	inst.mu.Lock()
	defer inst.mu.Unlock()

	rec = &inst.activities[idx]
	rec.AgentID = res.AgentID
	rec.FinishedAt = stamp()
	recorded := res
	rec.Result = &recorded
	if res.Success {
		rec.State = ActivityCompleted
		inst.data = inst.data.Merge(res.Outputs)
		log.InfoContext(ctx, "activity completed", slogx.AgentID(res.AgentID))
	} else {
		rec.State = ActivityFailed
		log.WarnContext(ctx, "activity failed",
			slog.String("reason", res.Reason),
			slog.String("message", res.Message),
		)
	}
	e.metrics.Activities.WithLabelValues(string(rec.State)).Inc()

	inst.index++
	e.notifier.activity(inst, *rec)
	if inst.done() {
		e.completeLocked(ctx, inst)
	}

	res.Data = inst.data.Clone()
	return res
}

func (e *Engine) dispatch(ctx context.Context, frameworkID, activityID string, input types.ContextVars, agentID string) api.Result {
	binding, ok := e.binding(agentID)
	if !ok {
		// unregistered between lookup and dispatch
		return api.Failed(activityID, api.ReasonNoSuitableAgents, fmt.Sprintf("agent %s is no longer registered", agentID))
	}
	res, err := e.interp.ExecuteActivity(ctx, frameworkID, activityID, input, binding)
	if err != nil {
		res = api.Failed(activityID, api.ReasonActivityNotFound, err.Error())
		res.Error = err.Error()
		res.AgentID = agentID
	}
	return res
}

// completeLocked marks inst completed. The caller holds inst.mu.
func (e *Engine) completeLocked(ctx context.Context, inst *instance) {
	if inst.state == StateCompleted {
		return
	}
	inst.complete()
	e.metrics.Workflows.WithLabelValues(string(StateCompleted)).Inc()
	completed, failed, _ := inst.progress()
	e.logger.InfoContext(ctx, "workflow completed",
		slogx.WorkflowID(inst.id),
		slog.Int("completed", completed),
		slog.Int("failed", failed),
	)
	e.notifier.completed(inst)
}

// WorkflowStatus returns a snapshot of an instance.
func (e *Engine) WorkflowStatus(id string) (Status, error) {
	inst, err := e.instance(id)
	if err != nil {
		return Status{}, err
	}
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.statusLocked(), nil
}

// ActivityResults returns the records of an instance. With an activity id
// only the records of that activity are returned.
func (e *Engine) ActivityResults(id, activityID string) ([]ActivityRecord, error) {
	inst, err := e.instance(id)
	if err != nil {
		return nil, err
	}
	inst.mu.Lock()
	defer inst.mu.Unlock()

	records := cloneRecords(inst.activities)
	if activityID == "" {
		return records, nil
	}
	return slices.DeleteFunc(records, func(r ActivityRecord) bool {
		return r.Activity.ID != activityID
	}), nil
}

// RunToCompletion executes the remaining activities of a running instance.
// It stops early when ctx is cancelled.
func (e *Engine) RunToCompletion(ctx context.Context, id string) (Status, error) {
	for {
		st, err := e.WorkflowStatus(id)
		if err != nil {
			return Status{}, err
		}
		if st.State != StateRunning {
			return st, nil
		}
		if err := ctx.Err(); err != nil {
			return st, err
		}
		if _, err := e.ExecuteNextActivity(ctx, id); err != nil {
			return st, err
		}
	}
}
