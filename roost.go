package roost

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/casualjim/roost/agent"
	"github.com/casualjim/roost/api"
	"github.com/casualjim/roost/internal/config"
	"github.com/casualjim/roost/interpreter"
	"github.com/casualjim/roost/pkg/slogx"
	"github.com/casualjim/roost/process"
	"github.com/casualjim/roost/protocol"
	"github.com/casualjim/roost/workflow"
	"github.com/fogfish/opts"
	"github.com/prometheus/client_golang/prometheus"
)

// EngineID is the sender of workflow notifications.
const EngineID = "workflow-engine"

// System is a ready to use runtime.
type System struct {
	cfg        *config.Config
	logger     *slog.Logger
	registerer prometheus.Registerer
	agents     []api.Agent

	Repository  *process.Repository
	Protocol    *protocol.Protocol
	Interpreter *interpreter.Interpreter
	Engine      *workflow.Engine
}

// Option configures a System.
type Option = opts.Option[System]

var (
	WithConfig = opts.ForName[System, *config.Config]("cfg")
	WithLogger = opts.ForName[System, *slog.Logger]("logger")
	// WithMetrics registers protocol and engine metrics with the registerer.
	WithMetrics = opts.ForName[System, prometheus.Registerer]("registerer")
)

// Agents registers agents in addition to the scripted ones from the configuration.
func Agents(a api.Agent, extra ...api.Agent) Option {
	return opts.Type[System](func(s *System) error {
		s.agents = append(s.agents, a)
		s.agents = append(s.agents, extra...)
		return nil
	})
}

// New builds a system. Without a configuration the defaults of
// internal/config apply.
func New(options ...Option) (*System, error) {
	s := &System{}
	if err := opts.Apply(s, options); err != nil {
		return nil, err
	}
	if s.cfg == nil {
		cfg, err := config.Load("")
		if err != nil {
			return nil, err
		}
		s.cfg = cfg
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	protoOpts := []opts.Option[protocol.Protocol]{
		protocol.WithLogger(s.logger),
		protocol.WithStopTimeout(s.cfg.Protocol.StopTimeout),
		protocol.WithDeliveryTimeout(s.cfg.Protocol.DeliveryTimeout),
		protocol.WithHistoryLimit(s.cfg.Protocol.HistoryLimit),
	}
	engineOpts := []opts.Option[workflow.Engine]{
		workflow.WithLogger(s.logger),
	}
	if s.registerer != nil {
		protoOpts = append(protoOpts, protocol.WithMetrics(s.registerer))
		engineOpts = append(engineOpts, workflow.WithMetrics(s.registerer))
	}

	s.Repository = process.NewRepository(s.cfg.StorageDir)
	s.Protocol = protocol.New(protoOpts...)
	s.Interpreter = interpreter.New(s.Repository, interpreter.WithLogger(s.logger))
	s.Engine = workflow.New(s.Interpreter, s.Repository,
		append(engineOpts, workflow.WithNotifier(s.Protocol, EngineID, workflow.DefaultTopic))...)

	if _, err := s.Protocol.RegisterTopic(workflow.DefaultTopic, "workflow progress notifications"); err != nil {
		return nil, err
	}

	scripted, err := ScriptedAgents(s.cfg.Agents)
	if err != nil {
		return nil, err
	}
	for _, a := range append(scripted, s.agents...) {
		if err := s.Register(a); err != nil {
			return nil, err
		}
	}

	var errs []error
	for _, m := range s.cfg.Mappings {
		if err := s.Interpreter.RegisterCapabilityMapping(m.Framework, m.Activity, m.Capabilities); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to register capability mappings: %w", errors.Join(errs...))
	}
	return s, nil
}

// Config returns the configuration the system was built from.
func (s *System) Config() *config.Config { return s.cfg }

// Register adds a to the protocol and the workflow engine.
func (s *System) Register(a api.Agent) error {
	if err := s.Protocol.RegisterAgent(a); err != nil {
		return err
	}
	if err := s.Engine.RegisterAgent(a); err != nil {
		s.Protocol.UnregisterAgent(a.ID())
		return err
	}
	return nil
}

// ScriptedAgents builds the agents declared in configuration: template agents
// when outputs are given, echo agents otherwise.
func ScriptedAgents(defs []config.Agent) ([]api.Agent, error) {
	out := make([]api.Agent, 0, len(defs))
	for _, def := range defs {
		if len(def.Outputs) == 0 {
			out = append(out, agent.Echo(def.ID, def.Capabilities...))
			continue
		}
		fn, err := agent.Template(def.Templates())
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", def.ID, err)
		}
		options := []agent.Option{agent.ID(def.ID), agent.OnActivity(fn)}
		if len(def.Capabilities) > 0 {
			options = append(options, agent.Capabilities(def.Capabilities[0], def.Capabilities[1:]...))
		}
		out = append(out, agent.New(options...))
	}
	return out, nil
}

// Load reads the framework documents from the storage directory.
func (s *System) Load(ctx context.Context) (process.LoadReport, error) {
	report, err := s.Repository.Load(ctx)
	if err != nil {
		return report, err
	}
	s.logger.InfoContext(ctx, "frameworks loaded",
		slog.Int("loaded", len(report.Loaded)),
		slog.Int("skipped", len(report.Skipped)),
		slog.String("dir", s.Repository.Dir()))
	return report, nil
}

// Run creates a workflow for the process, runs it to completion and drains
// the notifications it produced.
func (s *System) Run(ctx context.Context, frameworkID, processID string, data map[string]any) (workflow.Status, error) {
	id, err := s.Engine.CreateWorkflow(frameworkID, processID)
	if err != nil {
		return workflow.Status{}, err
	}
	log := s.logger.With(slogx.WorkflowID(id))
	log.InfoContext(ctx, "workflow created", slog.String("framework", frameworkID), slog.String("process", processID))

	if _, err := s.Engine.StartWorkflow(ctx, id, data); err != nil {
		return workflow.Status{}, err
	}
	st, err := s.Engine.RunToCompletion(ctx, id)
	if err != nil {
		return st, err
	}
	if !s.Protocol.Running() {
		s.Protocol.ProcessMessageQueue(ctx)
	}
	log.InfoContext(ctx, "workflow finished",
		slog.Int("completed", st.Completed),
		slog.Int("failed", st.Failed))
	return st, nil
}

// AgentIDs lists the agents known to the engine in registration order.
func (s *System) AgentIDs() []string {
	return s.Engine.Agents()
}
