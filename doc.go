/*
Package roost wires the pieces of a multi-agent process runtime together.

A System owns:

  - a process repository loading framework documents from a directory
  - a protocol delivering prioritised messages and topic notifications between agents
  - an interpreter turning framework activities into execution contexts
  - a workflow engine stepping process instances through their activities

# Basic Usage

	sys, err := roost.New(
		roost.WithConfig(cfg),
		roost.Agents(agent.Echo("clerk", "writing")),
	)
	if err != nil {
		return err
	}
	if _, err := sys.Load(ctx); err != nil {
		return err
	}
	status, err := sys.Run(ctx, "marketing", "campaign", map[string]any{"product": "kite"})

Agents are registered with both the protocol, so they can receive messages,
and the workflow engine, so they can be selected for activities. The engine
publishes progress notifications on workflow.DefaultTopic; subscribe an
agent to that topic and drain the protocol (or start its pump) to see them.

Capability mappings and scripted agents can come from configuration, see
internal/config.
*/
package roost
