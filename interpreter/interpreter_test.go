package interpreter

import (
	"context"
	"errors"
	"testing"

	"github.com/casualjim/roost/agent"
	"github.com/casualjim/roost/api"
	"github.com/casualjim/roost/process"
	"github.com/casualjim/roost/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) *process.Repository {
	t.Helper()
	repo := process.NewRepository("")
	require.NoError(t, repo.Add(&process.Framework{
		ID:   "fw1",
		Name: "Marketing",
		Type: process.FrameworkCustom,
		Processes: []*process.Process{{
			ID:   "p1",
			Name: "Campaign",
			Activities: []*process.Activity{
				{ID: "brief", Name: "Brief", RequiredInputs: []string{"product", "budget"}, OptionalInputs: []string{"tone"}, Outputs: []string{"brief"}},
				{ID: "publish", Name: "Publish"},
			},
		}},
	}))
	return repo
}

func TestCapabilityMappings(t *testing.T) {
	in := New(newRepo(t))

	_, ok := in.RequiredCapabilities("fw1", "brief")
	assert.False(t, ok)

	require.NoError(t, in.RegisterCapabilityMapping("fw1", "brief", []string{"creative", "copy", "creative"}))
	caps, ok := in.RequiredCapabilities("fw1", "brief")
	require.True(t, ok)
	assert.Equal(t, []string{"creative", "copy"}, caps)

	require.NoError(t, in.RegisterCapabilityMapping("fw1", "brief", []string{"strategy"}))
	caps, _ = in.RequiredCapabilities("fw1", "brief")
	assert.Equal(t, []string{"strategy"}, caps)

	assert.ErrorIs(t, in.RegisterCapabilityMapping("", "brief", nil), ErrInvalidIdentifier)
	assert.ErrorIs(t, in.RegisterHandler("fw1", "", func(context.Context, api.ExecutionContext) (api.Result, error) {
		return api.Result{}, nil
	}), ErrInvalidIdentifier)
	assert.Error(t, in.RegisterHandler("fw1", "brief", nil))
}

func TestPrepareExecutionContext(t *testing.T) {
	in := New(newRepo(t))

	t.Run("ready", func(t *testing.T) {
		input := map[string]any{"product": "roost", "budget": 100, "extra": true}
		ec, err := in.PrepareExecutionContext("fw1", "brief", input)
		require.NoError(t, err)
		assert.Equal(t, api.ContextReady, ec.Status)
		assert.True(t, ec.Ready())
		assert.Equal(t, "Brief", ec.ActivityName)
		assert.Equal(t, []string{"tone"}, ec.OptionalInputs)
		assert.Equal(t, true, ec.Inputs["extra"])

		ec.Inputs["product"] = "changed"
		assert.Equal(t, "roost", input["product"])
	})

	t.Run("incomplete", func(t *testing.T) {
		ec, err := in.PrepareExecutionContext("fw1", "brief", map[string]any{"budget": 100})
		require.NoError(t, err)
		assert.Equal(t, api.ContextIncompleteInputs, ec.Status)
		assert.Equal(t, []string{"product"}, ec.MissingInputs)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := in.PrepareExecutionContext("fw1", "nope", nil)
		assert.ErrorIs(t, err, ErrActivityNotFound)
		_, err = in.PrepareExecutionContext("nope", "brief", nil)
		assert.ErrorIs(t, err, ErrActivityNotFound)
	})

	t.Run("invalid ids", func(t *testing.T) {
		_, err := in.PrepareExecutionContext("", "", nil)
		assert.ErrorIs(t, err, ErrInvalidIdentifier)
	})
}

func TestExecuteActivity(t *testing.T) {
	ctx := context.Background()
	ready := map[string]any{"product": "roost", "budget": 100}

	t.Run("handler takes precedence over agent", func(t *testing.T) {
		in := New(newRepo(t))
		require.NoError(t, in.RegisterHandler("fw1", "brief", func(_ context.Context, ec api.ExecutionContext) (api.Result, error) {
			return api.Succeeded("", types.ContextVars{"brief": "about " + ec.Inputs["product"].(string)}), nil
		}))

		res, err := in.ExecuteActivity(ctx, "fw1", "brief", ready, api.Bind(agent.Echo("x")))
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, "brief", res.ActivityID)
		assert.Equal(t, "about roost", res.Outputs["brief"])
		assert.Empty(t, res.AgentID)
	})

	t.Run("handler error", func(t *testing.T) {
		in := New(newRepo(t))
		require.NoError(t, in.RegisterHandler("fw1", "publish", func(context.Context, api.ExecutionContext) (api.Result, error) {
			return api.Result{}, errors.New("cms down")
		}))
		res, err := in.ExecuteActivity(ctx, "fw1", "publish", nil, nil)
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, api.ReasonHandlerError, res.Reason)
		assert.Equal(t, "cms down", res.Error)
	})

	t.Run("handler panic", func(t *testing.T) {
		in := New(newRepo(t))
		require.NoError(t, in.RegisterHandler("fw1", "publish", func(context.Context, api.ExecutionContext) (api.Result, error) {
			panic("boom")
		}))
		res, err := in.ExecuteActivity(ctx, "fw1", "publish", nil, nil)
		require.NoError(t, err)
		assert.Equal(t, api.ReasonHandlerError, res.Reason)
		assert.Contains(t, res.Error, "boom")
	})

	t.Run("agent with capabilities", func(t *testing.T) {
		in := New(newRepo(t))
		require.NoError(t, in.RegisterCapabilityMapping("fw1", "brief", []string{"creative"}))
		res, err := in.ExecuteActivity(ctx, "fw1", "brief", ready, api.Bind(agent.Echo("x", "creative", "copy")))
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, "x", res.AgentID)
		assert.Equal(t, "roost", res.Outputs["product"])
	})

	t.Run("agent missing capabilities", func(t *testing.T) {
		in := New(newRepo(t))
		require.NoError(t, in.RegisterCapabilityMapping("fw1", "brief", []string{"creative", "legal"}))
		res, err := in.ExecuteActivity(ctx, "fw1", "brief", ready, api.Bind(agent.Echo("x", "creative")))
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, api.ReasonMissingCapabilities, res.Reason)
		assert.Equal(t, []string{"legal"}, res.MissingCapabilities)
	})

	t.Run("generic executor fallback", func(t *testing.T) {
		in := New(newRepo(t))
		a := agent.New(agent.ID("g"), agent.OnExecute(func(_ context.Context, ec api.ExecutionContext) (api.Result, error) {
			return api.Succeeded(ec.ActivityID, types.ContextVars{"generic": true}), nil
		}))
		res, err := in.ExecuteActivity(ctx, "fw1", "publish", nil, api.Bind(a))
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, true, res.Outputs["generic"])
	})

	t.Run("agent without executor", func(t *testing.T) {
		in := New(newRepo(t))
		res, err := in.ExecuteActivity(ctx, "fw1", "publish", nil, api.Bind(agent.New(agent.ID("listener"))))
		require.NoError(t, err)
		assert.Equal(t, api.ReasonNoExecutor, res.Reason)
		assert.Equal(t, "listener", res.AgentID)
	})

	t.Run("agent error", func(t *testing.T) {
		in := New(newRepo(t))
		a := agent.New(agent.ID("bad"), agent.OnActivity(func(context.Context, string, api.ExecutionContext) (api.Result, error) {
			return api.Result{}, errors.New("no budget")
		}))
		res, err := in.ExecuteActivity(ctx, "fw1", "publish", nil, api.Bind(a))
		require.NoError(t, err)
		assert.Equal(t, api.ReasonAgentError, res.Reason)
		assert.Equal(t, "no budget", res.Error)
		assert.Equal(t, "publish", res.ActivityID)
	})

	t.Run("no handler or agent", func(t *testing.T) {
		in := New(newRepo(t))
		res, err := in.ExecuteActivity(ctx, "fw1", "publish", nil, nil)
		require.NoError(t, err)
		assert.Equal(t, api.ReasonNoHandlerOrAgent, res.Reason)
	})

	t.Run("incomplete inputs short circuit", func(t *testing.T) {
		in := New(newRepo(t))
		called := false
		require.NoError(t, in.RegisterHandler("fw1", "brief", func(context.Context, api.ExecutionContext) (api.Result, error) {
			called = true
			return api.Succeeded("brief", nil), nil
		}))
		res, err := in.ExecuteActivity(ctx, "fw1", "brief", map[string]any{"product": "roost"}, nil)
		require.NoError(t, err)
		assert.False(t, called)
		assert.Equal(t, api.ReasonIncompleteInputs, res.Reason)
		assert.Equal(t, []string{"budget"}, res.MissingInputs)
	})

	t.Run("activity not found", func(t *testing.T) {
		in := New(newRepo(t))
		res, err := in.ExecuteActivity(ctx, "fw1", "ghost", nil, nil)
		require.NoError(t, err)
		assert.Equal(t, api.ReasonActivityNotFound, res.Reason)
		assert.Equal(t, "ghost", res.ActivityID)
	})

	t.Run("invalid identifiers fail fast", func(t *testing.T) {
		in := New(newRepo(t))
		_, err := in.ExecuteActivity(ctx, "fw1", "", nil, nil)
		assert.ErrorIs(t, err, ErrInvalidIdentifier)
	})
}
