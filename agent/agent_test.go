package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/casualjim/roost/api"
	"github.com/casualjim/roost/messages"
	"github.com/casualjim/roost/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("message only", func(t *testing.T) {
		a := New(ID("listener"), Capabilities("news", "news", "weather"))
		assert.Equal(t, "listener", a.ID())
		assert.Equal(t, []string{"news", "weather"}, a.Capabilities())
		assert.Equal(t, api.ExecutesNothing, api.Bind(a).Kind())

		handled, err := a.Receive(context.Background(), messages.New().From("x").To("listener").Request(nil))
		require.NoError(t, err)
		assert.False(t, handled)
	})

	t.Run("message handler", func(t *testing.T) {
		var got messages.Message
		a := New(ID("listener"), OnMessage(func(_ context.Context, msg messages.Message) (bool, error) {
			got = msg
			return true, nil
		}))
		msg := messages.New().From("x").To("listener").Request(map[string]any{"k": 1})
		handled, err := a.Receive(context.Background(), msg)
		require.NoError(t, err)
		assert.True(t, handled)
		assert.Equal(t, msg.ID, got.ID)
	})

	t.Run("generic executor", func(t *testing.T) {
		a := New(ID("worker"), OnExecute(func(_ context.Context, ec api.ExecutionContext) (api.Result, error) {
			return api.Succeeded(ec.ActivityID, types.ContextVars{"done": true}), nil
		}))
		b := api.Bind(a)
		assert.Equal(t, api.ExecutesGeneric, b.Kind())
		res, err := b.Execute(context.Background(), "a1", api.ExecutionContext{ActivityID: "a1"})
		require.NoError(t, err)
		assert.True(t, res.Success)
	})

	t.Run("activity executor wins", func(t *testing.T) {
		a := New(
			ID("worker"),
			OnExecute(func(context.Context, api.ExecutionContext) (api.Result, error) {
				return api.Result{}, errors.New("not this one")
			}),
			OnActivity(func(_ context.Context, activityID string, _ api.ExecutionContext) (api.Result, error) {
				return api.Succeeded(activityID, nil), nil
			}),
		)
		b := api.Bind(a)
		assert.Equal(t, api.ExecutesActivities, b.Kind())
		res, err := b.Execute(context.Background(), "a1", api.ExecutionContext{})
		require.NoError(t, err)
		assert.Equal(t, "a1", res.ActivityID)
	})

	t.Run("requires an id", func(t *testing.T) {
		assert.Panics(t, func() { New() })
	})
}

func TestEcho(t *testing.T) {
	a := Echo("echo", "creative")
	assert.Equal(t, []string{"creative"}, a.Capabilities())

	res, err := api.Bind(a).Execute(context.Background(), "act1", api.ExecutionContext{
		Inputs: types.ContextVars{"brief": "spring"},
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "act1", res.ActivityID)
	assert.Equal(t, types.ContextVars{"brief": "spring"}, res.Outputs)
}

func TestTemplate(t *testing.T) {
	fn, err := Template(map[string]string{
		"headline": "Meet {{.product}}",
		"status":   "drafted",
	})
	require.NoError(t, err)

	res, err := fn(context.Background(), "write", api.ExecutionContext{Inputs: types.ContextVars{"product": "Roost"}})
	require.NoError(t, err)
	assert.Equal(t, types.ContextVars{"headline": "Meet Roost", "status": "drafted"}, res.Outputs)

	t.Run("missing key", func(t *testing.T) {
		_, err := fn(context.Background(), "write", api.ExecutionContext{Inputs: types.ContextVars{}})
		assert.Error(t, err)
	})

	t.Run("bad template", func(t *testing.T) {
		_, err := Template(map[string]string{"x": "{{.broken"})
		assert.Error(t, err)
	})
}
