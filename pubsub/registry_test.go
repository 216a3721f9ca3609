package pubsub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryTopics(t *testing.T) {
	r := NewRegistry()

	t.Run("register topic", func(t *testing.T) {
		topic, err := r.RegisterTopic("campaigns", "campaign lifecycle")
		require.NoError(t, err)
		assert.Equal(t, "campaigns", topic.Name)
		assert.Equal(t, "campaign lifecycle", topic.Description)
	})

	t.Run("re-register keeps description unless given", func(t *testing.T) {
		_, err := r.RegisterTopic("campaigns", "")
		require.NoError(t, err)
		topic, ok := r.Topic("campaigns")
		require.True(t, ok)
		assert.Equal(t, "campaign lifecycle", topic.Description)

		_, err = r.RegisterTopic("campaigns", "updated")
		require.NoError(t, err)
		topic, _ = r.Topic("campaigns")
		assert.Equal(t, "updated", topic.Description)
	})

	t.Run("empty name", func(t *testing.T) {
		_, err := r.RegisterTopic("", "x")
		assert.Error(t, err)
	})

	t.Run("topics listed in registration order", func(t *testing.T) {
		_, _ = r.RegisterTopic("metrics", "")
		_, _ = r.RegisterTopic("alerts", "")
		var names []string
		for _, ti := range r.Topics() {
			names = append(names, ti.Name)
		}
		assert.Equal(t, []string{"campaigns", "metrics", "alerts"}, names)
		assert.Equal(t, 3, r.Len())
	})
}

func TestRegistrySubscriptions(t *testing.T) {
	t.Run("subscribe auto-creates topic", func(t *testing.T) {
		r := NewRegistry()
		sub, err := r.Subscribe("agent-1", "fresh", nil)
		require.NoError(t, err)
		assert.NotEmpty(t, sub.ID)
		assert.Equal(t, "fresh", sub.Topic)
		assert.Equal(t, "agent-1", sub.SubscriberID)

		_, ok := r.Topic("fresh")
		assert.True(t, ok)
		require.Len(t, r.Topics(), 1)
		assert.Equal(t, 1, r.Topics()[0].Subscribers)
	})

	t.Run("validation", func(t *testing.T) {
		r := NewRegistry()
		_, err := r.Subscribe("", "t", nil)
		assert.Error(t, err)
		_, err = r.Subscribe("a", "", nil)
		assert.Error(t, err)
	})

	t.Run("filter is copied", func(t *testing.T) {
		r := NewRegistry()
		f := Filter{"kind": "a"}
		sub, err := r.Subscribe("agent", "t", f)
		require.NoError(t, err)
		f["kind"] = "b"
		assert.Equal(t, "a", sub.Filter["kind"])
		assert.Equal(t, "a", r.Subscriptions("t")[0].Filter["kind"])
	})

	t.Run("unsubscribe last drops list but keeps topic", func(t *testing.T) {
		r := NewRegistry()
		_, _ = r.RegisterTopic("t", "described")
		s1, _ := r.Subscribe("a", "t", nil)
		s2, _ := r.Subscribe("b", "t", nil)

		_, err := r.Unsubscribe(s1.ID)
		require.NoError(t, err)
		assert.True(t, r.HasSubscriptionList("t"))
		assert.Len(t, r.Subscriptions("t"), 1)

		removed, err := r.Unsubscribe(s2.ID)
		require.NoError(t, err)
		assert.Equal(t, "b", removed.SubscriberID)
		assert.False(t, r.HasSubscriptionList("t"))

		topic, ok := r.Topic("t")
		require.True(t, ok)
		assert.Equal(t, "described", topic.Description)
	})

	t.Run("unknown subscription", func(t *testing.T) {
		r := NewRegistry()
		_, err := r.Unsubscribe("nope")
		assert.ErrorIs(t, err, ErrUnknownSubscription)
	})

	t.Run("unsubscribe all", func(t *testing.T) {
		r := NewRegistry()
		_, _ = r.Subscribe("a", "t1", nil)
		_, _ = r.Subscribe("a", "t2", nil)
		_, _ = r.Subscribe("b", "t1", nil)
		assert.Equal(t, 2, r.UnsubscribeAll("a"))
		assert.Len(t, r.Subscriptions("t1"), 1)
		assert.False(t, r.HasSubscriptionList("t2"))
	})
}

func TestRegistryMatch(t *testing.T) {
	r := NewRegistry()
	all, _ := r.Subscribe("all", "events", nil)
	launches, _ := r.Subscribe("launches", "events", Filter{"kind": "launch"})
	_, _ = r.Subscribe("recaps", "events", Filter{"kind": "recap"})
	_, _ = r.Subscribe("other", "elsewhere", nil)

	matched := r.Match("events", map[string]any{"kind": "launch"})
	require.Len(t, matched, 2)
	assert.Equal(t, all.ID, matched[0].ID)
	assert.Equal(t, launches.ID, matched[1].ID)

	assert.Len(t, r.Match("events", map[string]any{}), 1)
	assert.Empty(t, r.Match("unknown", map[string]any{"kind": "launch"}))
}
