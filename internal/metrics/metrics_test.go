package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProtocol(t *testing.T) {
	t.Run("unregistered", func(t *testing.T) {
		m, err := NewProtocol(nil)
		require.NoError(t, err)
		m.MessagesSent.WithLabelValues("request", "high").Inc()
		assert.Equal(t, float64(1), testutil.ToFloat64(m.MessagesSent.WithLabelValues("request", "high")))
	})

	t.Run("registered", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		m, err := NewProtocol(reg)
		require.NoError(t, err)
		m.QueueDepth.Set(3)
		m.MessagesProcessed.WithLabelValues("delivered").Inc()

		count, err := testutil.GatherAndCount(reg, "roost_queue_depth", "roost_messages_processed_total")
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("registering twice shares collectors", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		first, err := NewProtocol(reg)
		require.NoError(t, err)
		second, err := NewProtocol(reg)
		require.NoError(t, err)

		second.MessagesProcessed.WithLabelValues("failed").Inc()
		assert.Equal(t, float64(1), testutil.ToFloat64(first.MessagesProcessed.WithLabelValues("failed")))
	})
}

func TestNewWorkflow(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewWorkflow(reg)
	require.NoError(t, err)
	m.Activities.WithLabelValues("failed").Inc()
	m.Activities.WithLabelValues("failed").Inc()
	assert.Equal(t, float64(2), testutil.ToFloat64(m.Activities.WithLabelValues("failed")))
}
