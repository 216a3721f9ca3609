// Package metrics holds the prometheus collectors of the protocol and the workflow engine.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "roost"

// Protocol contains the messaging metrics.
type Protocol struct {
	MessagesSent      *prometheus.CounterVec
	MessagesProcessed *prometheus.CounterVec
	QueueDepth        prometheus.Gauge
	PublishFanout     prometheus.Histogram
	DeliveryDuration  prometheus.Histogram
}

// NewProtocol creates the protocol metrics and registers them with reg.
// A nil registerer leaves them unregistered, which is what tests and
// embedded protocols that don't expose metrics want.
func NewProtocol(reg prometheus.Registerer) (*Protocol, error) {
	m := &Protocol{
		MessagesSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "messages",
				Name:      "sent_total",
				Help:      "Total number of messages accepted by send",
			},
			[]string{"type", "priority"},
		),
		MessagesProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "messages",
				Name:      "processed_total",
				Help:      "Total number of messages taken off the queue, by terminal status",
			},
			[]string{"status"},
		),
		QueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "queue",
				Name:      "depth",
				Help:      "Number of messages waiting in the queue",
			},
		),
		PublishFanout: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pubsub",
				Name:      "fanout",
				Help:      "Number of subscribers addressed per publish",
				Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
			},
		),
		DeliveryDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "messages",
				Name:      "delivery_duration_seconds",
				Help:      "Time spent inside recipient Receive calls",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}
	if reg == nil {
		return m, nil
	}
	var errs [5]error
	m.MessagesSent, errs[0] = register(reg, m.MessagesSent)
	m.MessagesProcessed, errs[1] = register(reg, m.MessagesProcessed)
	m.QueueDepth, errs[2] = register(reg, m.QueueDepth)
	m.PublishFanout, errs[3] = register(reg, m.PublishFanout)
	m.DeliveryDuration, errs[4] = register(reg, m.DeliveryDuration)
	if err := errors.Join(errs[:]...); err != nil {
		return nil, err
	}
	return m, nil
}

// Workflow contains the workflow engine metrics.
type Workflow struct {
	Workflows  *prometheus.CounterVec
	Activities *prometheus.CounterVec
	Duration   prometheus.Histogram
}

// NewWorkflow creates the engine metrics and registers them with reg when it is not nil.
func NewWorkflow(reg prometheus.Registerer) (*Workflow, error) {
	m := &Workflow{
		Workflows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "workflow",
				Name:      "transitions_total",
				Help:      "Workflow instances entering a status",
			},
			[]string{"status"},
		),
		Activities: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "workflow",
				Name:      "activities_total",
				Help:      "Executed workflow activities by outcome",
			},
			[]string{"status"},
		),
		Duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "workflow",
				Name:      "activity_duration_seconds",
				Help:      "Time spent executing one workflow activity",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}
	if reg == nil {
		return m, nil
	}
	var errs [3]error
	m.Workflows, errs[0] = register(reg, m.Workflows)
	m.Activities, errs[1] = register(reg, m.Activities)
	m.Duration, errs[2] = register(reg, m.Duration)
	if err := errors.Join(errs[:]...); err != nil {
		return nil, err
	}
	return m, nil
}

// register adds c to reg. When an identical collector is already registered the
// existing one is returned so several protocols can share one registry.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(T); ok {
			return existing, nil
		}
	}
	return c, err
}
