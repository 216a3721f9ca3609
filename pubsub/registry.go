package pubsub

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/casualjim/roost/pkg/uuidx"
	"github.com/go-openapi/strfmt"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ErrUnknownSubscription is returned when unsubscribing an id that is not registered.
var ErrUnknownSubscription = errors.New("unknown subscription")

// Topic is the metadata of a registered topic.
type Topic struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	CreatedAt   strfmt.DateTime `json:"created_at"`
}

// TopicInfo is a topic together with its current number of subscriptions.
type TopicInfo struct {
	Topic
	Subscribers int `json:"subscribers"`
}

// Subscription binds a subscriber to a topic.
type Subscription struct {
	ID           string `json:"id"`
	Topic        string `json:"topic"`
	SubscriberID string `json:"subscriber_id"`
	Filter       Filter `json:"filter,omitempty"`
}

// Registry is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	topics *orderedmap.OrderedMap[string, Topic]
	// subscriptions per topic, in subscription order; a topic without subscribers has no entry
	subscriptions map[string][]Subscription
	byID          map[string]Subscription
}

func NewRegistry() *Registry {
	return &Registry{
		topics:        orderedmap.New[string, Topic](),
		subscriptions: make(map[string][]Subscription),
		byID:          make(map[string]Subscription),
	}
}

// RegisterTopic creates the topic or updates its description when it exists.
// An empty description never overwrites an existing one.
func (r *Registry) RegisterTopic(name, description string) (Topic, error) {
	if name == "" {
		return Topic{}, errors.New("topic name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registerLocked(name, description), nil
}

func (r *Registry) registerLocked(name, description string) Topic {
	if existing, ok := r.topics.Get(name); ok {
		if description != "" && existing.Description != description {
			existing.Description = description
			r.topics.Set(name, existing)
		}
		return existing
	}
	topic := Topic{Name: name, Description: description, CreatedAt: strfmt.DateTime(time.Now())}
	r.topics.Set(name, topic)
	return topic
}

// Subscribe adds a subscription, creating the topic when it is unknown.
func (r *Registry) Subscribe(subscriberID, topic string, filter Filter) (Subscription, error) {
	if subscriberID == "" {
		return Subscription{}, errors.New("subscriber id is required")
	}
	if topic == "" {
		return Subscription{}, errors.New("topic name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.registerLocked(topic, "")
	sub := Subscription{
		ID:           uuidx.Prefixed("sub"),
		Topic:        topic,
		SubscriberID: subscriberID,
	}
	if len(filter) > 0 {
		sub.Filter = maps.Clone(filter)
	}
	r.subscriptions[topic] = append(r.subscriptions[topic], sub)
	r.byID[sub.ID] = sub
	return sub, nil
}

// Unsubscribe removes a subscription. When it was the topic's last one the
// topic's subscription list is dropped; the topic itself stays registered.
func (r *Registry) Unsubscribe(subscriptionID string) (Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.byID[subscriptionID]
	if !ok {
		return Subscription{}, fmt.Errorf("%w: %s", ErrUnknownSubscription, subscriptionID)
	}
	delete(r.byID, subscriptionID)

	remaining := slices.DeleteFunc(r.subscriptions[sub.Topic], func(s Subscription) bool {
		return s.ID == subscriptionID
	})
	if len(remaining) == 0 {
		delete(r.subscriptions, sub.Topic)
	} else {
		r.subscriptions[sub.Topic] = remaining
	}
	return sub, nil
}

// UnsubscribeAll removes every subscription held by subscriberID and returns how many were removed.
func (r *Registry) UnsubscribeAll(subscriberID string) int {
	r.mu.RLock()
	var ids []string
	for id, sub := range r.byID {
		if sub.SubscriberID == subscriberID {
			ids = append(ids, id)
		}
	}
	r.mu.RUnlock()

	removed := 0
	for _, id := range ids {
		if _, err := r.Unsubscribe(id); err == nil {
			removed++
		}
	}
	return removed
}

// Match returns the subscriptions on topic whose filter matches content, in subscription order.
func (r *Registry) Match(topic string, content map[string]any) []Subscription {
	r.mu.RLock()
	subs := slices.Clone(r.subscriptions[topic])
	r.mu.RUnlock()

	matched := subs[:0]
	for _, sub := range subs {
		if sub.Filter.Matches(content) {
			matched = append(matched, sub)
		}
	}
	return matched
}

// Topic returns the metadata of a registered topic.
func (r *Registry) Topic(name string) (Topic, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.topics.Get(name)
}

// Topics lists registered topics in registration order.
func (r *Registry) Topics() []TopicInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]TopicInfo, 0, r.topics.Len())
	for pair := r.topics.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, TopicInfo{Topic: pair.Value, Subscribers: len(r.subscriptions[pair.Key])})
	}
	return out
}

// Subscriptions returns a copy of the subscriptions on topic.
func (r *Registry) Subscriptions(topic string) []Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.subscriptions[topic])
}

// HasSubscriptionList reports whether topic currently has a subscription list entry.
func (r *Registry) HasSubscriptionList(topic string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.subscriptions[topic]
	return ok
}

// Len returns the number of registered topics.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.topics.Len()
}
