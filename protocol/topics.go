package protocol

import (
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/casualjim/roost/messages"
	"github.com/casualjim/roost/pkg/slogx"
	"github.com/casualjim/roost/pkg/uuidx"
	"github.com/casualjim/roost/pubsub"
	"github.com/fogfish/opts"
)

type publishOptions struct {
	conversationID string
	priority       messages.Priority
	messageType    messages.Type
	ttl            time.Duration
}

var (
	// WithConversation puts every fan-out message in the given conversation.
	// Without it one fresh conversation is shared by all messages of the publish.
	WithConversation = opts.ForName[publishOptions, string]("conversationID")
	WithPriority     = opts.ForName[publishOptions, messages.Priority]("priority")
	// WithType overrides the default notification type.
	WithType = opts.ForName[publishOptions, messages.Type]("messageType")
	WithTTL  = opts.ForName[publishOptions, time.Duration]("ttl")
)

// PublishOption configures a single Publish call.
type PublishOption = opts.Option[publishOptions]

// PublishResult describes the fan-out of a publish.
type PublishResult struct {
	// Delivered is the number of subscribers a message was enqueued for.
	Delivered  int      `json:"delivered"`
	MessageIDs []string `json:"message_ids"`
}

// RegisterTopic creates a topic or updates its description.
func (p *Protocol) RegisterTopic(name, description string) (pubsub.Topic, error) {
	return p.topics.RegisterTopic(name, description)
}

// Subscribe subscribes agentID to topic and returns the subscription id.
// The topic is created when it doesn't exist yet.
func (p *Protocol) Subscribe(agentID, topic string, filter pubsub.Filter) (string, error) {
	sub, err := p.topics.Subscribe(agentID, topic, filter)
	if err != nil {
		return "", err
	}
	p.logger.Debug("subscribed", slogx.AgentID(agentID), slogx.Topic(topic), slog.String("subscription_id", sub.ID))
	return sub.ID, nil
}

// Unsubscribe removes a subscription and reports whether it existed.
func (p *Protocol) Unsubscribe(subscriptionID string) bool {
	_, err := p.topics.Unsubscribe(subscriptionID)
	return err == nil
}

// Topics lists registered topics in registration order.
func (p *Protocol) Topics() []pubsub.TopicInfo {
	return p.topics.Topics()
}

// Subscriptions lists the subscriptions on topic in subscription order.
func (p *Protocol) Subscriptions(topic string) []pubsub.Subscription {
	return p.topics.Subscriptions(topic)
}

// Publish sends a copy of content, annotated with the topic name, to every
// subscriber of topic whose filter matches content. Publishing to a topic
// without matching subscribers is not an error.
func (p *Protocol) Publish(sender, topic string, content map[string]any, options ...PublishOption) (PublishResult, error) {
	if sender == "" || topic == "" {
		return PublishResult{}, fmt.Errorf("%w: sender and topic are required", messages.ErrValidation)
	}
	o := publishOptions{
		priority:    messages.PriorityMedium,
		messageType: messages.TypeNotification,
	}
	if err := opts.Apply(&o, options); err != nil {
		return PublishResult{}, err
	}
	if o.conversationID == "" {
		o.conversationID = uuidx.NewString()
	}
	if content == nil {
		content = map[string]any{}
	}

	subs := p.topics.Match(topic, content)
	p.metrics.PublishFanout.Observe(float64(len(subs)))

	result := PublishResult{MessageIDs: make([]string, 0, len(subs))}
	for _, sub := range subs {
		body := maps.Clone(content)
		body["topic"] = topic
		id, err := p.Send(messages.Message{
			Sender:         sender,
			Recipient:      sub.SubscriberID,
			ConversationID: o.conversationID,
			Type:           o.messageType,
			Priority:       o.priority,
			TTL:            o.ttl,
			Content:        body,
		})
		if err != nil {
			return result, fmt.Errorf("publish to %s: %w", sub.SubscriberID, err)
		}
		result.Delivered++
		result.MessageIDs = append(result.MessageIDs, id)
	}
	return result, nil
}
