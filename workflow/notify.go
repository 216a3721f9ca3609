package workflow

import (
	"log/slog"

	"github.com/casualjim/roost/pkg/slogx"
	"github.com/casualjim/roost/protocol"
	"github.com/fogfish/opts"
)

// DefaultTopic is the topic workflow notifications are published on.
const DefaultTopic = "workflow.activity"

// Publisher is the part of the protocol the notifier needs.
type Publisher interface {
	Publish(sender, topic string, content map[string]any, options ...protocol.PublishOption) (protocol.PublishResult, error)
}

// notifier publishes progress notifications. It never executes anything:
// messages are only enqueued and delivered whenever the protocol is drained.
type notifier struct {
	publisher Publisher
	sender    string
	topic     string
	logger    *slog.Logger
}

// WithNotifier publishes a notification on topic for every executed activity
// and every completed workflow. An empty topic uses DefaultTopic.
func WithNotifier(publisher Publisher, senderID, topic string) opts.Option[Engine] {
	return opts.Type[Engine](func(e *Engine) error {
		if topic == "" {
			topic = DefaultTopic
		}
		if senderID == "" {
			senderID = "workflow-engine"
		}
		e.notifier = &notifier{publisher: publisher, sender: senderID, topic: topic}
		return nil
	})
}

func (n *notifier) activity(inst *instance, rec ActivityRecord) {
	if n == nil {
		return
	}
	_, _, pct := inst.progress()
	content := map[string]any{
		"event":       "activity_" + string(rec.State),
		"workflow_id": inst.id,
		"activity_id": rec.Activity.ID,
		"state":       string(rec.State),
		"agent_id":    rec.AgentID,
		"progress":    pct,
	}
	if rec.Result != nil && rec.Result.Reason != "" {
		content["reason"] = rec.Result.Reason
	}
	n.publish(inst.id, content)
}

func (n *notifier) completed(inst *instance) {
	if n == nil {
		return
	}
	completed, failed, _ := inst.progress()
	n.publish(inst.id, map[string]any{
		"event":       "workflow_completed",
		"workflow_id": inst.id,
		"completed":   completed,
		"failed":      failed,
	})
}

func (n *notifier) publish(workflowID string, content map[string]any) {
	_, err := n.publisher.Publish(n.sender, n.topic, content, protocol.WithConversation(workflowID))
	if err != nil {
		logger := n.logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("failed to publish workflow notification", slogx.WorkflowID(workflowID), slogx.Error(err))
	}
}
