package protocol

import (
	"slices"

	"github.com/casualjim/roost/messages"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Conversation is a snapshot of a conversation thread.
type Conversation struct {
	ID string `json:"id"`
	// Participants in the order they first appeared as sender or recipient.
	Participants []string `json:"participants"`
	// MessageIDs in send order.
	MessageIDs []string `json:"message_ids"`
}

type conversation struct {
	participants *orderedmap.OrderedMap[string, struct{}]
	messageIDs   []string
}

// recordLocked appends msg to the history and its conversation. Callers hold p.mu.
func (p *Protocol) recordLocked(msg messages.Message) {
	conv, ok := p.conversations[msg.ConversationID]
	if !ok {
		conv = &conversation{participants: orderedmap.New[string, struct{}]()}
		p.conversations[msg.ConversationID] = conv
	}
	conv.participants.Set(msg.Sender, struct{}{})
	conv.participants.Set(msg.Recipient, struct{}{})
	conv.messageIDs = append(conv.messageIDs, msg.ID)

	p.history = append(p.history, msg)
	if p.historyLimit > 0 && len(p.history) > p.historyLimit {
		p.history = slices.Clone(p.history[len(p.history)-p.historyLimit:])
	}
}

// Conversation returns the participants and message ids of a conversation.
func (p *Protocol) Conversation(id string) (Conversation, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	conv, ok := p.conversations[id]
	if !ok {
		return Conversation{}, false
	}
	out := Conversation{
		ID:           id,
		Participants: make([]string, 0, conv.participants.Len()),
		MessageIDs:   slices.Clone(conv.messageIDs),
	}
	for pair := conv.participants.Oldest(); pair != nil; pair = pair.Next() {
		out.Participants = append(out.Participants, pair.Key)
	}
	return out, true
}

// ConversationHistory returns the messages of a conversation still in the
// global history, in send order. Unknown conversations yield an empty slice.
func (p *Protocol) ConversationHistory(id string) []messages.Message {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.conversations[id]; !ok {
		return []messages.Message{}
	}
	out := make([]messages.Message, 0)
	for _, msg := range p.history {
		if msg.ConversationID == id {
			out = append(out, msg)
		}
	}
	return out
}

// History returns the most recent limit messages in send order. A limit <= 0 returns everything.
func (p *Protocol) History(limit int) []messages.Message {
	p.mu.Lock()
	defer p.mu.Unlock()

	if limit <= 0 || limit > len(p.history) {
		limit = len(p.history)
	}
	return slices.Clone(p.history[len(p.history)-limit:])
}

// ClearConversation drops a conversation and its messages from the history.
// Delivery confirmations are kept.
func (p *Protocol) ClearConversation(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.conversations[id]; !ok {
		return false
	}
	delete(p.conversations, id)
	p.history = slices.DeleteFunc(p.history, func(m messages.Message) bool {
		return m.ConversationID == id
	})
	return true
}

// Conversations returns the ids of the known conversations, sorted.
func (p *Protocol) Conversations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]string, 0, len(p.conversations))
	for id := range p.conversations {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
