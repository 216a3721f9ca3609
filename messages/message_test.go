package messages

import (
	"testing"
	"time"

	"github.com/go-openapi/strfmt"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestBuilder(t *testing.T) {
	t.Run("request with defaults", func(t *testing.T) {
		msg := New().From("a").To("b").Request(map[string]any{"k": "v"})
		assert.NotEmpty(t, msg.ID)
		assert.Equal(t, "a", msg.Sender)
		assert.Equal(t, "b", msg.Recipient)
		assert.Equal(t, TypeRequest, msg.Type)
		assert.Equal(t, PriorityMedium, msg.Priority)
		assert.False(t, time.Time(msg.Timestamp).IsZero())
		assert.Equal(t, "v", msg.Content["k"])
	})

	t.Run("message types", func(t *testing.T) {
		b := New().From("a").To("b")
		assert.Equal(t, TypeResponse, b.Response(nil).Type)
		assert.Equal(t, TypeNotification, b.Notification(nil).Type)
		assert.Equal(t, TypeError, b.Error(nil).Type)
		assert.NotNil(t, b.Error(nil).Content, "nil content becomes an empty object")
	})

	t.Run("ids are unique", func(t *testing.T) {
		assert.NotEqual(t, New().Request(nil).ID, New().Request(nil).ID)
	})
}

func TestReply(t *testing.T) {
	orig := New().From("a").To("b").InConversation("conv-1").WithPriority(PriorityHigh).WithTrace("t1").Request(nil)
	reply := Reply(orig, map[string]any{"ok": true})

	assert.Equal(t, "b", reply.Sender)
	assert.Equal(t, "a", reply.Recipient)
	assert.Equal(t, "conv-1", reply.ConversationID)
	assert.Equal(t, TypeResponse, reply.Type)
	assert.Equal(t, PriorityHigh, reply.Priority)
	assert.Equal(t, "t1", reply.TraceID)
	assert.NotEqual(t, orig.ID, reply.ID)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		msg     Message
		wantErr []string
	}{
		{name: "valid", msg: Message{Sender: "a", Recipient: "b"}},
		{name: "missing sender", msg: Message{Recipient: "b"}, wantErr: []string{"sender is required"}},
		{name: "missing both", msg: Message{}, wantErr: []string{"sender is required", "recipient is required"}},
		{name: "bad type", msg: Message{Sender: "a", Recipient: "b", Type: "shout"}, wantErr: []string{`unknown message type "shout"`}},
		{name: "bad priority", msg: Message{Sender: "a", Recipient: "b", Priority: "urgent"}, wantErr: []string{`unknown message priority "urgent"`}},
		{name: "negative ttl", msg: Message{Sender: "a", Recipient: "b", TTL: -time.Second}, wantErr: []string{"ttl must not be negative"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	content := map[string]any{"k": "v"}
	msg := Message{Sender: "a", Recipient: "b", Content: content}.Normalize()

	assert.NotEmpty(t, msg.ID)
	assert.NotEmpty(t, msg.ConversationID)
	assert.Equal(t, TypeRequest, msg.Type)
	assert.Equal(t, PriorityMedium, msg.Priority)
	assert.False(t, time.Time(msg.Timestamp).IsZero())

	content["k"] = "changed"
	assert.Equal(t, "v", msg.Content["k"], "normalized content is detached from the caller's map")

	kept := Message{ID: "m1", ConversationID: "c1"}.Normalize()
	assert.Equal(t, "m1", kept.ID)
	assert.Equal(t, "c1", kept.ConversationID)
}

func TestExpired(t *testing.T) {
	sent := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	msg := Message{Timestamp: strfmt.DateTime(sent), TTL: time.Second}

	assert.False(t, msg.Expired(sent))
	assert.False(t, msg.Expired(sent.Add(time.Second)), "expiry is strictly after timestamp+ttl")
	assert.True(t, msg.Expired(sent.Add(2*time.Second)))
	assert.False(t, Message{Timestamp: strfmt.DateTime(sent)}.Expired(sent.Add(time.Hour)), "no ttl never expires")
}

func TestPriorityRank(t *testing.T) {
	assert.Equal(t, 0, PriorityHigh.Rank())
	assert.Equal(t, 1, PriorityMedium.Rank())
	assert.Equal(t, 2, PriorityLow.Rank())
	assert.Equal(t, 1, Priority("").Rank())
}

func TestMessageJSON(t *testing.T) {
	ts := strfmt.DateTime(time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC))
	msg := Message{
		ID:             "m1",
		Sender:         "a",
		Recipient:      "b",
		ConversationID: "c1",
		Timestamp:      ts,
		Type:           TypeNotification,
		Priority:       PriorityHigh,
		TTL:            30 * time.Second,
		Content:        map[string]any{"topic": "news", "count": 2},
		TraceID:        "trace",
	}

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	doc := gjson.ParseBytes(data)
	assert.Equal(t, "notification", doc.Get("type").String())
	assert.Equal(t, "high", doc.Get("priority").String())
	assert.Equal(t, float64(30), doc.Get("ttl").Float())
	assert.Equal(t, "news", doc.Get("content.topic").String())

	var decoded Message
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, msg.ID, decoded.ID)
	assert.Equal(t, msg.Sender, decoded.Sender)
	assert.Equal(t, msg.Recipient, decoded.Recipient)
	assert.Equal(t, msg.ConversationID, decoded.ConversationID)
	assert.Equal(t, msg.Type, decoded.Type)
	assert.Equal(t, msg.Priority, decoded.Priority)
	assert.Equal(t, msg.TTL, decoded.TTL)
	assert.Equal(t, msg.TraceID, decoded.TraceID)
	assert.True(t, time.Time(ts).Equal(time.Time(decoded.Timestamp)))
	assert.Equal(t, float64(2), decoded.Content["count"])

	t.Run("rejects non-object content", func(t *testing.T) {
		var m Message
		err := json.Unmarshal([]byte(`{"sender":"a","recipient":"b","content":[1,2]}`), &m)
		assert.Error(t, err)
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		var m Message
		err := json.Unmarshal([]byte(`{"sender":"a","recipient":"b","type":"shout"}`), &m)
		assert.Error(t, err)
	})
}

func TestDeliveryConfirmation(t *testing.T) {
	msg := New().From("a").To("b").Request(nil)
	pending := Pending(msg)
	assert.Equal(t, msg.ID, pending.MessageID)
	assert.Equal(t, "b", pending.RecipientID)
	assert.Equal(t, StatusPending, pending.Status)
	assert.False(t, pending.Status.Terminal())

	failed := pending.Resolve(StatusFailed, "recipient not found")
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Equal(t, "recipient not found", failed.Error)
	assert.True(t, failed.Status.Terminal())
	assert.Equal(t, StatusPending, pending.Status, "resolve returns a copy")
}
