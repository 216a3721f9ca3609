package messages

import (
	"fmt"
	"time"

	"github.com/go-openapi/strfmt"
	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// MarshalJSON encodes the message with snake_case keys. The ttl is written in seconds.
func (m Message) MarshalJSON() ([]byte, error) {
	result := []byte(`{}`)
	var err error

	fields := []struct {
		key   string
		value string
	}{
		{"id", m.ID},
		{"sender", m.Sender},
		{"recipient", m.Recipient},
		{"conversation_id", m.ConversationID},
		{"type", string(m.Type)},
		{"priority", string(m.Priority)},
	}
	for _, f := range fields {
		if result, err = sjson.SetBytes(result, f.key, f.value); err != nil {
			return nil, err
		}
	}

	if !time.Time(m.Timestamp).IsZero() {
		if result, err = sjson.SetBytes(result, "timestamp", m.Timestamp.String()); err != nil {
			return nil, err
		}
	}
	if m.TTL > 0 {
		if result, err = sjson.SetBytes(result, "ttl", m.TTL.Seconds()); err != nil {
			return nil, err
		}
	}

	content := m.Content
	if content == nil {
		content = map[string]any{}
	}
	contentBytes, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal content: %w", err)
	}
	if result, err = sjson.SetRawBytes(result, "content", contentBytes); err != nil {
		return nil, err
	}

	if m.TraceID != "" {
		if result, err = sjson.SetBytes(result, "trace_id", m.TraceID); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// UnmarshalJSON decodes a message produced by MarshalJSON.
func (m *Message) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid json: %s", data)
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return fmt.Errorf("message must be a json object")
	}

	var out Message
	out.ID = doc.Get("id").String()
	out.Sender = doc.Get("sender").String()
	out.Recipient = doc.Get("recipient").String()
	out.ConversationID = doc.Get("conversation_id").String()
	out.TraceID = doc.Get("trace_id").String()

	if tpe := doc.Get("type"); tpe.Exists() && tpe.String() != "" {
		t, err := ParseType(tpe.String())
		if err != nil {
			return err
		}
		out.Type = t
	}
	if prio := doc.Get("priority"); prio.Exists() && prio.String() != "" {
		p, err := ParsePriority(prio.String())
		if err != nil {
			return err
		}
		out.Priority = p
	}
	if ts := doc.Get("timestamp"); ts.Exists() {
		parsed, err := strfmt.ParseDateTime(ts.String())
		if err != nil {
			return fmt.Errorf("invalid timestamp: %w", err)
		}
		out.Timestamp = parsed
	}
	if ttl := doc.Get("ttl"); ttl.Exists() {
		out.TTL = time.Duration(ttl.Float() * float64(time.Second))
	}

	content := doc.Get("content")
	switch {
	case !content.Exists() || content.Type == gjson.Null:
		out.Content = map[string]any{}
	case content.IsObject():
		out.Content = make(map[string]any)
		if err := json.Unmarshal([]byte(content.Raw), &out.Content); err != nil {
			return fmt.Errorf("invalid content: %w", err)
		}
	default:
		return fmt.Errorf("content must be a json object")
	}

	*m = out
	return nil
}
