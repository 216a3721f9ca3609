// Package console renders protocol traffic and workflow reports for terminals.
package console

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/casualjim/roost/messages"
	"github.com/fatih/color"
)

// Tap is an agent that prints every message it receives, one line each.
// Subscribe it to topics to watch them.
type Tap struct {
	id string

	mu sync.Mutex
	w  io.Writer
}

// NewTap creates a tap agent writing to w.
func NewTap(id string, w io.Writer) *Tap {
	return &Tap{id: id, w: w}
}

func (t *Tap) ID() string { return t.id }

func (t *Tap) Capabilities() []string { return nil }

func (t *Tap) Receive(_ context.Context, msg messages.Message) (bool, error) {
	line := FormatMessage(msg)
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := fmt.Fprintln(t.w, line); err != nil {
		return false, err
	}
	return true, nil
}

// FormatMessage renders msg as a single colored line:
// time, sender -> recipient, type, priority and the content keys in order.
func FormatMessage(msg messages.Message) string {
	var b strings.Builder
	b.WriteString(color.HiBlackString(time.Time(msg.Timestamp).Format(time.TimeOnly)))
	b.WriteByte(' ')
	b.WriteString(color.MagentaString(msg.Sender))
	b.WriteString(" -> ")
	b.WriteString(color.CyanString(msg.Recipient))
	b.WriteByte(' ')
	b.WriteString(typeColor(msg.Type)("[%s]", msg.Type))
	if msg.Priority == messages.PriorityHigh {
		b.WriteString(color.RedString(" !"))
	}
	for _, k := range slices.Sorted(maps.Keys(msg.Content)) {
		fmt.Fprintf(&b, " %s=%v", color.YellowString(k), msg.Content[k])
	}
	return b.String()
}

func typeColor(t messages.Type) func(string, ...any) string {
	switch t {
	case messages.TypeError:
		return color.RedString
	case messages.TypeResponse:
		return color.GreenString
	case messages.TypeNotification:
		return color.BlueString
	default:
		return color.WhiteString
	}
}
