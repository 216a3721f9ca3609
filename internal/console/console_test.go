package console

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/casualjim/roost/api"
	"github.com/casualjim/roost/messages"
	"github.com/casualjim/roost/process"
	"github.com/casualjim/roost/workflow"
	"github.com/fatih/color"
	"github.com/go-openapi/strfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func TestTapReceive(t *testing.T) {
	var buf bytes.Buffer
	tap := NewTap("tap", &buf)
	var _ api.Agent = tap

	msg := messages.New().From("engine").To("tap").WithPriority(messages.PriorityHigh).
		Notification(map[string]any{"topic": "workflow.activity", "event": "activity_completed"})
	msg.Timestamp = strfmt.DateTime(time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC))

	handled, err := tap.Receive(context.Background(), msg)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t,
		"09:30:00 engine -> tap [notification] ! event=activity_completed topic=workflow.activity\n",
		buf.String())
}

func TestFormatMessageTypes(t *testing.T) {
	msg := messages.New().From("a").To("b").Error(nil)
	assert.Contains(t, FormatMessage(msg), "[error]")
	assert.NotContains(t, FormatMessage(msg), "!")
}

func TestFrameworkMarkdown(t *testing.T) {
	f, err := os.Open("../../process/testdata/marketing.json")
	require.NoError(t, err)
	defer f.Close()
	fw, err := process.Decode(f)
	require.NoError(t, err)

	md := FrameworkMarkdown(fw)
	assert.Contains(t, md, "# "+fw.Name)
	assert.Contains(t, md, "`"+fw.ID+"`")
	for _, p := range fw.Processes {
		assert.Contains(t, md, "`"+p.ID+"`")
	}

	out, err := Render(md, 80)
	require.NoError(t, err)
	assert.Contains(t, out, fw.Name)
}

func TestStatusMarkdown(t *testing.T) {
	st := workflow.Status{
		ID:          "wf_1",
		FrameworkID: "fw",
		ProcessID:   "p",
		State:       workflow.StateCompleted,
		Total:       2,
		Completed:   1,
		Failed:      1,
		Progress:    100,
		Data:        map[string]any{"brief": "spring"},
		Activities: []workflow.ActivityRecord{
			{Activity: process.Activity{ID: "a1"}, State: workflow.ActivityCompleted, AgentID: "echo",
				Result: &api.Result{Success: true}},
			{Activity: process.Activity{ID: "a2"}, State: workflow.ActivityFailed,
				Result: &api.Result{Reason: api.ReasonNoSuitableAgents, Message: "x|y"}},
		},
	}
	md := StatusMarkdown(st)
	assert.Contains(t, md, "**completed**: 1 of 2 activities completed, 1 failed (100%)")
	assert.Contains(t, md, "| 1 | a1 | completed | echo |  |")
	assert.Contains(t, md, `| 2 | a2 | failed |  | no_suitable_agents: x\|y |`)
	assert.Contains(t, md, "- `brief`: spring")
}
