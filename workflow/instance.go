package workflow

import (
	"slices"
	"sync"
	"time"

	"github.com/casualjim/roost/api"
	"github.com/casualjim/roost/process"
	"github.com/casualjim/roost/types"
	"github.com/go-openapi/strfmt"
)

// State is the lifecycle state of a workflow instance.
type State string

const (
	StateCreated   State = "created"
	StateRunning   State = "running"
	StateCompleted State = "completed"
)

// ActivityState is the state of one activity of an instance.
type ActivityState string

const (
	ActivityPending   ActivityState = "pending"
	ActivityExecuting ActivityState = "executing"
	ActivityCompleted ActivityState = "completed"
	ActivityFailed    ActivityState = "failed"
)

// ActivityRecord is an activity of an instance together with its outcome.
type ActivityRecord struct {
	Activity   process.Activity `json:"activity"`
	State      ActivityState    `json:"state"`
	AgentID    string           `json:"agent_id,omitempty"`
	Result     *api.Result      `json:"result,omitempty"`
	StartedAt  *strfmt.DateTime `json:"started_at,omitempty"`
	FinishedAt *strfmt.DateTime `json:"finished_at,omitempty"`
}

// Status is a read-only projection of an instance.
type Status struct {
	ID              string            `json:"id"`
	FrameworkID     string            `json:"framework_id"`
	ProcessID       string            `json:"process_id"`
	State           State             `json:"state"`
	CurrentIndex    int               `json:"current_index"`
	CurrentActivity string            `json:"current_activity,omitempty"`
	Total           int               `json:"total"`
	Completed       int               `json:"completed"`
	Failed          int               `json:"failed"`
	Progress        float64           `json:"progress"`
	Data            types.ContextVars `json:"data"`
	Activities      []ActivityRecord  `json:"activities"`
	CreatedAt       strfmt.DateTime   `json:"created_at"`
	CompletedAt     *strfmt.DateTime  `json:"completed_at,omitempty"`
}

type instance struct {
	// step serializes the steps of the instance. It is held across agent
	// calls while mu is not, so status reads never wait for an activity.
	step sync.Mutex
	mu   sync.Mutex

	id          string
	frameworkID string
	processID   string
	activities  []ActivityRecord
	index       int
	data        types.ContextVars
	state       State
	createdAt   time.Time
	completedAt time.Time
}

func newInstance(id, frameworkID string, proc *process.Process) *instance {
	acts := proc.Flatten()
	records := make([]ActivityRecord, len(acts))
	for i, act := range acts {
		records[i] = ActivityRecord{Activity: act, State: ActivityPending}
	}
	return &instance{
		id:          id,
		frameworkID: frameworkID,
		processID:   proc.ID,
		activities:  records,
		data:        types.ContextVars{},
		state:       StateCreated,
		createdAt:   time.Now(),
	}
}

func (w *instance) done() bool {
	return w.index >= len(w.activities)
}

func (w *instance) complete() {
	w.state = StateCompleted
	w.completedAt = time.Now()
}

// progress counts attempted activities. An empty instance is fully done.
func (w *instance) progress() (completed, failed int, pct float64) {
	for _, rec := range w.activities {
		switch rec.State {
		case ActivityCompleted:
			completed++
		case ActivityFailed:
			failed++
		}
	}
	if len(w.activities) == 0 {
		return 0, 0, 100
	}
	return completed, failed, float64(completed+failed) / float64(len(w.activities)) * 100
}

// statusLocked builds a detached snapshot. Callers hold w.mu.
func (w *instance) statusLocked() Status {
	completed, failed, pct := w.progress()
	st := Status{
		ID:           w.id,
		FrameworkID:  w.frameworkID,
		ProcessID:    w.processID,
		State:        w.state,
		CurrentIndex: w.index,
		Total:        len(w.activities),
		Completed:    completed,
		Failed:       failed,
		Progress:     pct,
		Data:         w.data.Clone(),
		Activities:   cloneRecords(w.activities),
		CreatedAt:    strfmt.DateTime(w.createdAt),
	}
	if !w.done() {
		st.CurrentActivity = w.activities[w.index].Activity.ID
	}
	if !w.completedAt.IsZero() {
		at := strfmt.DateTime(w.completedAt)
		st.CompletedAt = &at
	}
	return st
}

func cloneRecords(records []ActivityRecord) []ActivityRecord {
	out := slices.Clone(records)
	for i := range out {
		if out[i].Result != nil {
			res := *out[i].Result
			out[i].Result = &res
		}
	}
	return out
}

func stamp() *strfmt.DateTime {
	now := strfmt.DateTime(time.Now())
	return &now
}
