package process

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// FrameworkType is the catalogue a framework comes from.
type FrameworkType string

const (
	FrameworkAPQC   FrameworkType = "APQC"
	FrameworkETOM   FrameworkType = "eTOM"
	FrameworkITIL   FrameworkType = "ITIL"
	FrameworkCustom FrameworkType = "CUSTOM"
)

// ErrInvalidFramework wraps every validation failure of a framework document.
var ErrInvalidFramework = errors.New("invalid framework")

var frameworkTypes = []FrameworkType{FrameworkAPQC, FrameworkETOM, FrameworkITIL, FrameworkCustom}

func (t FrameworkType) Valid() bool {
	for _, known := range frameworkTypes {
		if t == known {
			return true
		}
	}
	return false
}

func (t FrameworkType) String() string { return string(t) }

// ParseFrameworkType resolves s case-insensitively to one of the known framework types.
func ParseFrameworkType(s string) (FrameworkType, error) {
	for _, known := range frameworkTypes {
		if strings.EqualFold(s, string(known)) {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown framework type %q", s)
}

// Activity is a single executable step of a process.
type Activity struct {
	ID             string        `json:"activity_id"`
	Name           string        `json:"name"`
	Description    string        `json:"description,omitempty"`
	FrameworkType  FrameworkType `json:"framework_type,omitempty" jsonschema:"enum=APQC,enum=eTOM,enum=ITIL,enum=CUSTOM"`
	RequiredInputs []string      `json:"required_inputs,omitempty"`
	OptionalInputs []string      `json:"optional_inputs,omitempty"`
	Outputs        []string      `json:"outputs,omitempty"`
	Preconditions  []string      `json:"preconditions,omitempty"`
	Postconditions []string      `json:"postconditions,omitempty"`
	ExecutionSteps []string      `json:"execution_steps,omitempty"`
	// ProcessID is the owning process. It is set when the framework is indexed.
	ProcessID string `json:"process_id,omitempty"`
}

// Process is a node of the process tree.
type Process struct {
	ID           string      `json:"process_id"`
	Name         string      `json:"name"`
	Description  string      `json:"description,omitempty"`
	Activities   []*Activity `json:"activities,omitempty"`
	Subprocesses []*Process  `json:"subprocesses,omitempty"`
	Inputs       []string    `json:"inputs,omitempty"`
	Outputs      []string    `json:"outputs,omitempty"`
	Metrics      []string    `json:"metrics,omitempty"`
	// ParentID is the enclosing process, empty for top-level processes.
	ParentID string `json:"parent_process_id,omitempty"`
}

// Framework is a catalogue of processes, persisted as one document.
type Framework struct {
	ID                 string        `json:"framework_id"`
	Name               string        `json:"name"`
	Version            string        `json:"version,omitempty"`
	Type               FrameworkType `json:"type" jsonschema:"enum=APQC,enum=eTOM,enum=ITIL,enum=CUSTOM"`
	Description        string        `json:"description,omitempty"`
	SourceURL          string        `json:"source_url,omitempty"`
	SourceOrganization string        `json:"source_organization,omitempty"`
	Processes          []*Process    `json:"processes"`
}

// Flatten returns the activities of p in pre-order: the node's own
// activities first, then each subprocess recursively. Activities are copied.
func (p *Process) Flatten() []Activity {
	var out []Activity
	p.walk(func(node *Process) {
		for _, act := range node.Activities {
			if act != nil {
				out = append(out, *act)
			}
		}
	})
	return out
}

func (p *Process) walk(fn func(*Process)) {
	if p == nil {
		return
	}
	fn(p)
	for _, sub := range p.Subprocesses {
		sub.walk(fn)
	}
}

// Validate checks the framework and its tree. All problems are reported at once.
func (f *Framework) Validate() error {
	_, err := f.validate()
	return err
}

// validate checks f and indexes its tree in one pass.
func (f *Framework) validate() (index, error) {
	if f == nil {
		return index{}, fmt.Errorf("%w: nil framework", ErrInvalidFramework)
	}
	var errs []error
	if f.ID == "" {
		errs = append(errs, errors.New("framework_id is required"))
	}
	if !f.Type.Valid() {
		errs = append(errs, fmt.Errorf("type %q is not one of APQC, eTOM, ITIL, CUSTOM", f.Type))
	}
	idx, err := buildIndex(f)
	if err != nil {
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return idx, nil
	}
	if f.ID != "" {
		return index{}, fmt.Errorf("%w %s: %w", ErrInvalidFramework, f.ID, errors.Join(errs...))
	}
	return index{}, fmt.Errorf("%w: %w", ErrInvalidFramework, errors.Join(errs...))
}

// clone deep copies f. A process that is its own ancestor can't be copied
// and fails the clone.
func (f *Framework) clone() (*Framework, error) {
	out := *f
	onPath := make(map[*Process]bool)

	var cloneProcesses func([]*Process) ([]*Process, error)
	cloneProcesses = func(ps []*Process) ([]*Process, error) {
		if ps == nil {
			return nil, nil
		}
		res := make([]*Process, len(ps))
		for i, p := range ps {
			if p == nil {
				continue
			}
			if onPath[p] {
				return nil, fmt.Errorf("%w %s: process %s is its own ancestor", ErrInvalidFramework, f.ID, p.ID)
			}
			cp := *p
			cp.Inputs = slices.Clone(p.Inputs)
			cp.Outputs = slices.Clone(p.Outputs)
			cp.Metrics = slices.Clone(p.Metrics)
			if p.Activities != nil {
				cp.Activities = make([]*Activity, len(p.Activities))
				for j, act := range p.Activities {
					if act != nil {
						cp.Activities[j] = act.clone()
					}
				}
			}
			onPath[p] = true
			subs, err := cloneProcesses(p.Subprocesses)
			delete(onPath, p)
			if err != nil {
				return nil, err
			}
			cp.Subprocesses = subs
			res[i] = &cp
		}
		return res, nil
	}

	procs, err := cloneProcesses(f.Processes)
	if err != nil {
		return nil, err
	}
	out.Processes = procs
	return &out, nil
}

func (a *Activity) clone() *Activity {
	cp := *a
	cp.RequiredInputs = slices.Clone(a.RequiredInputs)
	cp.OptionalInputs = slices.Clone(a.OptionalInputs)
	cp.Outputs = slices.Clone(a.Outputs)
	cp.Preconditions = slices.Clone(a.Preconditions)
	cp.Postconditions = slices.Clone(a.Postconditions)
	cp.ExecutionSteps = slices.Clone(a.ExecutionSteps)
	return &cp
}
