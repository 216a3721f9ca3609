package process

import (
	"errors"
	"fmt"
)

type index struct {
	processes  map[string]*Process
	activities map[string]*Activity
}

// buildIndex maps every process and activity id of f to its node and sets the
// ProcessID/ParentID back-references. Duplicate ids and cycles are errors.
func buildIndex(f *Framework) (index, error) {
	idx := index{
		processes:  make(map[string]*Process),
		activities: make(map[string]*Activity),
	}
	var errs []error
	onPath := make(map[*Process]bool)

	var visit func(p *Process, parentID string)
	visit = func(p *Process, parentID string) {
		if p == nil {
			errs = append(errs, errors.New("null process"))
			return
		}
		if onPath[p] {
			errs = append(errs, fmt.Errorf("process %s is its own ancestor", p.ID))
			return
		}
		if p.ID == "" {
			errs = append(errs, errors.New("process_id is required"))
		} else if _, dup := idx.processes[p.ID]; dup {
			errs = append(errs, fmt.Errorf("duplicate process id %s", p.ID))
		} else {
			idx.processes[p.ID] = p
		}
		p.ParentID = parentID

		for _, act := range p.Activities {
			switch {
			case act == nil:
				errs = append(errs, fmt.Errorf("null activity in process %s", p.ID))
				continue
			case act.ID == "":
				errs = append(errs, fmt.Errorf("activity_id is required in process %s", p.ID))
			default:
				if _, dup := idx.activities[act.ID]; dup {
					errs = append(errs, fmt.Errorf("duplicate activity id %s", act.ID))
				} else {
					idx.activities[act.ID] = act
				}
			}
			if act.FrameworkType != "" && !act.FrameworkType.Valid() {
				errs = append(errs, fmt.Errorf("activity %s: unknown framework_type %q", act.ID, act.FrameworkType))
			}
			act.ProcessID = p.ID
		}

		onPath[p] = true
		for _, sub := range p.Subprocesses {
			visit(sub, p.ID)
		}
		delete(onPath, p)
	}

	for _, p := range f.Processes {
		visit(p, "")
	}
	if len(errs) > 0 {
		return index{}, errors.Join(errs...)
	}
	return idx, nil
}
