package workflow

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jorge-barreto/agentdag/internal/workflowerr"
)

// idRe matches the "safe as a filesystem segment" requirement on Step.ID
// (§3): letters, digits, dash, underscore — no path separators, no leading
// dot.
var idRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// Validate checks the Workflow's DAG invariants (§3 "Invariants on the
// DAG") and fills in Step defaults in a single pass, so callers never see
// a zero-valued SkipPolicy downstream.
func Validate(w *Workflow) error {
	if w.Name == "" {
		return &workflowerr.WorkflowDefinitionError{Workflow: "(unnamed)", Reason: "'name' is required"}
	}
	if len(w.Steps) == 0 {
		return &workflowerr.WorkflowDefinitionError{Workflow: w.Name, Reason: "at least one step is required"}
	}

	seen := make(map[string]bool, len(w.Steps))
	for i := range w.Steps {
		s := &w.Steps[i]
		if s.ID == "" {
			return w.defErr(fmt.Sprintf("step %d: 'id' is required", i+1))
		}
		if !idRe.MatchString(s.ID) {
			return w.defErr(fmt.Sprintf("step %q: id must match %s (safe as a filesystem segment)", s.ID, idRe.String()))
		}
		if seen[s.ID] {
			return w.defErr(fmt.Sprintf("duplicate step id %q", s.ID))
		}
		seen[s.ID] = true
	}

	for i := range w.Steps {
		s := &w.Steps[i]

		for _, dep := range s.Needs {
			if !seen[dep] {
				return w.defErr(fmt.Sprintf("step %q: needs %q: no such step", s.ID, dep))
			}
		}
		for _, next := range s.NextOnSuccess {
			if !seen[next] {
				return w.defErr(fmt.Sprintf("step %q: next_on_success %q: no such step", s.ID, next))
			}
		}

		if s.LoopBackTo != "" {
			if !seen[s.LoopBackTo] {
				return w.defErr(fmt.Sprintf("step %q: loop_back_to %q: no such step", s.ID, s.LoopBackTo))
			}
			if !w.IsAncestor(s.LoopBackTo, s.ID) {
				return w.defErr(fmt.Sprintf("step %q: loop_back_to %q must be an ancestor (in needs*)", s.ID, s.LoopBackTo))
			}
		}

		if s.SkipPolicy == "" {
			s.SkipPolicy = BlockOnSkip
		} else if s.SkipPolicy != AdvanceOnSkip && s.SkipPolicy != BlockOnSkip {
			return w.defErr(fmt.Sprintf("step %q: unknown skip_policy %q", s.ID, s.SkipPolicy))
		}

		if s.Loop != nil {
			if _, err := s.Loop.Source(s.ID); err != nil {
				return err
			}
			if s.Loop.MaxIterations < 0 {
				return w.defErr(fmt.Sprintf("step %q: loop.max_iterations must be >= 0", s.ID))
			}
		}

		if s.TimeoutSeconds < 0 {
			return w.defErr(fmt.Sprintf("step %q: timeout_seconds must be >= 0", s.ID))
		}
	}

	if cyclic, cycle := w.findCycle(); cyclic {
		return w.defErr(fmt.Sprintf("cycle detected in needs: %s", strings.Join(cycle, " -> ")))
	}

	return nil
}

func (w *Workflow) defErr(reason string) error {
	return &workflowerr.WorkflowDefinitionError{Workflow: w.Name, Reason: reason}
}

// findCycle runs a depth-first search over Needs edges and reports the
// first cycle found, if any.
func (w *Workflow) findCycle() (bool, []string) {
	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(w.Steps))
	var stack []string

	var visit func(id string) ([]string, bool)
	visit = func(id string) ([]string, bool) {
		state[id] = visiting
		stack = append(stack, id)
		defer func() { stack = stack[:len(stack)-1] }()

		step := w.StepByID(id)
		if step != nil {
			for _, dep := range step.Needs {
				switch state[dep] {
				case visiting:
					// Found the cycle: return the stack slice from dep's
					// position onward, plus dep again to close the loop.
					for idx, s := range stack {
						if s == dep {
							cycle := append([]string{}, stack[idx:]...)
							cycle = append(cycle, dep)
							return cycle, true
						}
					}
					return []string{dep, id, dep}, true
				case unvisited:
					if cyc, found := visit(dep); found {
						return cyc, true
					}
				}
			}
		}
		state[id] = done
		return nil, false
	}

	for _, s := range w.Steps {
		if state[s.ID] == unvisited {
			if cyc, found := visit(s.ID); found {
				return true, cyc
			}
		}
	}
	return false, nil
}
