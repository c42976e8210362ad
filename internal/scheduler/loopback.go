package scheduler

import (
	"sort"

	"github.com/jorge-barreto/agentdag/internal/notify"
	"github.com/jorge-barreto/agentdag/internal/runstate"
	"github.com/jorge-barreto/agentdag/internal/workflow"
	"github.com/jorge-barreto/agentdag/internal/workflowerr"
)

// loopBack runs the §4.6 "Loop-back procedure" triggered by step completing
// with gate_failure=true: compute the reset set rooted at step.LoopBackTo
// up to and including step, expand it to cover any loop-expanded parent's
// children, and reset or fail every member according to its
// iteration_count against max_iterations.
func (s *Scheduler) loopBack(step *workflow.Step) {
	resetSet := s.Workflow.ResetSet(step.LoopBackTo, step.ID)
	resetSet = s.expandLoopChildren(resetSet)

	ids := make([]string, 0, len(resetSet))
	for id := range resetSet {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		sr := s.RunState.Steps[id]
		if sr == nil {
			continue
		}
		if sr.IterationCount >= *s.Config.MaxIterations {
			sr.Status = runstate.Failed
			sr.LastError = (&workflowerr.MaxIterationsExceededError{StepID: id, MaxIterations: *s.Config.MaxIterations}).Error()
			s.notify(notify.StepFailed, id, sr)
			continue
		}
		sr.ResetForLoopBack(step.ID)
	}
}

// expandLoopChildren adds the LoopChildren of every loop-expanded declared
// step already present in ids to the set (recursively, though nested
// loops-of-loops don't arise from this expander). Children inherit a
// declared step's Needs rather than depending on the declared step's id,
// so they are not structurally part of Workflow.ResetSet's Needs-closure;
// this is what reconnects them to their parent's rewind.
func (s *Scheduler) expandLoopChildren(ids map[string]bool) map[string]bool {
	out := make(map[string]bool, len(ids))
	for id := range ids {
		out[id] = true
	}
	for changed := true; changed; {
		changed = false
		for id := range out {
			sr := s.RunState.Steps[id]
			if sr == nil {
				continue
			}
			for _, child := range sr.LoopChildren {
				if !out[child] {
					out[child] = true
					changed = true
				}
			}
		}
	}
	return out
}

// deriveLoopParents computes the status of every loop-expanded declared
// step from its children's current state (§4.5, §9 Open Question
// resolution): it never runs a wrapper itself, so its status is a pure
// function of LoopChildren's StepRuntimes, recomputed every tick.
func (s *Scheduler) deriveLoopParents() {
	for id, sr := range s.RunState.Steps {
		if len(sr.LoopChildren) == 0 || sr.Status != runstate.Running {
			continue
		}

		allTerminal := true
		anyFailed := false
		var failedChild string
		for _, childID := range sr.LoopChildren {
			childRS := s.RunState.Steps[childID]
			if childRS == nil || !childRS.Status.Terminal() {
				allTerminal = false
				break
			}
			if childRS.Status == runstate.Failed {
				anyFailed = true
				failedChild = childID
			}
		}
		if !allTerminal {
			continue
		}

		if anyFailed {
			sr.Status = runstate.Failed
			sr.EndedAt = runstate.Now()
			sr.LastError = s.RunState.Steps[failedChild].LastError
			s.notify(notify.StepFailed, id, sr)
			continue
		}

		sr.Status = runstate.Completed
		sr.Artifacts = nil
		sr.Metrics = map[string]string{}
		sr.Logs = nil
		for _, childID := range sr.LoopChildren {
			childRS := s.RunState.Steps[childID]
			sr.Artifacts = append(sr.Artifacts, childRS.Artifacts...)
			sr.Logs = append(sr.Logs, childRS.Logs...)
			for k, v := range childRS.Metrics {
				sr.Metrics[k] = v
			}
			if childRS.EndedAt != "" {
				sr.EndedAt = childRS.EndedAt
			}
		}
	}
}
