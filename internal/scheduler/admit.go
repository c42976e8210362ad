package scheduler

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/jorge-barreto/agentdag/internal/loopexpand"
	"github.com/jorge-barreto/agentdag/internal/notify"
	"github.com/jorge-barreto/agentdag/internal/runstate"
	"github.com/jorge-barreto/agentdag/internal/steprunner"
	"github.com/jorge-barreto/agentdag/internal/workflow"
)

// admit runs §4.6 step 1 over every PENDING step, returning true if any
// step's status changed.
func (s *Scheduler) admit(ctx context.Context) bool {
	changed := false
	// Snapshot ids before the loop: loop expansion appends new steps (and
	// new PENDING StepRuntimes) to s.Workflow/s.RunState mid-pass, and
	// those children are picked up on the next tick rather than this one.
	ids := make([]string, 0, len(s.RunState.Steps))
	for id := range s.RunState.Steps {
		ids = append(ids, id)
	}

	for _, id := range ids {
		sr := s.RunState.Steps[id]
		if sr.Status != runstate.Pending {
			continue
		}
		step := s.Workflow.StepByID(id)
		if step == nil {
			continue
		}

		ready, cascadeSkip := s.dependenciesSatisfied(step)
		if cascadeSkip {
			sr.Status = runstate.Skipped
			sr.EndedAt = runstate.Now()
			changed = true
			continue
		}
		if !ready {
			continue
		}
		if !s.Gate.Open(step.ID, step.Gates) {
			continue
		}

		if step.Loop != nil {
			s.admitLoopParent(step, sr)
			changed = true
			continue
		}

		// pause_for_human_input defaults to false: an options file that
		// never mentions it runs human_in_the_loop steps straight through
		// rather than hanging a headless run on a pause nobody configured
		// an operator to service.
		if step.HumanInTheLoop && s.Config.PauseForHumanInput {
			sr.Status = runstate.WaitingOnHuman
			sr.ManualInputPath = steprunner.ManualInputPath(s.RepoDir, s.RunID, id)
			s.notify(notify.StepPaused, id, sr)
			changed = true
			continue
		}

		if err := s.launch(step, sr, nil); err != nil {
			s.failStep(step.ID, sr, err)
		}
		changed = true
	}

	return changed
}

// dependenciesSatisfied reports whether every one of step's needs is
// satisfied for admission, and whether step should instead cascade-skip
// because a dependency is FAILED or blocked-on-skip SKIPPED (§4.6 step 1,
// §3 "Lifecycle"). Cascading a FAILED dependency's effect onward keeps the
// run from deadlocking on a branch that can never become ready again.
func (s *Scheduler) dependenciesSatisfied(step *workflow.Step) (ready, cascadeSkip bool) {
	advanceOnSkip := step.SkipPolicy == workflow.AdvanceOnSkip
	for _, dep := range step.Needs {
		depRS := s.RunState.Steps[dep]
		if depRS == nil {
			return false, false
		}
		switch {
		case depRS.Status == runstate.Failed:
			return false, true
		case depRS.Status == runstate.Skipped && !advanceOnSkip:
			return false, true
		case depRS.Status.Satisfied(advanceOnSkip):
			continue
		default:
			return false, false
		}
	}
	return true, false
}

// admitLoopParent resolves (or restores) a declared loop step's child list
// and flips it out of PENDING. It never launches a wrapper itself (§9
// Open Question resolution, §4.5): its status derives from its children,
// computed each tick by deriveLoopParents.
func (s *Scheduler) admitLoopParent(step *workflow.Step, sr *runstate.StepRuntime) {
	if len(sr.LoopChildren) > 0 {
		// Already expanded once; a loop-back rewind reset this parent to
		// PENDING but preserved LoopChildren. Restore the original
		// resolved item list rather than re-resolving (§9).
		sr.Status = runstate.Running
		return
	}

	items, err := loopexpand.Resolve(step, s.RepoDir, s.RunState)
	if err != nil {
		s.failStep(step.ID, sr, err)
		return
	}

	if len(items) == 0 {
		sr.Status = runstate.Skipped
		sr.EndedAt = runstate.Now()
		return
	}

	children := loopexpand.Expand(step, items)
	childIDs := make([]string, len(children))
	for i, c := range children {
		s.Workflow.AppendStep(c.Step)
		childRS := runstate.NewStepRuntime()
		if err := childRS.SetLoopItem(c.Index, c.Item); err != nil {
			s.failStep(step.ID, sr, err)
			return
		}
		s.RunState.Steps[c.Step.ID] = childRS
		childIDs[i] = c.Step.ID
	}
	sr.LoopChildren = childIDs
	sr.Status = runstate.Running
	sr.StartedAt = runstate.Now()
}

// launch resolves the prompt, assembles the environment, and starts the
// wrapper subprocess for step (§4.4). manualInput is nil for an ordinary
// launch and non-nil when resuming a human_in_the_loop step whose input
// file has just appeared.
func (s *Scheduler) launch(step *workflow.Step, sr *runstate.StepRuntime, manualInput map[string]string) error {
	promptPath, err := steprunner.ResolvePrompt(s.RepoDir, s.PromptRoot, step.ID, step.Prompt)
	if err != nil {
		return err
	}

	if sr.Attempts == 0 {
		sr.Attempts = 1
	}

	reportPath := steprunner.ReportPath(s.RepoDir, s.RunID, step.ID)
	logPath := steprunner.LogPath(s.RepoDir, s.RunID, step.ID, sr.Attempts)

	spec := steprunner.EnvSpec{
		RunID:        s.RunID,
		StepID:       step.ID,
		RepoDir:      s.RepoDir,
		ReportPath:   reportPath,
		ArtifactsDir: steprunner.ArtifactsDir(s.RepoDir, s.RunID),
		LogsDir:      steprunner.LogsDir(s.RepoDir, s.RunID),
		PromptPath:   promptPath,
		Overrides:    s.Config.EnvOverrides,
		Upstream:     s.upstreamArtifactEnv(step),
		ManualInput:  manualInput,
	}
	if index, item, ok := sr.DecodedLoopItem(); ok {
		indexVar, itemVar := s.loopVarNames(step.ID)
		spec.LoopVarSet = true
		spec.LoopIndex = index
		spec.LoopItem = item
		spec.IndexVar = indexVar
		spec.ItemVar = itemVar
	}

	env := steprunner.BuildEnv(osEnviron(), spec)

	handle, err := s.Runner.Launch(env, reportPath, logPath)
	if err != nil {
		return err
	}

	s.handles[step.ID] = handle
	sr.Status = runstate.Running
	sr.ReportPath = reportPath
	if sr.StartedAt == "" {
		sr.StartedAt = runstate.Now()
	}
	return nil
}

// upstreamArtifactEnv derives the convenience env vars step.ArtifactEnv
// declares (§4.4 step 3), reading each named predecessor's recorded
// artifact path out of RunState. A mapping that names a predecessor with
// no such artifact is silently skipped rather than failing the step.
func (s *Scheduler) upstreamArtifactEnv(step *workflow.Step) map[string]string {
	if len(step.ArtifactEnv) == 0 {
		return nil
	}
	out := make(map[string]string, len(step.ArtifactEnv)*3)
	for _, m := range step.ArtifactEnv {
		pred := s.RunState.Steps[m.FromStep]
		if pred == nil || m.ArtifactIndex < 0 || m.ArtifactIndex >= len(pred.Artifacts) {
			continue
		}
		path := filepath.Join(s.RepoDir, pred.Artifacts[m.ArtifactIndex])
		prefix := strings.ToUpper(m.Prefix)
		out[prefix+"_PATH"] = path
		out[prefix+"_DIR"] = filepath.Dir(path)
		out[prefix+"_FILENAME"] = filepath.Base(path)
	}
	return out
}

// loopVarNames finds the declared parent step that materialized childID
// and returns its configured index/item var names, falling back to the
// defaults if no parent is found.
func (s *Scheduler) loopVarNames(childID string) (indexVar, itemVar string) {
	for parentID, parentRS := range s.RunState.Steps {
		for _, c := range parentRS.LoopChildren {
			if c == childID {
				if parent := s.Workflow.StepByID(parentID); parent != nil && parent.Loop != nil {
					return parent.Loop.IndexVarOrDefault(), parent.Loop.ItemVarOrDefault()
				}
			}
		}
	}
	return workflow.DefaultIndexVar, workflow.DefaultItemVar
}

func (s *Scheduler) failStep(stepID string, sr *runstate.StepRuntime, err error) {
	sr.Status = runstate.Failed
	sr.EndedAt = runstate.Now()
	sr.LastError = err.Error()
	s.notify(notify.StepFailed, stepID, sr)
}
