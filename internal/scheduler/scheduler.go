// Package scheduler owns the state machine that drives a Workflow's DAG to
// completion (§4.6 "Scheduler / Orchestrator"). A tick loop walks a
// map[string]*runstate.StepRuntime keyed by step id, with DAG readiness
// computed fresh every tick by a pure function over Workflow.Step.Needs,
// so any number of dependency-disjoint steps can be in flight at once
// rather than advancing one at a time.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jorge-barreto/agentdag/internal/config"
	"github.com/jorge-barreto/agentdag/internal/gate"
	"github.com/jorge-barreto/agentdag/internal/notify"
	"github.com/jorge-barreto/agentdag/internal/report"
	"github.com/jorge-barreto/agentdag/internal/runid"
	"github.com/jorge-barreto/agentdag/internal/runstate"
	"github.com/jorge-barreto/agentdag/internal/steprunner"
	"github.com/jorge-barreto/agentdag/internal/workflow"
	"github.com/jorge-barreto/agentdag/internal/workflowerr"
)

// ErrDeadlock reports that a tick produced no state transitions while the
// run is not yet terminal. The DAG itself has no cycles (§9), every
// FAILED or SKIPPED dependency cascades to its dependents (below), and a
// step held back only by a closed gate keeps the loop ticking, so this
// should never fire; it is a cheap defensive invariant check, not a path
// the scheduler is expected to take.
var ErrDeadlock = errors.New("scheduler: deadlock: no runnable steps but run is not terminal")

// Scheduler drives one run's state machine from its current RunState to a
// terminal outcome.
type Scheduler struct {
	Workflow   *workflow.Workflow
	RunState   *runstate.RunState
	Config     *config.Config
	Gate       *gate.Evaluator
	Validator  *report.Validator
	Runner     *steprunner.Runner
	Notifier   notify.Sink
	RepoDir    string
	RunID      string
	PromptRoot string
	StatePath  string

	handles map[string]*steprunner.Handle
}

// New creates a Scheduler for a fresh run: a new run id, a RunState with
// every declared step PENDING, and collaborators wired from cfg.
func New(wf *workflow.Workflow, cfg *config.Config, repoDir, promptRoot string, notifier notify.Sink) *Scheduler {
	id := runid.New()
	return newScheduler(wf, cfg, repoDir, promptRoot, notifier, id, nil)
}

// Resume loads a prior run's RunState from disk and, if startAtStep is
// non-empty, resets that step and everything transitively depending on it
// to PENDING, preserving upstream COMPLETED state and iteration_count
// (§4.6 "Resume").
func Resume(wf *workflow.Workflow, cfg *config.Config, repoDir, promptRoot, runID, startAtStep string, notifier notify.Sink) (*Scheduler, error) {
	statePath := runstate.Path(repoDir, runID)
	rs, found, err := runstate.Load(statePath)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("scheduler: no prior run state found at %s", statePath)
	}

	sched := newScheduler(wf, cfg, repoDir, promptRoot, notifier, runID, rs)

	if startAtStep != "" {
		if wf.StepByID(startAtStep) == nil {
			return nil, fmt.Errorf("scheduler: start-at step %q: no such step", startAtStep)
		}
		resetIDs := map[string]bool{startAtStep: true}
		for id := range wf.Descendants(startAtStep) {
			resetIDs[id] = true
		}
		for id := range resetIDs {
			if sr := rs.Steps[id]; sr != nil {
				sr.ResetForResume()
			}
		}
	}

	return sched, nil
}

func newScheduler(wf *workflow.Workflow, cfg *config.Config, repoDir, promptRoot string, notifier notify.Sink, id string, rs *runstate.RunState) *Scheduler {
	reportsDir := steprunner.ReportsDir(repoDir, id)
	manualDir := steprunner.ManualInputsDir(repoDir, id)

	if rs == nil {
		ids := make([]string, len(wf.Steps))
		for i, s := range wf.Steps {
			ids[i] = s.ID
		}
		rs = runstate.New(id, wf.Name, repoDir, reportsDir, manualDir, ids)
	}

	return &Scheduler{
		Workflow:   wf,
		RunState:   rs,
		Config:     cfg,
		Gate:       gate.NewEvaluator(cfg.GateStatePath),
		Validator:  report.NewValidator(cfg.PlaceholderBlacklist),
		Runner:     &steprunner.Runner{RepoDir: repoDir, WrapperArgv: cfg.WrapperArgv, KillGrace: cfg.KillGrace()},
		Notifier:   notifier,
		RepoDir:    repoDir,
		RunID:      id,
		PromptRoot: promptRoot,
		StatePath:  runstate.Path(repoDir, id),
		handles:    make(map[string]*steprunner.Handle),
	}
}

// Run executes the tick loop until every step reaches a terminal state or
// ctx is cancelled (§4.6: admit, collect, resolve, terminate?, sleep).
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			s.cancelAll(workflowerr.ErrCancelled)
			return s.save()
		}

		admitted := s.admit(ctx)
		resolved := s.collectAndResolve(ctx)
		s.deriveLoopParents()

		if err := s.save(); err != nil {
			return fmt.Errorf("scheduler: saving run state: %w", err)
		}

		if s.RunState.AllTerminal() {
			return nil
		}

		if !admitted && !resolved && !s.anyInFlight() && !s.anyAwaitingGate() {
			return ErrDeadlock
		}

		time.Sleep(s.Config.PollInterval())
	}
}

func (s *Scheduler) anyInFlight() bool {
	for _, sr := range s.RunState.Steps {
		if sr.Status == runstate.Running || sr.Status == runstate.WaitingOnHuman {
			return true
		}
	}
	return false
}

// anyAwaitingGate reports whether some PENDING step has its dependencies
// satisfied and is held back only by a closed gate, which may open
// between ticks (§4.3).
func (s *Scheduler) anyAwaitingGate() bool {
	for id, sr := range s.RunState.Steps {
		step := s.Workflow.StepByID(id)
		if sr.Status != runstate.Pending || step == nil {
			continue
		}
		if ready, _ := s.dependenciesSatisfied(step); ready && !s.Gate.Open(step.ID, step.Gates) {
			return true
		}
	}
	return false
}

func (s *Scheduler) save() error {
	return s.RunState.Save(s.StatePath)
}

func (s *Scheduler) cancelAll(cause error) {
	for id, h := range s.handles {
		h.Cancel()
		sr := s.RunState.Steps[id]
		if sr != nil && !sr.Status.Terminal() {
			sr.Status = runstate.Failed
			sr.EndedAt = runstate.Now()
			sr.LastError = cause.Error()
			s.notify(notify.StepFailed, id, sr)
		}
		delete(s.handles, id)
	}
	for id, sr := range s.RunState.Steps {
		if !sr.Status.Terminal() {
			sr.Status = runstate.Failed
			sr.EndedAt = runstate.Now()
			sr.LastError = cause.Error()
			s.notify(notify.StepFailed, id, sr)
		}
	}
}

func (s *Scheduler) notify(kind notify.Kind, stepID string, sr *runstate.StepRuntime) {
	if s.Notifier == nil {
		return
	}
	event := notify.Event{
		Kind:            kind,
		RunID:           s.RunID,
		StepID:          stepID,
		Attempts:        sr.Attempts,
		IterationCount:  sr.IterationCount,
		ManualInputPath: sr.ManualInputPath,
		LastError:       sr.LastError,
	}
	if len(sr.Logs) > 0 {
		event.LogTail = notify.LogTail(s.latestLogPath(stepID, sr.Attempts))
	}
	_ = s.Notifier.Notify(context.Background(), event)
}

func (s *Scheduler) latestLogPath(stepID string, attempt int) string {
	if attempt == 0 {
		attempt = 1
	}
	return steprunner.LogPath(s.RepoDir, s.RunID, stepID, attempt)
}

// osEnviron is a testing seam over os.Environ; production callers never
// need to override it.
var osEnviron = os.Environ
