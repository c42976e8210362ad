package scheduler

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jorge-barreto/agentdag/internal/notify"
	"github.com/jorge-barreto/agentdag/internal/report"
	"github.com/jorge-barreto/agentdag/internal/runstate"
	"github.com/jorge-barreto/agentdag/internal/steprunner"
	"github.com/jorge-barreto/agentdag/internal/workflow"
	"github.com/jorge-barreto/agentdag/internal/workflowerr"
)

// collectAndResolve runs §4.6 steps 2-3: poll every RUNNING step and check
// every WAITING_ON_HUMAN step for its manual input file, then apply the
// resulting state transition. Returns true if any step's status changed.
func (s *Scheduler) collectAndResolve(ctx context.Context) bool {
	changed := false
	for id, sr := range s.RunState.Steps {
		switch sr.Status {
		case runstate.Running:
			if s.resolveRunning(ctx, id, sr) {
				changed = true
			}
		case runstate.WaitingOnHuman:
			if s.resolveWaiting(id, sr) {
				changed = true
			}
		}
	}
	return changed
}

func (s *Scheduler) resolveWaiting(id string, sr *runstate.StepRuntime) bool {
	if _, err := os.Stat(sr.ManualInputPath); err != nil {
		return false
	}
	manualInput, err := steprunner.ReadManualInput(sr.ManualInputPath)
	if err != nil {
		// The file exists but isn't readable/decodable yet; try again
		// next tick rather than failing a step over a partial write.
		return false
	}
	step := s.Workflow.StepByID(id)
	if step == nil {
		return false
	}
	if err := s.launch(step, sr, manualInput); err != nil {
		s.failStep(id, sr, err)
	}
	return true
}

func (s *Scheduler) resolveRunning(ctx context.Context, id string, sr *runstate.StepRuntime) bool {
	step := s.Workflow.StepByID(id)
	if step == nil {
		return false
	}

	// A loop-expanded declared step's own StepRuntime is RUNNING while its
	// children run, but it never has a handle of its own.
	handle, hasHandle := s.handles[id]
	if !hasHandle {
		return false
	}

	timeout := time.Duration(step.TimeoutSeconds) * time.Second
	switch handle.Poll(timeout) {
	case steprunner.StillRunning:
		return false

	case steprunner.ReportArrived:
		delete(s.handles, id)
		s.applyReport(ctx, step, sr)
		return true

	case steprunner.ChildExitedWithoutReport:
		delete(s.handles, id)
		cause := &workflowerr.ChildExitWithoutReportError{StepID: id, Cause: handle.ExitErr()}
		s.applyFailure(step, sr, cause)
		return true

	case steprunner.TimedOut:
		handle.Cancel()
		delete(s.handles, id)
		s.applyFailure(step, sr, &workflowerr.StepTimeoutError{StepID: id, Timeout: timeout.String()})
		return true
	}
	return false
}

func (s *Scheduler) applyReport(ctx context.Context, step *workflow.Step, sr *runstate.StepRuntime) {
	rep, err := s.Validator.Parse(ctx, sr.ReportPath)
	if err != nil {
		s.applyFailure(step, sr, err)
		return
	}

	s.checkInlineMarker(step.ID, sr)

	if rep.Status == report.StatusFailed {
		s.applyFailure(step, sr, fmt.Errorf("step %q: wrapper reported FAILED", step.ID))
		return
	}

	sr.EndedAt = rep.EndedAt
	sr.Artifacts = rep.Artifacts
	sr.Metrics = rep.Metrics
	sr.Logs = rep.Logs
	sr.Status = runstate.Completed

	if rep.GateFailure && step.LoopBackTo != "" {
		s.loopBack(step)
	}
}

// checkInlineMarker reads back the wrapper's log for the attempt that just
// reported and warns to stderr if an inline <<<RUN_REPORT_JSON...>>> block
// disagrees with the report file just parsed — diagnostic only, per
// report.ExtractInlineMarker's contract; it never drives a transition.
func (s *Scheduler) checkInlineMarker(stepID string, sr *runstate.StepRuntime) {
	logPath := steprunner.LogPath(s.RepoDir, s.RunID, stepID, sr.Attempts)
	logData, err := os.ReadFile(logPath)
	if err != nil {
		return
	}
	inline, ok := report.ExtractInlineMarker(string(logData))
	if !ok {
		return
	}
	fileData, err := os.ReadFile(sr.ReportPath)
	if err != nil {
		return
	}
	if strings.TrimSpace(inline) != strings.TrimSpace(string(fileData)) {
		fmt.Fprintf(os.Stderr, "warning: step %q: inline report marker in log disagrees with %s\n", stepID, sr.ReportPath)
	}
}

// applyFailure handles both a FAILED report and a child that exited
// without ever producing one (§4.6 state transition table): retry while
// under max_attempts, otherwise terminal FAILED.
func (s *Scheduler) applyFailure(step *workflow.Step, sr *runstate.StepRuntime, cause error) {
	if sr.Attempts < *s.Config.MaxAttempts {
		sr.Attempts++
		sr.ResetForRetry()
		return
	}
	sr.Status = runstate.Failed
	sr.EndedAt = runstate.Now()
	sr.LastError = cause.Error()
	s.notify(notify.StepFailed, step.ID, sr)
}
