// Package workflowerr defines the typed error taxonomy the scheduler and its
// collaborators raise. ReportParseError and ChildExitWithoutReportError carry
// a Cause for errors.Is/As chains; ErrCancelled (sentinels.go) is a
// signaling sentinel rather than a failure type.
package workflowerr

import (
	"fmt"
)

// WorkflowDefinitionError reports a fatal problem found while loading or
// validating a Workflow's DAG: a cycle, a dangling reference, an invalid
// loop_back_to, or more than one loop item source on a single step.
type WorkflowDefinitionError struct {
	Workflow string
	Reason   string
}

func (e *WorkflowDefinitionError) Error() string {
	return fmt.Sprintf("workflow %q: definition error: %s", e.Workflow, e.Reason)
}

// PromptNotFoundError reports that a step's prompt file could not be
// resolved under either the prompt override root or the workflow's prompt
// root. Per-step fatal.
type PromptNotFoundError struct {
	StepID string
	Path   string
}

func (e *PromptNotFoundError) Error() string {
	return fmt.Sprintf("step %q: prompt not found: %s", e.StepID, e.Path)
}

// ReportParseError reports that a run report could not be decoded as JSON
// after the Run-Report Validator's retry budget was exhausted.
type ReportParseError struct {
	Path  string
	Cause error
}

func (e *ReportParseError) Error() string {
	return fmt.Sprintf("report %q: parse error: %v", e.Path, e.Cause)
}

func (e *ReportParseError) Unwrap() error { return e.Cause }

// PlaceholderContentError reports that a run report's artifacts or logs
// contained placeholder content matching the configured blacklist, or that
// a COMPLETED report carried no log entries.
type PlaceholderContentError struct {
	Path   string
	Field  string
	Needle string
}

func (e *PlaceholderContentError) Error() string {
	if e.Needle != "" {
		return fmt.Sprintf("report %q: placeholder content in %s (matched %q)", e.Path, e.Field, e.Needle)
	}
	return fmt.Sprintf("report %q: %s", e.Path, e.Field)
}

// ChildExitWithoutReportError reports that a wrapper subprocess exited
// without ever producing a report file.
type ChildExitWithoutReportError struct {
	StepID   string
	ExitCode int
	Cause    error
}

func (e *ChildExitWithoutReportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("step %q: child exited without report: %v", e.StepID, e.Cause)
	}
	return fmt.Sprintf("step %q: child exited (code %d) without report", e.StepID, e.ExitCode)
}

func (e *ChildExitWithoutReportError) Unwrap() error { return e.Cause }

// StepTimeoutError reports that a step's wall-clock timeout elapsed before
// either a report arrived or the child exited.
type StepTimeoutError struct {
	StepID  string
	Timeout string
}

func (e *StepTimeoutError) Error() string {
	return fmt.Sprintf("step %q: timed out after %s", e.StepID, e.Timeout)
}

// MaxIterationsExceededError reports that a step could not be rewound by
// loop-back any further because its iteration_count reached max_iterations.
// Terminal.
type MaxIterationsExceededError struct {
	StepID        string
	MaxIterations int
}

func (e *MaxIterationsExceededError) Error() string {
	return fmt.Sprintf("step %q: max loop-back iterations exceeded (%d)", e.StepID, e.MaxIterations)
}

// LoopSourceError reports a problem resolving a loop's item source (§4.5):
// items_from_step pointed at a predecessor with no such artifact/metric, or
// items_from_artifact did not decode as a JSON array.
type LoopSourceError struct {
	StepID string
	Reason string
}

func (e *LoopSourceError) Error() string {
	return fmt.Sprintf("step %q: loop item source: %s", e.StepID, e.Reason)
}
