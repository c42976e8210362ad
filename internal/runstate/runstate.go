// Package runstate holds the dynamic DAG state (§3 "StepRuntime",
// "RunState") and its durable JSON persistence (§4.2). A RunState is the
// single source of truth for a run; every scheduler transition mutates it
// in memory and then saves it before the next tick.
package runstate

import (
	"encoding/json"
	"time"
)

// TimeLayout is the timestamp format used for every StepRuntime/RunState
// timestamp field: RFC 3339 with an explicit UTC offset and microsecond
// precision, per §6 "Run report file format."
const TimeLayout = "2006-01-02T15:04:05.000000Z"

// Now formats the current instant the way every timestamp field in this
// package is stored.
func Now() string {
	return time.Now().UTC().Format(TimeLayout)
}

// Status is one of the six StepRuntime lifecycle states (§3).
type Status string

const (
	Pending        Status = "PENDING"
	Running        Status = "RUNNING"
	WaitingOnHuman Status = "WAITING_ON_HUMAN"
	Completed      Status = "COMPLETED"
	Failed         Status = "FAILED"
	Skipped        Status = "SKIPPED"
)

// Terminal reports whether a step in this status will never transition
// again (§4.6 step 4, "Terminate?").
func (s Status) Terminal() bool {
	switch s {
	case Completed, Failed, Skipped:
		return true
	}
	return false
}

// Satisfied reports whether a dependency in this status counts as
// satisfied for a dependent's admission check, given the dependent's
// skip policy (§4.6 step 1).
func (s Status) Satisfied(advanceOnSkip bool) bool {
	if s == Completed {
		return true
	}
	return s == Skipped && advanceOnSkip
}

// StepRuntime is the dynamic state of one step id, or one loop-expanded
// child instance, within a RunState (§3).
type StepRuntime struct {
	Status          Status            `json:"status"`
	Attempts        int               `json:"attempts"`
	IterationCount  int               `json:"iteration_count"`
	ReportPath      string            `json:"report_path,omitempty"`
	StartedAt       string            `json:"started_at,omitempty"`
	EndedAt         string            `json:"ended_at,omitempty"`
	LastError       string            `json:"last_error,omitempty"`
	Artifacts       []string          `json:"artifacts,omitempty"`
	Metrics         map[string]string `json:"metrics,omitempty"`
	Logs            []string          `json:"logs,omitempty"`
	ManualInputPath string            `json:"manual_input_path,omitempty"`
	BlockedByLoop   string            `json:"blocked_by_loop,omitempty"`

	// LoopChildren records the synthetic child ids materialized for a
	// loop-expanded declared step, in order. Not named in the data model,
	// but required to honor the resolution of the loop-back-into-a-loop
	// Open Question (§9): when this step is rewound, the original
	// resolved item list is restored from this field rather than
	// re-resolved, so an upstream change to the item source can't
	// desynchronize already-done work.
	LoopChildren []string `json:"loop_children,omitempty"`

	// LoopIndex and LoopItem are set only on a loop-expanded child's own
	// StepRuntime, recording the item it was materialized for. Needed so a
	// resumed run can relaunch a child with the same LOOP_INDEX/LOOP_ITEM
	// without re-resolving the parent's item source.
	LoopIndex *int            `json:"loop_index,omitempty"`
	LoopItem  json.RawMessage `json:"loop_item,omitempty"`

	extra map[string]json.RawMessage
}

// NewStepRuntime returns a fresh PENDING StepRuntime (§3 "Lifecycle").
func NewStepRuntime() *StepRuntime {
	return &StepRuntime{Status: Pending}
}

// SetLoopItem records the materialized loop item/index on a child's
// StepRuntime (§4.5, §9 Open Question resolution).
func (s *StepRuntime) SetLoopItem(index int, item any) error {
	encoded, err := json.Marshal(item)
	if err != nil {
		return err
	}
	s.LoopIndex = &index
	s.LoopItem = encoded
	return nil
}

// DecodedLoopItem reports whether this StepRuntime carries a loop item and
// decodes it if so.
func (s *StepRuntime) DecodedLoopItem() (int, any, bool) {
	if s.LoopIndex == nil {
		return 0, nil, false
	}
	var item any
	if err := json.Unmarshal(s.LoopItem, &item); err != nil {
		return *s.LoopIndex, nil, true
	}
	return *s.LoopIndex, item, true
}

// ResetForRetry clears the per-attempt fields while preserving Attempts and
// IterationCount (§3 Lifecycle (a); §4.6 table "attempts < max_attempts").
// The caller is responsible for incrementing Attempts.
func (s *StepRuntime) ResetForRetry() {
	s.Status = Pending
	s.StartedAt = ""
	s.EndedAt = ""
	s.ReportPath = ""
}

// ResetForLoopBack rewinds this step as part of a loop-back reset set
// (§4.6 "Loop-back procedure" step 2): every per-run field is cleared,
// BlockedByLoop is set to the triggering step, and IterationCount
// increments.
func (s *StepRuntime) ResetForLoopBack(triggeredBy string) {
	s.Status = Pending
	s.StartedAt = ""
	s.EndedAt = ""
	s.ReportPath = ""
	s.LastError = ""
	s.Artifacts = nil
	s.Metrics = nil
	s.Logs = nil
	s.BlockedByLoop = triggeredBy
	s.IterationCount++
}

// ResetForResume rewinds this step for a start-at-step resume (§4.6
// "Resume"): like a retry reset, but Attempts also returns to zero since
// resume begins a fresh attempt sequence, and IterationCount is preserved.
func (s *StepRuntime) ResetForResume() {
	s.Status = Pending
	s.Attempts = 0
	s.StartedAt = ""
	s.EndedAt = ""
	s.ReportPath = ""
	s.LastError = ""
}

// RunState is the top-level persisted aggregate for one run (§3 "RunState").
type RunState struct {
	Schema          string                  `json:"schema"`
	RunID           string                  `json:"run_id"`
	WorkflowName    string                  `json:"workflow_name"`
	RepoDir         string                  `json:"repo_dir"`
	ReportsDir      string                  `json:"reports_dir"`
	ManualInputsDir string                  `json:"manual_inputs_dir"`
	CreatedAt       string                  `json:"created_at"`
	UpdatedAt       string                  `json:"updated_at"`
	Steps           map[string]*StepRuntime `json:"steps"`

	extra map[string]json.RawMessage
}

// CurrentSchema is the schema tag stamped onto newly created RunState
// documents (§4.2 "Schema evolution uses an embedded schema tag").
const CurrentSchema = "1"

// New creates a fresh RunState with every step PENDING.
func New(runID, workflowName, repoDir, reportsDir, manualInputsDir string, stepIDs []string) *RunState {
	now := Now()
	steps := make(map[string]*StepRuntime, len(stepIDs))
	for _, id := range stepIDs {
		steps[id] = NewStepRuntime()
	}
	return &RunState{
		Schema:          CurrentSchema,
		RunID:           runID,
		WorkflowName:    workflowName,
		RepoDir:         repoDir,
		ReportsDir:      reportsDir,
		ManualInputsDir: manualInputsDir,
		CreatedAt:       now,
		UpdatedAt:       now,
		Steps:           steps,
	}
}

// AllTerminal reports whether every step is COMPLETED, FAILED, or SKIPPED
// and none is RUNNING or WAITING_ON_HUMAN (§4.6 step 4).
func (rs *RunState) AllTerminal() bool {
	for _, s := range rs.Steps {
		if !s.Status.Terminal() {
			return false
		}
	}
	return true
}

// Succeeded reports the engine's overall exit semantics (§6 "Exit
// semantics"): success if every step is COMPLETED or SKIPPED.
func (rs *RunState) Succeeded() bool {
	for _, s := range rs.Steps {
		if s.Status != Completed && s.Status != Skipped {
			return false
		}
	}
	return true
}
