// Package report parses and validates run-report JSON files written by
// wrapper subprocesses (§3 "RunReport", §4.1 "Run-Report Validator").
package report

// Status is one of the two terminal outcomes a wrapper reports (§3).
type Status string

const (
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// RunReport is the validated, normalized form of a wrapper's run-report
// file (§3, §4.1 "Normalize").
type RunReport struct {
	Schema             string
	RunID              string
	StepID             string
	Agent              string
	Status             Status
	StartedAt          string
	EndedAt            string
	Artifacts          []string
	Metrics            map[string]string
	Logs               []string
	GateFailure        bool
	NextSuggestedSteps []string
}

// rawReport is the on-disk shape before normalization: metrics values may
// be any JSON type and are coerced to strings during validation.
type rawReport struct {
	Schema             string                 `json:"schema"`
	RunID              string                 `json:"run_id"`
	StepID             string                 `json:"step_id"`
	Agent              string                 `json:"agent"`
	Status             string                 `json:"status"`
	StartedAt          string                 `json:"started_at"`
	EndedAt            string                 `json:"ended_at"`
	Artifacts          []string               `json:"artifacts"`
	Metrics            map[string]interface{} `json:"metrics"`
	Logs               []string               `json:"logs"`
	GateFailure        bool                   `json:"gate_failure"`
	NextSuggestedSteps []string               `json:"next_suggested_steps"`
}
