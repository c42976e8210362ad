// Package steprunner materializes one invocation of a wrapper subprocess
// for a step and hands control back to the scheduler (§4.4 "Step Runner").
package steprunner

import (
	"fmt"
	"path/filepath"
)

// runDir is the root of one run's filesystem layout (§6 "Filesystem
// layout"): <repo>/.agents/runs/<run_id>/.
func runDir(repoDir, runID string) string {
	return filepath.Join(repoDir, ".agents", "runs", runID)
}

// ReportPath computes the expected run-report location for a step
// (§4.4 step 2). For a loop-expanded instance, stepID already includes
// the "__N" suffix.
func ReportPath(repoDir, runID, stepID string) string {
	return filepath.Join(runDir(repoDir, runID), "reports", runID+"__"+stepID+".json")
}

// LogPath computes the per-attempt log file location (§4.4 step 4).
func LogPath(repoDir, runID, stepID string, attempt int) string {
	return filepath.Join(runDir(repoDir, runID), "logs", fmt.Sprintf("%s__%s__attempt%d.log", runID, stepID, attempt))
}

// ManualInputPath computes where the operator is expected to write a
// manual input file for a human_in_the_loop step (§4.4 step 5, §6).
func ManualInputPath(repoDir, runID, stepID string) string {
	return filepath.Join(runDir(repoDir, runID), "manual_inputs", runID+"__"+stepID+".json")
}

// ArtifactsDir, LogsDir, and ReportsDir are the per-run subdirectories
// wrappers are told about via env (§4.4 step 3, §6).
func ArtifactsDir(repoDir, runID string) string { return filepath.Join(runDir(repoDir, runID), "artifacts") }
func LogsDir(repoDir, runID string) string      { return filepath.Join(runDir(repoDir, runID), "logs") }
func ReportsDir(repoDir, runID string) string    { return filepath.Join(runDir(repoDir, runID), "reports") }

// ManualInputsDir is the directory the operator writes manual input files
// into (§6).
func ManualInputsDir(repoDir, runID string) string {
	return filepath.Join(runDir(repoDir, runID), "manual_inputs")
}

// PromptOverridePath is the packaged-prompt override location checked
// before falling back to the workflow's prompt root (§4.4 step 1).
func PromptOverridePath(repoDir, basename string) string {
	return filepath.Join(repoDir, ".agents", "prompts", basename)
}
