// Package ux holds console renderers for step events and run status. It
// has no effect on scheduling itself. The scheduler does not call it;
// cmd/agentdag uses RenderStatus, ResumeHint, Success and the color
// constants, and the per-step renderers (StepHeader, StepComplete,
// StepFail, StepSkip, StepPause, LoopBack) currently have no caller.
package ux

import (
	"fmt"
	"time"
)

// ANSI color helpers
const (
	Reset  = "\033[0m"
	Bold   = "\033[1m"
	Dim    = "\033[2m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Cyan   = "\033[36m"
)

func timestamp() string {
	return time.Now().Format("15:04:05")
}

// StepHeader prints a timestamped step-start header.
func StepHeader(stepID, agent string) {
	fmt.Printf("\n%s[%s]%s %s══════════════════════════════════════%s\n",
		Dim, timestamp(), Reset, Cyan, Reset)
	fmt.Printf("%s[%s]%s  %sStep %s (%s)%s\n",
		Dim, timestamp(), Reset, Bold, stepID, agent, Reset)
	fmt.Printf("%s[%s]%s %s══════════════════════════════════════%s\n",
		Dim, timestamp(), Reset, Cyan, Reset)
}

// StepComplete prints a step completion message.
func StepComplete(stepID string, duration time.Duration) {
	m := int(duration.Minutes())
	s := int(duration.Seconds()) % 60
	fmt.Printf("%s[%s]%s  %s✓ %s complete (%dm %02ds)%s\n",
		Dim, timestamp(), Reset, Green, stepID, m, s, Reset)
}

// StepFail prints a step failure message.
func StepFail(stepID, errMsg string) {
	fmt.Printf("%s[%s]%s  %s✗ %s failed: %s%s\n",
		Dim, timestamp(), Reset, Red, stepID, errMsg, Reset)
}

// StepSkip prints a step skip message (dependency failed or skipped
// upstream, per the cascade-skip admission rule).
func StepSkip(stepID string) {
	fmt.Printf("%s[%s]%s  %s– %s skipped (upstream dependency did not complete)%s\n",
		Dim, timestamp(), Reset, Dim, stepID, Reset)
}

// StepPause prints a WAITING_ON_HUMAN entry and the path an operator must
// write to resume it.
func StepPause(stepID, manualInputPath string) {
	fmt.Printf("%s[%s]%s  %s⏸ %s waiting on human input: write %s%s\n",
		Dim, timestamp(), Reset, Yellow, stepID, manualInputPath, Reset)
}

// LoopBack prints a loop-back message.
func LoopBack(fromStep, toStep string, iteration, max int) {
	fmt.Printf("%s[%s]%s  %s↺ %q failed its gate. Looping back to %q (iteration %d/%d)%s\n",
		Dim, timestamp(), Reset, Yellow, fromStep, toStep, iteration, max, Reset)
}

// ResumeHint prints a resume command hint.
func ResumeHint(runID string) {
	fmt.Printf("\n%sResume:%s agentdag resume <workflow.yaml> %s\n", Yellow, Reset, runID)
}

// Success prints a final success message.
func Success(runID string, total int) {
	fmt.Printf("\n%s[%s]%s  %s%s══ run %s: all %d steps complete ══%s\n\n",
		Dim, timestamp(), Reset, Bold, Green, runID, total, Reset)
}
