package ux

import (
	"fmt"
	"os"
	"sort"

	"github.com/jorge-barreto/agentdag/internal/runstate"
)

// RenderStatus prints the full status display for a run: overall outcome,
// every step's current status in step-id order, and the artifacts
// directory listing.
func RenderStatus(wf *runstate.RunState, artifactsDir string) {
	fmt.Printf("%sRun:%s     %s\n", Bold, Reset, wf.RunID)
	fmt.Printf("%sWorkflow:%s %s\n", Bold, Reset, wf.WorkflowName)

	if wf.AllTerminal() {
		if wf.Succeeded() {
			fmt.Printf("%sState:%s   %s%scompleted%s\n", Bold, Reset, Green, Bold, Reset)
		} else {
			fmt.Printf("%sState:%s   %s%sfailed%s\n", Bold, Reset, Red, Bold, Reset)
		}
	} else {
		fmt.Printf("%sState:%s   in progress\n", Bold, Reset)
	}

	ids := make([]string, 0, len(wf.Steps))
	for id := range wf.Steps {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Printf("\n%sSteps:%s\n", Bold, Reset)
	for _, id := range ids {
		sr := wf.Steps[id]
		color := Dim
		switch sr.Status {
		case runstate.Completed:
			color = Green
		case runstate.Failed:
			color = Red
		case runstate.Running, runstate.WaitingOnHuman:
			color = Yellow
		}
		extra := ""
		if sr.Attempts > 1 {
			extra = fmt.Sprintf(" (attempt %d)", sr.Attempts)
		}
		if sr.IterationCount > 0 {
			extra += fmt.Sprintf(" (iteration %d)", sr.IterationCount)
		}
		fmt.Printf("  %-24s %s%-16s%s%s\n", id, color, sr.Status, Reset, extra)
		if sr.LastError != "" {
			fmt.Printf("    %s%s%s\n", Dim, sr.LastError, Reset)
		}
	}

	fmt.Printf("\n%sArtifacts:%s\n", Bold, Reset)
	entries, err := os.ReadDir(artifactsDir)
	if err != nil || len(entries) == 0 {
		fmt.Printf("  %s(none)%s\n", Dim, Reset)
		return
	}
	for _, e := range entries {
		fmt.Printf("  %s/%s\n", artifactsDir, e.Name())
	}
	fmt.Println()
}
