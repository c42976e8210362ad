// Package loopexpand turns a declared Step carrying a loop block into a
// sequence of concrete runtime child instances (§4.5 "Loop Expander").
package loopexpand

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jorge-barreto/agentdag/internal/runstate"
	"github.com/jorge-barreto/agentdag/internal/workflow"
	"github.com/jorge-barreto/agentdag/internal/workflowerr"
)

// Child pairs a synthetic runtime Step with the loop item and index it was
// materialized for.
type Child struct {
	Step  workflow.Step
	Index int
	Item  any
}

// Resolve resolves step's loop item list at the moment the declared step
// becomes ready (§4.5: "not at workflow load time, since items may depend
// on a predecessor's output").
func Resolve(step *workflow.Step, repoDir string, rs *runstate.RunState) ([]any, error) {
	kind, err := step.Loop.Source(step.ID)
	if err != nil {
		return nil, err
	}

	var items []any
	switch kind {
	case workflow.SourceInline:
		items = step.Loop.Items
	case workflow.SourceFromStep:
		items, err = resolveFromStep(step, repoDir, rs)
	case workflow.SourceFromArtifact:
		items, err = readJSONArrayFile(step.ID, filepath.Join(repoDir, step.Loop.ItemsFromArtifact))
	}
	if err != nil {
		return nil, err
	}

	if step.Loop.MaxIterations > 0 && len(items) > step.Loop.MaxIterations {
		items = items[:step.Loop.MaxIterations]
	}
	return items, nil
}

func resolveFromStep(step *workflow.Step, repoDir string, rs *runstate.RunState) ([]any, error) {
	predID := step.Loop.ItemsFromStep
	pred := rs.Steps[predID]
	if pred == nil {
		return nil, &workflowerr.LoopSourceError{
			StepID: step.ID,
			Reason: fmt.Sprintf("items_from_step %q has no runtime state", predID),
		}
	}

	if metricName := step.Loop.ItemsFromStepMetric; metricName != "" {
		val, ok := pred.Metrics[metricName]
		if !ok {
			return nil, &workflowerr.LoopSourceError{
				StepID: step.ID,
				Reason: fmt.Sprintf("items_from_step_metric %q not present in %q's metrics", metricName, predID),
			}
		}
		var items []any
		if err := json.Unmarshal([]byte(val), &items); err != nil {
			return nil, &workflowerr.LoopSourceError{
				StepID: step.ID,
				Reason: fmt.Sprintf("metric %q on %q is not a JSON array: %v", metricName, predID, err),
			}
		}
		return items, nil
	}

	if len(pred.Artifacts) == 0 {
		return nil, &workflowerr.LoopSourceError{
			StepID: step.ID,
			Reason: fmt.Sprintf("items_from_step %q produced no artifacts", predID),
		}
	}
	return readJSONArrayFile(step.ID, filepath.Join(repoDir, pred.Artifacts[0]))
}

func readJSONArrayFile(stepID, path string) ([]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &workflowerr.LoopSourceError{StepID: stepID, Reason: fmt.Sprintf("reading %s: %v", path, err)}
	}
	var items []any
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, &workflowerr.LoopSourceError{StepID: stepID, Reason: fmt.Sprintf("%s is not a JSON array: %v", path, err)}
	}
	return items, nil
}

// Expand materializes one Child per resolved item. Each child inherits the
// declared step's Needs, Agent, Prompt, Gates, HumanInTheLoop, LoopBackTo,
// SkipPolicy, and TimeoutSeconds, and additionally depends serially on its
// previous sibling so children run in order (§4.5). Preserving LoopBackTo
// on every child, rather than only the first, is what lets a loop-back
// fired from any child N correctly target the declared step's ancestor and
// reset the whole group.
func Expand(step *workflow.Step, items []any) []Child {
	out := make([]Child, len(items))
	width := digitWidth(len(items))
	var prevID string
	for i, item := range items {
		id := fmt.Sprintf("%s__%0*d", step.ID, width, i)
		needs := append([]string{}, step.Needs...)
		if prevID != "" {
			needs = append(needs, prevID)
		}
		out[i] = Child{
			Index: i,
			Item:  item,
			Step: workflow.Step{
				ID:             id,
				Agent:          step.Agent,
				Prompt:         step.Prompt,
				Needs:          needs,
				Gates:          step.Gates,
				HumanInTheLoop: step.HumanInTheLoop,
				LoopBackTo:     step.LoopBackTo,
				SkipPolicy:     step.SkipPolicy,
				TimeoutSeconds: step.TimeoutSeconds,
			},
		}
		prevID = id
	}
	return out
}

// ChildIDs returns the ordered synthetic ids Expand would assign, without
// building full Step records. The scheduler does not call it: on rewind it
// restores a previously materialized child list from the declared step's
// persisted LoopChildren (§9 Open Question).
func ChildIDs(stepID string, count int) []string {
	width := digitWidth(count)
	ids := make([]string, count)
	for i := range ids {
		ids[i] = fmt.Sprintf("%s__%0*d", stepID, width, i)
	}
	return ids
}

// digitWidth returns the zero-padding width Expand uses for a loop of the
// given size: at least 2 digits (matching impl__00, impl__01 in the
// reference scenario), growing to fit larger counts.
func digitWidth(count int) int {
	if count <= 1 {
		return 2
	}
	width := len(strconv.Itoa(count - 1))
	if width < 2 {
		return 2
	}
	return width
}
