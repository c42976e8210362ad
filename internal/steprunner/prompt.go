package steprunner

import (
	"os"
	"path/filepath"

	"github.com/jorge-barreto/agentdag/internal/workflowerr"
)

// ResolvePrompt resolves a step's prompt file: an operator override under
// <repo>/.agents/prompts/<basename> takes precedence over the workflow's
// own prompt root (§4.4 step 1). A step whose prompt resolves to neither
// location is a per-step fatal error, not a retry.
func ResolvePrompt(repoDir, promptRoot, stepID, relPath string) (string, error) {
	override := PromptOverridePath(repoDir, filepath.Base(relPath))
	if _, err := os.Stat(override); err == nil {
		return override, nil
	}

	fallback := filepath.Join(promptRoot, relPath)
	if _, err := os.Stat(fallback); err == nil {
		return fallback, nil
	}

	return "", &workflowerr.PromptNotFoundError{StepID: stepID, Path: relPath}
}
