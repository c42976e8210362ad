// Package gate answers "are this step's external gates satisfied?" by
// reading an operator-maintained JSON file (§4.3 "Gate Evaluator").
package gate

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
)

// Evaluator evaluates gate predicates against an external JSON map. The
// map is reloaded from disk on every Open call — never cached — so an
// operator flipping a gate between scheduler ticks (§4.3 "gates may flip
// open asynchronously between ticks") is picked up immediately.
type Evaluator struct {
	// Path is the gate state file location. Empty means no gate file is
	// configured, in which case every gate is open (§4.3).
	Path string
}

// NewEvaluator returns an Evaluator reading gate state from path.
func NewEvaluator(path string) *Evaluator {
	return &Evaluator{Path: path}
}

// Open reports whether every predicate named in stepID's gates is truthy
// in the current gate state (§4.3). A step declaring no gates is always
// open, with or without a configured gate file.
func (e *Evaluator) Open(stepID string, predicates []string) bool {
	if len(predicates) == 0 {
		return true
	}
	if e.Path == "" {
		return true
	}
	state, err := e.load()
	if err != nil {
		// An unreadable or corrupt gate file can't vouch for any
		// predicate; fail closed rather than launch a step whose gates
		// could not be verified.
		return false
	}
	for _, p := range predicates {
		if !state[p] {
			return false
		}
	}
	return true
}

func (e *Evaluator) load() (map[string]bool, error) {
	data, err := os.ReadFile(e.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]bool{}, nil
		}
		return nil, err
	}
	var state map[string]bool
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return state, nil
}
