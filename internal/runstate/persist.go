package runstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Path returns the canonical run_state.json location for a run (§6
// "Filesystem layout").
func Path(repoDir, runID string) string {
	return filepath.Join(repoDir, ".agents", "runs", runID, "run_state.json")
}

// Load reads a RunState document. A missing file means "new run": it
// returns (nil, false, nil) rather than an error, matching §4.2's "loading
// tolerates an absent file." A corrupt document is a hard error.
func Load(path string) (*RunState, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var rs RunState
	if err := json.Unmarshal(data, &rs); err != nil {
		return nil, false, fmt.Errorf("runstate: corrupt state at %s: %w", path, err)
	}
	return &rs, true, nil
}

// Save writes rs to path with indented formatting, refreshing UpdatedAt,
// via a temp-file-then-rename so a crash mid-write never leaves a partial
// document (§4.2 "writes happen after every state transition").
func (rs *RunState) Save(path string) error {
	rs.UpdatedAt = Now()
	data, err := json.MarshalIndent(rs, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data, 0644)
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
