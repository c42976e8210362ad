package workflow

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML workflow document and returns a validated Workflow:
// decode first, validate (and fill in defaults) second.
func Load(path string) (*Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var w Workflow
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	if err := Validate(&w); err != nil {
		return nil, err
	}
	return &w, nil
}
