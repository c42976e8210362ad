// Package config decodes the scheduler's recognized configuration options
// (§6 "Recognized configuration options"). The Workflow/Step/Loop data
// model lives in internal/workflow instead, since it is the persisted DAG
// definition, not a transient runtime option set.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every option the core scheduler consumes (§6). Fields left
// unset get defaults filled in by Validate. MaxAttempts and MaxIterations
// are *int, not int, so Validate can tell an absent key apart from an
// explicit zero (see Validate's doc comment); both are guaranteed non-nil
// once Validate has run.
type Config struct {
	PollIntervalSeconds float64           `yaml:"poll_interval"`
	MaxAttempts         *int              `yaml:"max_attempts"`
	MaxIterations       *int              `yaml:"max_iterations"`
	PauseForHumanInput  bool              `yaml:"pause_for_human_input"`
	StartAtStep         string            `yaml:"start_at_step"`
	GateStatePath       string            `yaml:"gate_state_path"`
	EnvOverrides        map[string]string `yaml:"env_overrides"`

	// KillGraceSeconds is the cancellation grace period (§5, default 10s).
	// Not in the §6 table itself but an ambient scheduler knob, decoded
	// the same way.
	KillGraceSeconds float64 `yaml:"kill_grace_seconds"`

	// PlaceholderBlacklist configures the Run-Report Validator's rejection
	// list (§4.1, §9 "Placeholder detection": "keep it injectable").
	PlaceholderBlacklist []string `yaml:"placeholder_blacklist"`

	// WrapperArgv is the configurable argv the Step Runner spawns (§6
	// "Wrapper process contract: invoked with a configurable argv").
	WrapperArgv []string `yaml:"wrapper_argv"`

	// PromptRoot is the workflow's prompt root, the fallback location
	// consulted by §4.4 step 1 after the packaged-prompt override.
	PromptRoot string `yaml:"prompt_root"`
}

// PollInterval returns the scheduler tick sleep as a time.Duration (§4.6
// step 5).
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds * float64(time.Second))
}

// KillGrace returns the cancellation grace period as a time.Duration (§5).
func (c *Config) KillGrace() time.Duration {
	return time.Duration(c.KillGraceSeconds * float64(time.Second))
}

// Load reads a YAML options document and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
