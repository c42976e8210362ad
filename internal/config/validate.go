package config

import "fmt"

const (
	defaultPollInterval  = 0.5
	defaultMaxAttempts   = 2
	defaultMaxIterations = 4
	defaultKillGrace     = 10
)

var defaultPlaceholderBlacklist = []string{
	"<REPLACE",
	"REPLACE WITH",
	"summary of what you accomplished",
	"list/of/created/file/paths",
}

// Validate checks the config for errors and fills in defaults for every
// option left unset. MaxAttempts and MaxIterations are pointers rather
// than plain ints specifically so an explicit `max_attempts: 0` or
// `max_iterations: 0` in the options file (§8 boundary behavior: any
// failure, or any gate_failure, is immediately terminal) survives
// Validate instead of being coerced to the default alongside an options
// file that never mentioned the key at all.
func Validate(cfg *Config) error {
	if cfg.PollIntervalSeconds == 0 {
		cfg.PollIntervalSeconds = defaultPollInterval
	}
	if cfg.PollIntervalSeconds < 0 {
		return fmt.Errorf("config: poll_interval must be >= 0")
	}

	if cfg.MaxAttempts == nil {
		v := defaultMaxAttempts
		cfg.MaxAttempts = &v
	}
	if *cfg.MaxAttempts < 0 {
		return fmt.Errorf("config: max_attempts must be >= 0")
	}

	if cfg.MaxIterations == nil {
		v := defaultMaxIterations
		cfg.MaxIterations = &v
	}
	if *cfg.MaxIterations < 0 {
		return fmt.Errorf("config: max_iterations must be >= 0")
	}

	if cfg.KillGraceSeconds == 0 {
		cfg.KillGraceSeconds = defaultKillGrace
	}
	if cfg.KillGraceSeconds < 0 {
		return fmt.Errorf("config: kill_grace_seconds must be >= 0")
	}

	if len(cfg.PlaceholderBlacklist) == 0 {
		cfg.PlaceholderBlacklist = defaultPlaceholderBlacklist
	}

	if len(cfg.WrapperArgv) == 0 {
		return fmt.Errorf("config: wrapper_argv is required")
	}

	return nil
}
