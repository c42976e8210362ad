package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/jorge-barreto/agentdag/internal/workflowerr"
)

// Validator parses and validates run-report files against an injectable
// placeholder blacklist (§9 "Placeholder detection is a configuration, not
// a hard-coded list").
type Validator struct {
	Blacklist []string
}

// NewValidator returns a Validator with the given placeholder blacklist.
func NewValidator(blacklist []string) *Validator {
	return &Validator{Blacklist: blacklist}
}

// Parse reads, decodes, and validates the report at path (§4.1). Read and
// decode failures retry with bounded exponential backoff, since wrappers
// may publish atomically but racey filesystems can expose partial reads;
// validation failures (missing fields, bad timestamps, placeholder
// content) are not transient and return immediately without retrying.
func (v *Validator) Parse(ctx context.Context, path string) (*RunReport, error) {
	operation := func() (*RunReport, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var raw rawReport
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		rep, verr := v.normalize(&raw, path)
		if verr != nil {
			return nil, backoff.Permanent(verr)
		}
		return rep, nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond

	rep, err := backoff.Retry(ctx, operation, backoff.WithBackOff(b), backoff.WithMaxTries(5))
	if err != nil {
		if _, ok := err.(*workflowerr.PlaceholderContentError); ok {
			return nil, err
		}
		if _, ok := err.(*workflowerr.ReportParseError); ok {
			return nil, err
		}
		return nil, &workflowerr.ReportParseError{Path: path, Cause: err}
	}
	return rep, nil
}

func (v *Validator) normalize(raw *rawReport, path string) (*RunReport, error) {
	fail := func(reason string) error {
		return &workflowerr.ReportParseError{Path: path, Cause: fmt.Errorf("%s", reason)}
	}

	switch {
	case raw.Schema == "":
		return nil, fail("missing required field 'schema'")
	case raw.RunID == "":
		return nil, fail("missing required field 'run_id'")
	case raw.StepID == "":
		return nil, fail("missing required field 'step_id'")
	case raw.Agent == "":
		return nil, fail("missing required field 'agent'")
	}

	status := Status(raw.Status)
	if status != StatusCompleted && status != StatusFailed {
		return nil, fail(fmt.Sprintf("status must be COMPLETED or FAILED, got %q", raw.Status))
	}

	if !validTimestamp(raw.StartedAt) {
		return nil, fail(fmt.Sprintf("started_at %q is not an RFC 3339 UTC timestamp", raw.StartedAt))
	}
	if !validTimestamp(raw.EndedAt) {
		return nil, fail(fmt.Sprintf("ended_at %q is not an RFC 3339 UTC timestamp", raw.EndedAt))
	}

	artifacts := normalizeStrings(raw.Artifacts)
	logs := normalizeStrings(raw.Logs)
	next := normalizeStrings(raw.NextSuggestedSteps)

	if needle := v.findPlaceholder(artifacts, logs); needle != "" {
		return nil, &workflowerr.PlaceholderContentError{Path: path, Field: "artifacts/logs", Needle: needle}
	}

	if status == StatusCompleted && len(logs) == 0 {
		return nil, &workflowerr.PlaceholderContentError{Path: path, Field: "at least one log entry is required when status == COMPLETED"}
	}

	metrics := make(map[string]string, len(raw.Metrics))
	for k, val := range raw.Metrics {
		metrics[k] = fmt.Sprintf("%v", val)
	}

	return &RunReport{
		Schema:             raw.Schema,
		RunID:              raw.RunID,
		StepID:             raw.StepID,
		Agent:              raw.Agent,
		Status:             status,
		StartedAt:          raw.StartedAt,
		EndedAt:            raw.EndedAt,
		Artifacts:          artifacts,
		Metrics:            metrics,
		Logs:               logs,
		GateFailure:        raw.GateFailure,
		NextSuggestedSteps: next,
	}, nil
}

// findPlaceholder returns the first blacklisted needle found (case
// insensitive) across artifacts and logs, or "" if none match.
func (v *Validator) findPlaceholder(artifacts, logs []string) string {
	for _, needle := range v.Blacklist {
		lower := strings.ToLower(needle)
		for _, s := range append(append([]string{}, artifacts...), logs...) {
			if strings.Contains(strings.ToLower(s), lower) {
				return needle
			}
		}
	}
	return ""
}

// normalizeStrings trims whitespace and drops empty entries (§4.1
// "Normalize").
func normalizeStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// validTimestamp reports whether s is an RFC 3339 timestamp with a UTC
// offset (Z or +00:00) and is not the Unix epoch sentinel (§4.1 "the epoch
// sentinel and naive local times are rejected"). RFC 3339 requires an
// offset, so a naive local timestamp fails parsing outright.
func validTimestamp(s string) bool {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return false
	}
	if _, offset := t.Zone(); offset != 0 {
		return false
	}
	return !t.Equal(time.Unix(0, 0).UTC())
}
