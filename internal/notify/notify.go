// Package notify fires failure/pause events to a pluggable sink (§4.7
// "Notification Dispatcher").
package notify

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Kind distinguishes the two mandatory event kinds.
type Kind string

const (
	StepFailed Kind = "step-failed"
	StepPaused Kind = "step-paused"
)

// Event is the payload handed to every Sink. ManualInputPath is only set
// for StepPaused.
type Event struct {
	Kind            Kind
	RunID           string
	StepID          string
	Attempts        int
	IterationCount  int
	LogTail         string
	ManualInputPath string
	LastError       string
}

// Sink is a single notification destination.
type Sink interface {
	Notify(ctx context.Context, event Event) error
}

const maxLogLines = 200

// LogTail reads path and returns its last maxLogLines lines, prefixed with
// a truncation marker when it had to cut anything.
func LogTail(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "(no log file found)"
	}
	lines := strings.Split(string(data), "\n")
	if len(lines) > maxLogLines {
		lines = lines[len(lines)-maxLogLines:]
		return fmt.Sprintf("... (truncated to last %d lines)\n%s", maxLogLines, strings.Join(lines, "\n"))
	}
	return string(data)
}
