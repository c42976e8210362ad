package notify

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogTail_ShortFileReturnedWhole(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.txt")
	if err := os.WriteFile(path, []byte("line1\nline2\n"), 0644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	got := LogTail(path)
	if got != "line1\nline2\n" {
		t.Fatalf("unexpected tail: %q", got)
	}
}

func TestLogTail_LongFileTruncated(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.txt")
	var sb strings.Builder
	for i := 0; i < 250; i++ {
		sb.WriteString("line\n")
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	got := LogTail(path)
	if !strings.HasPrefix(got, "... (truncated to last 200 lines)") {
		t.Fatalf("expected truncation marker, got prefix: %q", got[:40])
	}
}

func TestLogTail_MissingFile(t *testing.T) {
	got := LogTail(filepath.Join(t.TempDir(), "missing.txt"))
	if got != "(no log file found)" {
		t.Fatalf("unexpected result: %q", got)
	}
}

type recordingSink struct {
	events []Event
	err    error
}

func (r *recordingSink) Notify(_ context.Context, event Event) error {
	r.events = append(r.events, event)
	return r.err
}

func TestConsoleSink_WritesFailedAndPausedLines(t *testing.T) {
	var buf strings.Builder
	sink := &ConsoleSink{Out: &buf}

	if err := sink.Notify(context.Background(), Event{Kind: StepFailed, StepID: "impl", Attempts: 2, LastError: "boom"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "impl") || !strings.Contains(buf.String(), "boom") {
		t.Fatalf("expected failure line to mention step and error, got %q", buf.String())
	}

	buf.Reset()
	if err := sink.Notify(context.Background(), Event{Kind: StepPaused, StepID: "review", ManualInputPath: "/run/manual.json"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "review") || !strings.Contains(buf.String(), "/run/manual.json") {
		t.Fatalf("expected pause line to mention step and manual input path, got %q", buf.String())
	}
}

func TestMultiSink_FansOutToAll(t *testing.T) {
	a := &recordingSink{}
	b := &recordingSink{}
	m := NewMultiSink(a, b)

	event := Event{Kind: StepFailed, StepID: "impl"}
	if err := m.Notify(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(a.events) != 1 || len(b.events) != 1 {
		t.Fatalf("expected both sinks to receive the event, got a=%d b=%d", len(a.events), len(b.events))
	}
}

func TestMultiSink_OneSinkFailureDoesNotBlockOthers(t *testing.T) {
	failing := &recordingSink{err: errors.New("unreachable")}
	ok := &recordingSink{}
	m := NewMultiSink(failing, ok)

	if err := m.Notify(context.Background(), Event{Kind: StepFailed, StepID: "impl"}); err != nil {
		t.Fatalf("MultiSink.Notify must never return an error itself, got %v", err)
	}
	if len(ok.events) != 1 {
		t.Fatalf("expected the healthy sink to still receive the event")
	}
}

func TestMultiSink_SkipsNilSinks(t *testing.T) {
	ok := &recordingSink{}
	m := NewMultiSink(nil, ok)
	if err := m.Notify(context.Background(), Event{Kind: StepPaused, StepID: "review"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ok.events) != 1 {
		t.Fatalf("expected the non-nil sink to still receive the event")
	}
}
