package report

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeReport(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write report: %v", err)
	}
	return path
}

func validReportJSON() string {
	return `{
		"schema": "1",
		"run_id": "abc123",
		"step_id": "build",
		"agent": "claude",
		"status": "COMPLETED",
		"started_at": "2026-01-01T00:00:00.000000Z",
		"ended_at": "2026-01-01T00:00:05.000000Z",
		"artifacts": ["out/build.log", "  ", ""],
		"metrics": {"duration_s": 5, "ok": true},
		"logs": ["build succeeded"]
	}`
}

func TestParse_Valid(t *testing.T) {
	dir := t.TempDir()
	path := writeReport(t, dir, "r.json", validReportJSON())
	v := NewValidator(nil)
	rep, err := v.Parse(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Status != StatusCompleted {
		t.Fatalf("expected COMPLETED, got %v", rep.Status)
	}
	if len(rep.Artifacts) != 1 || rep.Artifacts[0] != "out/build.log" {
		t.Fatalf("expected whitespace/empty artifacts dropped, got %v", rep.Artifacts)
	}
	if rep.Metrics["duration_s"] != "5" {
		t.Fatalf("expected metric coerced to string, got %q", rep.Metrics["duration_s"])
	}
}

func TestParse_MissingRequiredField(t *testing.T) {
	dir := t.TempDir()
	path := writeReport(t, dir, "r.json", `{"schema":"1","run_id":"x","step_id":"a","agent":"claude","status":"COMPLETED","ended_at":"2026-01-01T00:00:00Z","logs":["ok"]}`)
	v := NewValidator(nil)
	if _, err := v.Parse(context.Background(), path); err == nil || !strings.Contains(err.Error(), "started_at") {
		t.Fatalf("expected started_at error, got %v", err)
	}
}

func TestParse_RejectsEpochSentinel(t *testing.T) {
	dir := t.TempDir()
	content := strings.ReplaceAll(validReportJSON(), "2026-01-01T00:00:00.000000Z", "1970-01-01T00:00:00Z")
	path := writeReport(t, dir, "r.json", content)
	v := NewValidator(nil)
	if _, err := v.Parse(context.Background(), path); err == nil {
		t.Fatalf("expected epoch sentinel to be rejected")
	}
}

func TestParse_RejectsNaiveLocalTime(t *testing.T) {
	dir := t.TempDir()
	content := strings.ReplaceAll(validReportJSON(), "2026-01-01T00:00:00.000000Z", "2026-01-01T00:00:00")
	path := writeReport(t, dir, "r.json", content)
	v := NewValidator(nil)
	if _, err := v.Parse(context.Background(), path); err == nil {
		t.Fatalf("expected naive local timestamp to be rejected")
	}
}

func TestParse_PlaceholderContentRejected(t *testing.T) {
	dir := t.TempDir()
	content := strings.ReplaceAll(validReportJSON(), "build succeeded", "<REPLACE with summary of what you accomplished>")
	path := writeReport(t, dir, "r.json", content)
	v := NewValidator([]string{"<REPLACE", "summary of what you accomplished"})
	if _, err := v.Parse(context.Background(), path); err == nil || !strings.Contains(err.Error(), "placeholder") {
		t.Fatalf("expected placeholder-content error, got %v", err)
	}
}

func TestParse_CompletedRequiresAtLeastOneLog(t *testing.T) {
	dir := t.TempDir()
	content := strings.ReplaceAll(validReportJSON(), `"logs": ["build succeeded"]`, `"logs": []`)
	path := writeReport(t, dir, "r.json", content)
	v := NewValidator(nil)
	if _, err := v.Parse(context.Background(), path); err == nil || !strings.Contains(err.Error(), "log entry") {
		t.Fatalf("expected missing log entry error, got %v", err)
	}
}

func TestParse_InvalidStatus(t *testing.T) {
	dir := t.TempDir()
	content := strings.ReplaceAll(validReportJSON(), `"status": "COMPLETED"`, `"status": "DONE"`)
	path := writeReport(t, dir, "r.json", content)
	v := NewValidator(nil)
	if _, err := v.Parse(context.Background(), path); err == nil || !strings.Contains(err.Error(), "COMPLETED or FAILED") {
		t.Fatalf("expected invalid status error, got %v", err)
	}
}

func TestParse_RetriesOnCorruptJSONThenFails(t *testing.T) {
	dir := t.TempDir()
	path := writeReport(t, dir, "r.json", "{not valid json")
	v := NewValidator(nil)
	if _, err := v.Parse(context.Background(), path); err == nil {
		t.Fatalf("expected report-parse-error for corrupt JSON")
	}
}

func TestExtractInlineMarker(t *testing.T) {
	stdout := "some log line\n<<<RUN_REPORT_JSON\n{\"status\":\"COMPLETED\"}\nRUN_REPORT_JSON>>>\nmore output"
	got, ok := ExtractInlineMarker(stdout)
	if !ok {
		t.Fatalf("expected marker to be found")
	}
	if !strings.Contains(got, `"status":"COMPLETED"`) {
		t.Fatalf("unexpected extracted content: %q", got)
	}
}

func TestExtractInlineMarker_Absent(t *testing.T) {
	if _, ok := ExtractInlineMarker("no markers here"); ok {
		t.Fatalf("expected no marker to be found")
	}
}
