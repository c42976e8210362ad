package runstate

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileIsNewRun(t *testing.T) {
	rs, ok, err := Load(filepath.Join(t.TempDir(), "run_state.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok || rs != nil {
		t.Fatalf("expected (nil, false, nil) for a missing file, got (%v, %v, %v)", rs, ok, err)
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run_state.json")
	rs := New("abc123", "demo", "/repo", "/repo/.agents/runs/abc123/reports", "/repo/.agents/runs/abc123/manual_inputs", []string{"a", "b"})
	rs.Steps["a"].Status = Completed
	rs.Steps["a"].Artifacts = []string{"out/plan.md"}

	if err := rs.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, ok, err := Load(path)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if loaded.RunID != rs.RunID || loaded.WorkflowName != rs.WorkflowName {
		t.Fatalf("round trip mismatch: %+v vs %+v", loaded, rs)
	}
	if loaded.Steps["a"].Status != Completed {
		t.Fatalf("expected step a COMPLETED, got %v", loaded.Steps["a"].Status)
	}
	if len(loaded.Steps["a"].Artifacts) != 1 || loaded.Steps["a"].Artifacts[0] != "out/plan.md" {
		t.Fatalf("artifacts not preserved: %v", loaded.Steps["a"].Artifacts)
	}
}

func TestLoad_CorruptJSONErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run_state.json")
	if err := writeFileAtomic(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if _, _, err := Load(path); err == nil {
		t.Fatalf("expected error for corrupt JSON")
	}
}

func TestSetLoopItem_ScalarRoundTrips(t *testing.T) {
	sr := NewStepRuntime()
	if err := sr.SetLoopItem(2, "story-3"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	idx, item, ok := sr.DecodedLoopItem()
	if !ok || idx != 2 || item != "story-3" {
		t.Fatalf("unexpected decode: idx=%d item=%v ok=%v", idx, item, ok)
	}
}

func TestSetLoopItem_ObjectRoundTrips(t *testing.T) {
	sr := NewStepRuntime()
	if err := sr.SetLoopItem(0, map[string]any{"id": "s1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, item, ok := sr.DecodedLoopItem()
	if !ok {
		t.Fatal("expected DecodedLoopItem to report true")
	}
	m, isMap := item.(map[string]any)
	if !isMap || m["id"] != "s1" {
		t.Fatalf("unexpected decoded item: %v", item)
	}
}

func TestDecodedLoopItem_AbsentForOrdinaryStep(t *testing.T) {
	sr := NewStepRuntime()
	if _, _, ok := sr.DecodedLoopItem(); ok {
		t.Fatal("expected ok=false for a step that never carried a loop item")
	}
}

func TestUnknownFieldsSurviveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run_state.json")
	raw := `{
		"schema": "1",
		"run_id": "abc123",
		"workflow_name": "demo",
		"repo_dir": "/repo",
		"reports_dir": "/repo/.agents/runs/abc123/reports",
		"manual_inputs_dir": "/repo/.agents/runs/abc123/manual_inputs",
		"created_at": "2026-01-01T00:00:00.000000Z",
		"updated_at": "2026-01-01T00:00:00.000000Z",
		"steps": {
			"a": {"status": "PENDING", "attempts": 0, "iteration_count": 0, "future_field": "keep-me"}
		},
		"future_top_level_field": 42
	}`
	if err := writeFileAtomic(path, []byte(raw), 0644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	rs, ok, err := Load(path)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if err := rs.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	var roundTripped map[string]json.RawMessage
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := json.Unmarshal(data, &roundTripped); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if string(roundTripped["future_top_level_field"]) != "42" {
		t.Fatalf("expected future_top_level_field to survive, got %v", roundTripped["future_top_level_field"])
	}

	var steps map[string]json.RawMessage
	if err := json.Unmarshal(roundTripped["steps"], &steps); err != nil {
		t.Fatalf("unmarshal steps: %v", err)
	}
	var stepA map[string]json.RawMessage
	if err := json.Unmarshal(steps["a"], &stepA); err != nil {
		t.Fatalf("unmarshal step a: %v", err)
	}
	if string(stepA["future_field"]) != `"keep-me"` {
		t.Fatalf("expected future_field to survive on step a, got %v", stepA["future_field"])
	}
}
