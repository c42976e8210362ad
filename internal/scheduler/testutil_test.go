package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jorge-barreto/agentdag/internal/config"
	"github.com/jorge-barreto/agentdag/internal/steprunner"
	"github.com/jorge-barreto/agentdag/internal/workflow"
)

// intPtr lets tests set config.Config's *int fields (MaxAttempts,
// MaxIterations) inline, including an explicit 0.
func intPtr(v int) *int { return &v }

// writePromptFixture drops a prompt file under s's prompt root so
// steprunner.ResolvePrompt succeeds for every step using that basename.
func writePromptFixture(t *testing.T, s *Scheduler, basename string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(s.PromptRoot, basename), []byte("do the thing"), 0644); err != nil {
		t.Fatalf("writing prompt fixture: %v", err)
	}
}

func statFixture(s *Scheduler, stepID string, attempt int) (os.FileInfo, error) {
	return os.Stat(steprunner.LogPath(s.RepoDir, s.RunID, stepID, attempt))
}

// wrapperReportingCompleted always reports COMPLETED with one log line,
// using the wall clock for started_at/ended_at so ordering invariants
// between sequential steps hold naturally.
const wrapperReportingCompleted = `
now() { date -u +"%Y-%m-%dT%H:%M:%S.%6NZ"; }
cat > "$REPORT_PATH" <<EOF
{"schema":"1","run_id":"$RUN_ID","step_id":"$STEP_ID","agent":"a","status":"COMPLETED","started_at":"$(now)","ended_at":"$(now)","logs":["ok"]}
EOF
`

// wrapperFailsOnce reports FAILED the first time it is invoked for a given
// report path, then COMPLETED on every subsequent invocation, using a
// sibling marker file to remember which attempt this is (§4.4's report
// path is stable across attempts; the marker lets the script tell them
// apart without reading STEP_ID-specific state).
const wrapperFailsOnce = `
now() { date -u +"%Y-%m-%dT%H:%M:%S.%6NZ"; }
marker="$REPORT_PATH.attempted"
if [ -f "$marker" ]; then
  status=COMPLETED
  logs='"logs":["ok"],'
else
  touch "$marker"
  status=FAILED
  logs=''
fi
cat > "$REPORT_PATH" <<EOF
{"schema":"1","run_id":"$RUN_ID","step_id":"$STEP_ID","agent":"a","status":"$status",$logs"started_at":"$(now)","ended_at":"$(now)"}
EOF
`

// wrapperGateFailure always reports COMPLETED with gate_failure=true.
const wrapperGateFailure = `
now() { date -u +"%Y-%m-%dT%H:%M:%S.%6NZ"; }
cat > "$REPORT_PATH" <<EOF
{"schema":"1","run_id":"$RUN_ID","step_id":"$STEP_ID","agent":"a","status":"COMPLETED","gate_failure":true,"logs":["ok"],"started_at":"$(now)","ended_at":"$(now)"}
EOF
`

// wrapperReportingApproved reports COMPLETED, surfacing whatever the
// manual-input-merged APPROVED env var holds (or "unset" if it was never
// set, as for a step that isn't waiting on human input).
const wrapperReportingApproved = `
now() { date -u +"%Y-%m-%dT%H:%M:%S.%6NZ"; }
cat > "$REPORT_PATH" <<EOF
{"schema":"1","run_id":"$RUN_ID","step_id":"$STEP_ID","agent":"a","status":"COMPLETED","logs":["approved=${APPROVED:-unset}"],"started_at":"$(now)","ended_at":"$(now)"}
EOF
`

// wrapperLoopExpansion plays two roles depending on STEP_ID: for "plan" it
// writes a stories.json artifact array under REPO_DIR and reports it as an
// artifact; for any loop-expanded "impl__*" child it reports its own
// LOOP_INDEX/LOOP_ITEM back in its log line so the test can confirm each
// child saw distinct env values; anything else just reports COMPLETED.
const wrapperLoopExpansion = `
now() { date -u +"%Y-%m-%dT%H:%M:%S.%6NZ"; }
case "$STEP_ID" in
  plan)
    echo '["a","b","c"]' > "$REPO_DIR/stories.json"
    extra='"artifacts":["stories.json"],'
    logline="ok"
    ;;
  impl__*)
    extra=''
    logline="index=$LOOP_INDEX item=$LOOP_ITEM"
    ;;
  *)
    extra=''
    logline="ok"
    ;;
esac
cat > "$REPORT_PATH" <<EOF
{"schema":"1","run_id":"$RUN_ID","step_id":"$STEP_ID","agent":"a","status":"COMPLETED",${extra}"logs":["$logline"],"started_at":"$(now)","ended_at":"$(now)"}
EOF
`

// wrapperUpstreamArtifact plays two roles depending on STEP_ID: "emit"
// writes a single artifact and reports it; "consume" reports back whatever
// convenience env vars the scheduler derived from it, so a test can check
// they carry the artifact's actual path.
const wrapperUpstreamArtifact = `
now() { date -u +"%Y-%m-%dT%H:%M:%S.%6NZ"; }
case "$STEP_ID" in
  emit)
    echo hello > "$REPO_DIR/issue.md"
    extra='"artifacts":["issue.md"],'
    logline="ok"
    ;;
  consume)
    extra=''
    logline="path=$ISSUE_MARKDOWN_PATH dir=$ISSUE_MARKDOWN_DIR filename=$ISSUE_MARKDOWN_FILENAME"
    ;;
  *)
    extra=''
    logline="ok"
    ;;
esac
cat > "$REPORT_PATH" <<EOF
{"schema":"1","run_id":"$RUN_ID","step_id":"$STEP_ID","agent":"a","status":"COMPLETED",${extra}"logs":["$logline"],"started_at":"$(now)","ended_at":"$(now)"}
EOF
`

func newTestScheduler(t *testing.T, wf *workflow.Workflow, cfg *config.Config, wrapperBody string) *Scheduler {
	t.Helper()
	repoDir := t.TempDir()
	cfg.WrapperArgv = []string{"sh", "-c", wrapperBody}
	if err := config.Validate(cfg); err != nil {
		t.Fatalf("config: %v", err)
	}
	if err := workflow.Validate(wf); err != nil {
		t.Fatalf("workflow: %v", err)
	}
	return New(wf, cfg, repoDir, t.TempDir(), nil)
}

// runTicks drives the scheduler's tick primitives directly (rather than
// through Run's blocking sleep loop) until cond reports done, or fails the
// test after timeout. Each iteration mirrors one §4.6 tick: admit,
// collect/resolve, derive loop parents.
func runTicks(t *testing.T, s *Scheduler, timeout time.Duration, cond func() bool) {
	t.Helper()
	ctx := context.Background()
	deadline := time.Now().Add(timeout)
	for {
		s.admit(ctx)
		s.collectAndResolve(ctx)
		s.deriveLoopParents()
		if cond() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for condition; run state: %+v", dumpStatuses(s))
		}
		time.Sleep(15 * time.Millisecond)
	}
}

func dumpStatuses(s *Scheduler) map[string]string {
	out := make(map[string]string, len(s.RunState.Steps))
	for id, sr := range s.RunState.Steps {
		out[id] = string(sr.Status)
	}
	return out
}

func allTerminal(s *Scheduler) func() bool {
	return func() bool { return s.RunState.AllTerminal() }
}
