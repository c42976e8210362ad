package runstate

var stepRuntimeKnownKeys = []string{
	"status", "attempts", "iteration_count", "report_path", "started_at",
	"ended_at", "last_error", "artifacts", "metrics", "logs",
	"manual_input_path", "blocked_by_loop", "loop_children",
	"loop_index", "loop_item",
}

// stepRuntimeAlias has StepRuntime's fields without its methods, so the
// alias can be marshaled/unmarshaled directly without recursing back into
// StepRuntime's own MarshalJSON/UnmarshalJSON.
type stepRuntimeAlias StepRuntime

func (s *StepRuntime) UnmarshalJSON(data []byte) error {
	var alias stepRuntimeAlias
	extra, err := decodeWithExtra(data, stepRuntimeKnownKeys, &alias)
	if err != nil {
		return err
	}
	*s = StepRuntime(alias)
	s.extra = extra
	return nil
}

func (s StepRuntime) MarshalJSON() ([]byte, error) {
	return encodeWithExtra(stepRuntimeAlias(s), s.extra)
}

var runStateKnownKeys = []string{
	"schema", "run_id", "workflow_name", "repo_dir", "reports_dir",
	"manual_inputs_dir", "created_at", "updated_at", "steps",
}

type runStateAlias RunState

func (rs *RunState) UnmarshalJSON(data []byte) error {
	var alias runStateAlias
	extra, err := decodeWithExtra(data, runStateKnownKeys, &alias)
	if err != nil {
		return err
	}
	*rs = RunState(alias)
	rs.extra = extra
	return nil
}

func (rs RunState) MarshalJSON() ([]byte, error) {
	return encodeWithExtra(runStateAlias(rs), rs.extra)
}
