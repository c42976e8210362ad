package steprunner

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// EnvSpec carries everything BuildEnv needs to assemble one wrapper
// invocation's environment (§4.4 step 3).
type EnvSpec struct {
	RunID        string
	StepID       string
	RepoDir      string
	ReportPath   string
	ArtifactsDir string
	LogsDir      string
	PromptPath   string

	// Overrides are operator-provided key=value pairs from the workflow
	// config's env_overrides (§6), applied after the fixed vars above.
	Overrides map[string]string

	// Upstream carries convenience mappings derived from a predecessor
	// step's artifacts, keyed by env var name. The mapping rule itself is
	// workflow-specific and lives outside this package (§4.4: "registered
	// workflows may additionally expose upstream artifact paths under
	// convenience env var names").
	Upstream map[string]string

	// LoopIndex/LoopItem are set only for a loop-expanded child step.
	LoopVarSet bool
	IndexVar   string
	ItemVar    string
	LoopIndex  int
	LoopItem   any

	// ManualInput carries fields absorbed from an operator-written manual
	// input file (§4.4 step 5), already uppercased.
	ManualInput map[string]string
}

// BuildEnv renders spec into a process environment: the host's own
// environment snapshot, then the fixed RUN_ID/STEP_ID/... vars, then
// operator overrides, upstream convenience vars, loop vars, and finally
// absorbed manual input — each layer able to shadow the one before it,
// matching the precedence order the fixed vars are described in (§4.4).
func BuildEnv(base []string, spec EnvSpec) []string {
	out := append([]string{}, base...)

	add := func(k, v string) { out = append(out, k+"="+v) }

	add("RUN_ID", spec.RunID)
	add("STEP_ID", spec.StepID)
	add("REPO_DIR", spec.RepoDir)
	add("REPORT_PATH", spec.ReportPath)
	add("ARTIFACTS_DIR", spec.ArtifactsDir)
	add("LOGS_DIR", spec.LogsDir)
	add("PROMPT_PATH", spec.PromptPath)

	for k, v := range spec.Overrides {
		add(k, v)
	}
	for k, v := range spec.Upstream {
		add(k, v)
	}

	if spec.LoopVarSet {
		indexVar := spec.IndexVar
		if indexVar == "" {
			indexVar = "LOOP_INDEX"
		}
		itemVar := spec.ItemVar
		if itemVar == "" {
			itemVar = "LOOP_ITEM"
		}
		add(strings.ToUpper(indexVar), strconv.Itoa(spec.LoopIndex))
		add(strings.ToUpper(itemVar), encodeLoopItem(spec.LoopItem))
	}

	for k, v := range spec.ManualInput {
		add(k, v)
	}

	return out
}

// encodeLoopItem renders a loop item for env var exposure: scalars pass
// through as their natural string form, objects and arrays are
// JSON-encoded (§4.4: "JSON-encoded for complex items, raw string for
// scalars").
func encodeLoopItem(item any) string {
	switch v := item.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	default:
		b, err := json.Marshal(item)
		if err != nil {
			return fmt.Sprintf("%v", item)
		}
		return string(b)
	}
}

// ReadManualInput decodes an operator-written manual input file into an
// env-var-ready map: keys uppercased, values coerced to their string form
// (§4.4 step 5, §7: "presence alone satisfies WAITING_ON_HUMAN; fields are
// merged into the resuming step's env").
func ReadManualInput(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		out[strings.ToUpper(k)] = encodeLoopItem(v)
	}
	return out, nil
}
