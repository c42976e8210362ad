// Package workflow defines the static Workflow/Step/Loop data model (§3) and
// the DAG invariants loaded once per run (§3 "Invariants on the DAG").
//
// A YAML document decodes into a flat list of declarative units (Step),
// validated in a second pass that also fills in defaults. Steps form an
// explicit DAG via each Step's Needs set, rather than an implicit chain.
package workflow

// Workflow is a named, immutable DAG loaded once per run (§3).
type Workflow struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Steps       []Step `yaml:"steps" json:"steps"`
}

// OnFailPolicy controls whether a step admits when one of its Needs is
// SKIPPED rather than COMPLETED (§4.6 Admit, "advance-on-skip").
type OnFailPolicy string

const (
	// AdvanceOnSkip treats a SKIPPED dependency as satisfied for admission
	// purposes, same as COMPLETED.
	AdvanceOnSkip OnFailPolicy = "advance-on-skip"
	// BlockOnSkip (default) treats a SKIPPED dependency as never satisfied;
	// dependents of a skipped step are themselves skipped by extension.
	BlockOnSkip OnFailPolicy = "block-on-skip"
)

// Step is the static configuration of one unit of work in the DAG (§3).
type Step struct {
	ID      string `yaml:"id" json:"id"`
	Agent   string `yaml:"agent" json:"agent"`
	Prompt  string `yaml:"prompt" json:"prompt"`
	Needs   []string `yaml:"needs" json:"needs"`
	NextOnSuccess []string `yaml:"next_on_success" json:"next_on_success"`
	Gates   []string `yaml:"gates" json:"gates"`

	HumanInTheLoop bool   `yaml:"human_in_the_loop" json:"human_in_the_loop"`
	LoopBackTo     string `yaml:"loop_back_to" json:"loop_back_to"`

	Loop *Loop `yaml:"loop" json:"loop"`

	// SkipPolicy governs whether this step admits when one of its Needs is
	// SKIPPED. Defaults to BlockOnSkip if empty.
	SkipPolicy OnFailPolicy `yaml:"skip_policy" json:"skip_policy"`

	// TimeoutSeconds is the optional per-step wall-clock limit (§5
	// "Timeouts"), in seconds. Zero means no timeout.
	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds"`

	// ArtifactEnv declares convenience env var families derived from a
	// predecessor's emitted artifacts (§4.4 step 3: "for each
	// predecessor, if a registered convenience mapping exists ... export
	// those derived paths").
	ArtifactEnv []UpstreamArtifactEnv `yaml:"artifact_env" json:"artifact_env"`
}

// UpstreamArtifactEnv names one predecessor artifact whose path should be
// exported under <Prefix>_PATH/_DIR/_FILENAME env vars (§4.4 step 3's
// worked example: ISSUE_MARKDOWN_PATH/_DIR/_FILENAME). ArtifactIndex
// selects which of the predecessor's artifacts to use, defaulting to the
// first one.
type UpstreamArtifactEnv struct {
	FromStep      string `yaml:"from_step" json:"from_step"`
	Prefix        string `yaml:"prefix" json:"prefix"`
	ArtifactIndex int    `yaml:"artifact_index" json:"artifact_index"`
}

// Loop is the optional loop configuration on a Step (§4.5). Exactly one of
// Items, ItemsFromStep, or ItemsFromArtifact must be set; this is enforced
// structurally by Source() rather than by a post-hoc validation pass, per
// the Design Notes' "Polymorphism over sources" guidance.
type Loop struct {
	Items             []any  `yaml:"items" json:"items"`
	ItemsFromStep     string `yaml:"items_from_step" json:"items_from_step"`
	ItemsFromArtifact string `yaml:"items_from_artifact" json:"items_from_artifact"`

	// ItemsFromStepMetric, if set, selects a named entry in the
	// predecessor's metrics map instead of artifacts[0] (§4.5).
	ItemsFromStepMetric string `yaml:"items_from_step_metric" json:"items_from_step_metric"`

	ItemVar  string `yaml:"item_var" json:"item_var"`
	IndexVar string `yaml:"index_var" json:"index_var"`

	MaxIterations int `yaml:"max_iterations" json:"max_iterations"`
}

// DefaultItemVar and DefaultIndexVar are the env var names used when a
// Loop does not override them (§4.5 table).
const (
	DefaultItemVar  = "LOOP_ITEM"
	DefaultIndexVar = "LOOP_INDEX"
)

// ItemVarOrDefault returns the configured item env var name, or
// DefaultItemVar if unset.
func (l *Loop) ItemVarOrDefault() string {
	if l.ItemVar != "" {
		return l.ItemVar
	}
	return DefaultItemVar
}

// IndexVarOrDefault returns the configured index env var name, or
// DefaultIndexVar if unset.
func (l *Loop) IndexVarOrDefault() string {
	if l.IndexVar != "" {
		return l.IndexVar
	}
	return DefaultIndexVar
}

// StepByID returns the step with the given id, or nil if not found.
func (w *Workflow) StepByID(id string) *Step {
	for i := range w.Steps {
		if w.Steps[i].ID == id {
			return &w.Steps[i]
		}
	}
	return nil
}

// AppendStep grows the graph with a runtime child instance materialized by
// the loop expander (§4.5: "appends runtime child instances"). The
// declared step carrying the loop block stays in Steps unchanged; children
// are ordinary Steps from the graph's point of view, so Ancestors and
// Descendants see them once appended. Because children inherit the
// declared step's Needs rather than needing the declared step itself, a
// ResetSet that passes through the declared step does not contain them.
func (w *Workflow) AppendStep(s Step) {
	w.Steps = append(w.Steps, s)
}
