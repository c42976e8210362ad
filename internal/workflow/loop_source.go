package workflow

import "github.com/jorge-barreto/agentdag/internal/workflowerr"

// SourceKind identifies which of the three loop item sources a Loop block
// declared (§4.5, §9 "Polymorphism over sources").
type SourceKind int

const (
	SourceInline SourceKind = iota
	SourceFromStep
	SourceFromArtifact
)

// Source resolves which single item source this Loop declared, enforcing
// "exactly one source" structurally: a Loop that sets zero or more than one
// of Items/ItemsFromStep/ItemsFromArtifact is a definition error, caught
// here rather than by a record of optional fields checked post-hoc.
func (l *Loop) Source(stepID string) (SourceKind, error) {
	set := 0
	var kind SourceKind
	if l.Items != nil {
		set++
		kind = SourceInline
	}
	if l.ItemsFromStep != "" {
		set++
		kind = SourceFromStep
	}
	if l.ItemsFromArtifact != "" {
		set++
		kind = SourceFromArtifact
	}
	if set != 1 {
		return 0, &workflowerr.WorkflowDefinitionError{
			Workflow: stepID,
			Reason:   "loop must set exactly one of items, items_from_step, items_from_artifact",
		}
	}
	return kind, nil
}
