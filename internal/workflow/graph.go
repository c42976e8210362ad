package workflow

// Ancestors returns the set of step ids in the transitive closure of
// needs*(id), not including id itself. Pure function over the static
// graph — recomputed on demand, never cached, per §9's guidance that the
// reset-set computation "should be a pure graph operation producing a new
// set each time."
func (w *Workflow) Ancestors(id string) map[string]bool {
	out := make(map[string]bool)
	var visit func(string)
	visit = func(cur string) {
		step := w.StepByID(cur)
		if step == nil {
			return
		}
		for _, dep := range step.Needs {
			if !out[dep] {
				out[dep] = true
				visit(dep)
			}
		}
	}
	visit(id)
	return out
}

// Descendants returns the set of step ids that transitively depend on id
// (i.e. id is in their Ancestors set), not including id itself.
func (w *Workflow) Descendants(id string) map[string]bool {
	out := make(map[string]bool)
	for _, s := range w.Steps {
		if s.ID == id {
			continue
		}
		if w.Ancestors(s.ID)[id] {
			out[s.ID] = true
		}
	}
	return out
}

// IsAncestor reports whether candidate is in the transitive closure of
// needs*(id).
func (w *Workflow) IsAncestor(candidate, id string) bool {
	return w.Ancestors(id)[candidate]
}

// ResetSet computes the set R described in §4.6's Loop-back procedure: the
// loop-back target T together with every step in the transitive needs*
// closure rooted at T that also depends on T, up to and including the
// triggering step S. Concretely this is {T} ∪ (Descendants(T) ∩
// ({S} ∪ Ancestors(S))) — every step between T and S inclusive, on the
// path that led to S's gate failure.
func (w *Workflow) ResetSet(target, triggeredBy string) map[string]bool {
	out := map[string]bool{target: true}
	path := w.Ancestors(triggeredBy)
	path[triggeredBy] = true
	descendants := w.Descendants(target)
	for id := range descendants {
		if path[id] {
			out[id] = true
		}
	}
	return out
}
