package dag

import "fmt"

// Status is the lifecycle state of a unit.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Outputs are the named results of a completed unit.
type Outputs map[string]any

// Outcome is the final state of one unit. For a skipped unit, Cause is the
// failed unit at the root of the chain and Error is that unit's error.
type Outcome struct {
	Handle  Handle  `json:"handle"`
	Status  Status  `json:"status"`
	Outputs Outputs `json:"outputs,omitempty"`
	Error   string  `json:"error,omitempty"`
	Cause   Handle  `json:"cause,omitempty"`
}

// UnresolvedError is returned when a reference cannot be resolved because
// its producer did not complete.
type UnresolvedError struct {
	Ref    FieldRef
	Status Status
	Reason string
}

func (e *UnresolvedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("reference %s is unresolved: producer is %s", e.Ref, e.Status)
	}
	return fmt.Sprintf("reference %s is unresolved: producer is %s: %s", e.Ref, e.Status, e.Reason)
}

// Results holds the outcomes of one graph execution.
type Results struct {
	graph    *Graph
	outcomes map[Handle]Outcome
}

// NewResults indexes outcomes against their graph. Units without an outcome
// are reported as pending.
func NewResults(g *Graph, outcomes []Outcome) *Results {
	r := &Results{graph: g, outcomes: make(map[Handle]Outcome, g.Len())}
	for _, o := range outcomes {
		r.outcomes[o.Handle] = o
	}
	return r
}

// Graph returns the executed graph.
func (r *Results) Graph() *Graph {
	return r.graph
}

// Outcome returns the outcome of one unit.
func (r *Results) Outcome(h Handle) Outcome {
	if o, ok := r.outcomes[h]; ok {
		return o
	}
	return Outcome{Handle: h, Status: StatusPending}
}

// Outcomes returns every outcome in graph order.
func (r *Results) Outcomes() []Outcome {
	out := make([]Outcome, 0, r.graph.Len())
	for _, u := range r.graph.Units() {
		out = append(out, r.Outcome(u.Handle))
	}
	return out
}

// Resolve returns the value behind a reference if its producer completed.
func (r *Results) Resolve(ref FieldRef) (any, error) {
	o := r.Outcome(ref.Unit)
	if o.Status != StatusCompleted {
		return nil, &UnresolvedError{Ref: ref, Status: o.Status, Reason: o.Error}
	}
	v, ok := o.Outputs[ref.Field]
	if !ok {
		return nil, fmt.Errorf("unit '%s' completed without output %q", ref.Unit, ref.Field)
	}
	return v, nil
}

// Succeeded reports whether every unit completed.
func (r *Results) Succeeded() bool {
	for _, u := range r.graph.Units() {
		if r.Outcome(u.Handle).Status != StatusCompleted {
			return false
		}
	}
	return true
}
