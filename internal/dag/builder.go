package dag

// Option customises a submitted unit.
type Option func(*Unit)

// WithLabel attaches the branch label (barcode, sample, lane) shown to users.
func WithLabel(label string) Option {
	return func(u *Unit) { u.Label = label }
}

// WithRole records the unit's place in the stage graph.
func WithRole(role Role) Option {
	return func(u *Unit) { u.Role = role }
}

// Builder accumulates deferred units. It is not safe for concurrent use;
// graphs are declared by a single orchestrator goroutine.
type Builder struct {
	units     []*Unit
	newHandle func() Handle
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{newHandle: newHandle}
}

// Submit declares a unit and returns its handle. It never blocks and never
// contacts an executor; references are validated by Graph.
func (b *Builder) Submit(function string, inputs map[string]Input, dependsOn []Handle, opts ...Option) Handle {
	u := &Unit{
		Handle:   b.newHandle(),
		Function: function,
		Inputs:   make(map[string]Input, len(inputs)),
	}
	for name, in := range inputs {
		u.Inputs[name] = in
	}
	if len(dependsOn) > 0 {
		u.DependsOn = append([]Handle(nil), dependsOn...)
	}
	for _, opt := range opts {
		opt(u)
	}

	b.units = append(b.units, u)
	return u.Handle
}

// Len returns the number of submitted units.
func (b *Builder) Len() int {
	return len(b.units)
}

// Graph validates everything submitted so far and returns it as a graph.
func (b *Builder) Graph() (*Graph, error) {
	return NewGraph(b.units)
}
