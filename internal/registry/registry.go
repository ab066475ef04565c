package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/vk/lanepipe/internal/dag"
)

// Func is the implementation of a deferred unit.
type Func func(ctx context.Context, in Inputs) (dag.Outputs, error)

// Module is implemented by packages that contribute unit functions.
type Module interface {
	Register(r *Registry)
}

// Registry holds the unit functions of one application instance.
type Registry struct {
	funcs map[string]Func
}

// New creates an empty registry and registers the given modules.
func New(modules ...Module) *Registry {
	r := &Registry{funcs: make(map[string]Func)}
	for _, m := range modules {
		m.Register(r)
	}
	return r
}

// Register adds a unit function. Registering a name twice is a programming
// error and panics.
func (r *Registry) Register(name string, fn Func) {
	if _, exists := r.funcs[name]; exists {
		panic(fmt.Sprintf("unit function with name '%s' already registered", name))
	}
	slog.Debug("Registering unit function.", "name", name)
	r.funcs[name] = fn
}

// Lookup returns the function registered under name.
func (r *Registry) Lookup(name string) (Func, bool) {
	fn, ok := r.funcs[name]
	return fn, ok
}

// Names returns the registered names in ascending order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks that every unit of g names a registered function.
func (r *Registry) Validate(g *dag.Graph) error {
	missing := make(map[string]struct{})
	for _, u := range g.Units() {
		if _, ok := r.funcs[u.Function]; !ok {
			missing[u.Function] = struct{}{}
		}
	}
	if len(missing) == 0 {
		return nil
	}

	names := make([]string, 0, len(missing))
	for name := range missing {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Errorf("graph uses unregistered unit functions: %s", strings.Join(names, ", "))
}
