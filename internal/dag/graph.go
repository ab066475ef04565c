package dag

import (
	"context"
	"errors"
	"fmt"
)

// Executor runs a validated graph to completion and reports every unit's
// outcome. A unit failure is an outcome, not an error; the returned error is
// reserved for the executor itself failing (dispatch, cancellation).
type Executor interface {
	Execute(ctx context.Context, g *Graph) (*Results, error)
}

// Graph is an immutable, validated set of units and their edges.
type Graph struct {
	units      []*Unit
	byHandle   map[Handle]*Unit
	deps       map[Handle][]Handle
	dependents map[Handle][]Handle
}

// NewGraph validates units and indexes their edges. It rejects duplicate
// handles, references to unknown units, self references and cycles.
func NewGraph(units []*Unit) (*Graph, error) {
	g := &Graph{
		units:      make([]*Unit, 0, len(units)),
		byHandle:   make(map[Handle]*Unit, len(units)),
		deps:       make(map[Handle][]Handle, len(units)),
		dependents: make(map[Handle][]Handle, len(units)),
	}

	for _, u := range units {
		if u.Handle == "" {
			return nil, errors.New("unit has an empty handle")
		}
		if u.Function == "" {
			return nil, fmt.Errorf("unit '%s' has no function", u.Handle)
		}
		if _, ok := g.byHandle[u.Handle]; ok {
			return nil, fmt.Errorf("duplicate unit handle '%s'", u.Handle)
		}
		g.byHandle[u.Handle] = u
		g.units = append(g.units, u)
	}

	for _, u := range g.units {
		for _, p := range u.Producers() {
			if p == u.Handle {
				return nil, fmt.Errorf("unit '%s' depends on itself", u.Name())
			}
			if _, ok := g.byHandle[p]; !ok {
				return nil, fmt.Errorf("unit '%s' depends on unknown unit '%s'", u.Name(), p)
			}
			g.deps[u.Handle] = append(g.deps[u.Handle], p)
			g.dependents[p] = append(g.dependents[p], u.Handle)
		}
	}

	if err := g.detectCycles(); err != nil {
		return nil, err
	}
	return g, nil
}

// Units returns the units in submission order.
func (g *Graph) Units() []*Unit {
	return g.units
}

// Len returns the number of units.
func (g *Graph) Len() int {
	return len(g.units)
}

// Unit looks up a unit by handle.
func (g *Graph) Unit(h Handle) (*Unit, bool) {
	u, ok := g.byHandle[h]
	return u, ok
}

// Dependencies returns the units h waits for.
func (g *Graph) Dependencies(h Handle) []Handle {
	return g.deps[h]
}

// Dependents returns the units waiting for h.
func (g *Graph) Dependents(h Handle) []Handle {
	return g.dependents[h]
}

// detectCycles runs a depth-first search with a temporary mark for the
// current path and a permanent mark for nodes known to be acyclic.
func (g *Graph) detectCycles() error {
	permanent := make(map[Handle]bool, len(g.units))
	temporary := make(map[Handle]bool)

	var visit func(h Handle) error
	visit = func(h Handle) error {
		if permanent[h] {
			return nil
		}
		if temporary[h] {
			return fmt.Errorf("cycle detected involving unit '%s'", g.byHandle[h].Name())
		}
		temporary[h] = true
		for _, next := range g.dependents[h] {
			if err := visit(next); err != nil {
				return err
			}
		}
		delete(temporary, h)
		permanent[h] = true
		return nil
	}

	for _, u := range g.units {
		if err := visit(u.Handle); err != nil {
			return err
		}
	}
	return nil
}
