package dag

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Conventional output fields shared by every pipeline unit.
const (
	FieldPrimary   = "primaryResult"
	FieldToolsUsed = "toolsUsed"
)

// Handle identifies a deferred unit.
type Handle string

func newHandle() Handle {
	return Handle("unit-" + uuid.NewString())
}

// Role describes where a unit sits in a stage graph.
type Role string

const (
	RoleFanOut Role = "fan-out"
	RoleFanIn  Role = "fan-in"
	RoleLogs   Role = "logs"
)

// FieldRef is a forward reference to a named output of a unit.
type FieldRef struct {
	Unit  Handle `json:"unit"`
	Field string `json:"field"`
}

// OutputRef builds a forward reference. It does not contact any executor.
func OutputRef(h Handle, field string) FieldRef {
	return FieldRef{Unit: h, Field: field}
}

func (r FieldRef) String() string {
	return fmt.Sprintf("%s.%s", r.Unit, r.Field)
}

// InputKind tells which member of an Input is set.
type InputKind string

const (
	KindValue InputKind = "value"
	KindRef   InputKind = "ref"
	KindRefs  InputKind = "refs"
)

// Input is a unit argument: a concrete value, one forward reference, or a
// list of forward references resolved into a list of values.
type Input struct {
	Kind  InputKind  `json:"kind"`
	Value any        `json:"value,omitempty"`
	Ref   *FieldRef  `json:"ref,omitempty"`
	Refs  []FieldRef `json:"refs,omitempty"`
}

// Value wraps a concrete argument.
func Value(v any) Input { return Input{Kind: KindValue, Value: v} }

// Ref wraps a single forward reference.
func Ref(r FieldRef) Input { return Input{Kind: KindRef, Ref: &r} }

// RefList wraps a list of forward references.
func RefList(refs []FieldRef) Input {
	out := make([]FieldRef, len(refs))
	copy(out, refs)
	return Input{Kind: KindRefs, Refs: out}
}

// References returns the forward references held by the input.
func (in Input) References() []FieldRef {
	switch in.Kind {
	case KindRef:
		if in.Ref != nil {
			return []FieldRef{*in.Ref}
		}
	case KindRefs:
		return in.Refs
	}
	return nil
}

// Unit is one deferred computation. Units are immutable once submitted.
type Unit struct {
	Handle    Handle           `json:"handle"`
	Function  string           `json:"function"`
	Label     string           `json:"label,omitempty"`
	Role      Role             `json:"role,omitempty"`
	Inputs    map[string]Input `json:"inputs"`
	DependsOn []Handle         `json:"dependsOn,omitempty"`
}

// Producers returns every unit this one waits for: the owners of its
// referenced outputs followed by its explicit dependencies, without
// duplicates and in a stable order.
func (u *Unit) Producers() []Handle {
	names := make([]string, 0, len(u.Inputs))
	for name := range u.Inputs {
		names = append(names, name)
	}
	sort.Strings(names)

	seen := make(map[Handle]struct{})
	var out []Handle
	add := func(h Handle) {
		if _, ok := seen[h]; ok {
			return
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	for _, name := range names {
		for _, ref := range u.Inputs[name].References() {
			add(ref.Unit)
		}
	}
	for _, h := range u.DependsOn {
		add(h)
	}
	return out
}

// Name is the label used in logs and user-facing errors.
func (u *Unit) Name() string {
	if u.Label == "" {
		return u.Function
	}
	return fmt.Sprintf("%s[%s]", u.Function, u.Label)
}
