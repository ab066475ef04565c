package dag

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sequentialHandles makes handles predictable in assertions.
func sequentialHandles(b *Builder) {
	n := 0
	b.newHandle = func() Handle {
		n++
		return Handle(fmt.Sprintf("u%d", n))
	}
}

func TestBuilder_SubmitDoesNotValidate(t *testing.T) {
	b := NewBuilder()
	h := b.Submit("merge", map[string]Input{"in": Ref(OutputRef("nowhere", FieldPrimary))}, nil)
	assert.NotEmpty(t, h)
	assert.Equal(t, 1, b.Len())

	_, err := b.Graph()
	assert.ErrorContains(t, err, "depends on unknown unit 'nowhere'")
}

func TestBuilder_HandlesAreUnique(t *testing.T) {
	b := NewBuilder()
	seen := make(map[Handle]bool)
	for i := 0; i < 100; i++ {
		h := b.Submit("noop", nil, nil)
		require.False(t, seen[h])
		seen[h] = true
	}
}

func TestBuilder_SubmitCopiesArguments(t *testing.T) {
	b := NewBuilder()
	sequentialHandles(b)
	a := b.Submit("a", nil, nil)

	inputs := map[string]Input{"x": Value(1)}
	deps := []Handle{a}
	h := b.Submit("b", inputs, deps, WithLabel("ACGTAC"), WithRole(RoleFanOut))
	inputs["y"] = Value(2)
	deps[0] = "mutated"

	g, err := b.Graph()
	require.NoError(t, err)
	u, ok := g.Unit(h)
	require.True(t, ok)
	assert.Len(t, u.Inputs, 1)
	assert.Equal(t, []Handle{a}, u.DependsOn)
	assert.Equal(t, "b[ACGTAC]", u.Name())
	assert.Equal(t, RoleFanOut, u.Role)
}

func TestGraph_EdgesFromReferencesAndDependsOn(t *testing.T) {
	b := NewBuilder()
	sequentialHandles(b)

	u1 := b.Submit("map", map[string]Input{"reads": Value("a.fastq.gz")}, nil)
	u2 := b.Submit("map", map[string]Input{"reads": Value("b.fastq.gz")}, nil)
	merge := b.Submit("merge", map[string]Input{
		"bams": RefList([]FieldRef{OutputRef(u1, FieldPrimary), OutputRef(u2, FieldPrimary)}),
	}, nil)
	logs := b.Submit("logs", map[string]Input{
		"logs": RefList([]FieldRef{OutputRef(u1, FieldToolsUsed), OutputRef(merge, FieldToolsUsed)}),
	}, []Handle{u1, u2, merge})

	g, err := b.Graph()
	require.NoError(t, err)

	assert.Equal(t, []Handle{u1, u2}, g.Dependencies(merge))
	assert.Equal(t, []Handle{u1, merge, u2}, g.Dependencies(logs))
	assert.ElementsMatch(t, []Handle{merge, logs}, g.Dependents(u1))
	assert.Empty(t, g.Dependencies(u1))
	assert.Equal(t, 4, g.Len())
}

func TestNewGraph_Rejects(t *testing.T) {
	t.Run("self reference", func(t *testing.T) {
		units := []*Unit{{Handle: "a", Function: "f", DependsOn: []Handle{"a"}}}
		_, err := NewGraph(units)
		assert.ErrorContains(t, err, "depends on itself")
	})

	t.Run("duplicate handle", func(t *testing.T) {
		units := []*Unit{{Handle: "a", Function: "f"}, {Handle: "a", Function: "g"}}
		_, err := NewGraph(units)
		assert.ErrorContains(t, err, "duplicate unit handle 'a'")
	})

	t.Run("missing function", func(t *testing.T) {
		_, err := NewGraph([]*Unit{{Handle: "a"}})
		assert.ErrorContains(t, err, "has no function")
	})

	t.Run("cycle", func(t *testing.T) {
		units := []*Unit{
			{Handle: "a", Function: "f", DependsOn: []Handle{"c"}},
			{Handle: "b", Function: "f", Inputs: map[string]Input{"x": Ref(OutputRef("a", "out"))}},
			{Handle: "c", Function: "f", DependsOn: []Handle{"b"}},
		}
		_, err := NewGraph(units)
		assert.ErrorContains(t, err, "cycle detected")
	})
}

func TestUnit_JSONRoundTripKeepsReferences(t *testing.T) {
	u := &Unit{
		Handle:   "u1",
		Function: "merge_bams",
		Label:    "ACGTAC",
		Role:     RoleFanIn,
		Inputs: map[string]Input{
			"sample": Value("S1"),
			"bams":   RefList([]FieldRef{{Unit: "c1", Field: FieldPrimary}}),
			"first":  Ref(FieldRef{Unit: "c1", Field: FieldPrimary}),
		},
		DependsOn: []Handle{"c1"},
	}

	raw, err := json.Marshal(u)
	require.NoError(t, err)
	var back Unit
	require.NoError(t, json.Unmarshal(raw, &back))

	assert.Equal(t, u.Producers(), back.Producers())
	assert.Equal(t, KindRefs, back.Inputs["bams"].Kind)
	assert.Equal(t, "S1", back.Inputs["sample"].Value)
}

func TestResults_Resolve(t *testing.T) {
	g, err := NewGraph([]*Unit{{Handle: "a", Function: "f"}, {Handle: "b", Function: "f"}, {Handle: "c", Function: "f"}})
	require.NoError(t, err)

	r := NewResults(g, []Outcome{
		{Handle: "a", Status: StatusCompleted, Outputs: Outputs{FieldPrimary: "a.bam"}},
		{Handle: "b", Status: StatusFailed, Error: "bwa exited 1"},
	})

	v, err := r.Resolve(OutputRef("a", FieldPrimary))
	require.NoError(t, err)
	assert.Equal(t, "a.bam", v)

	_, err = r.Resolve(OutputRef("a", "missing"))
	assert.ErrorContains(t, err, `without output "missing"`)

	_, err = r.Resolve(OutputRef("b", FieldPrimary))
	var unresolved *UnresolvedError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, StatusFailed, unresolved.Status)
	assert.Contains(t, err.Error(), "bwa exited 1")

	assert.Equal(t, StatusPending, r.Outcome("c").Status)
	assert.False(t, r.Succeeded())
	assert.Len(t, r.Outcomes(), 3)
}

func TestResolveInputs(t *testing.T) {
	lookup := func(ref FieldRef) (any, error) {
		if ref.Unit == "bad" {
			return nil, errors.New("poisoned")
		}
		return string(ref.Unit) + "." + ref.Field, nil
	}

	got, err := ResolveInputs(map[string]Input{
		"v":    Value(3),
		"one":  Ref(OutputRef("a", "x")),
		"many": RefList([]FieldRef{OutputRef("b", "y"), OutputRef("c", "z")}),
		"none": RefList(nil),
	}, lookup)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"v": 3, "one": "a.x", "many": []any{"b.y", "c.z"}, "none": []any{}}, got)

	_, err = ResolveInputs(map[string]Input{"one": Ref(OutputRef("bad", "x"))}, lookup)
	assert.ErrorContains(t, err, `input "one": poisoned`)
}
