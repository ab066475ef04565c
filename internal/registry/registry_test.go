package registry

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/lanepipe/internal/dag"
)

type echoModule struct{}

func (echoModule) Register(r *Registry) {
	r.Register("echo", func(ctx context.Context, in Inputs) (dag.Outputs, error) {
		s, err := in.String("msg")
		return dag.Outputs{dag.FieldPrimary: s}, err
	})
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := New(echoModule{})

	fn, ok := r.Lookup("echo")
	require.True(t, ok)
	out, err := fn(context.Background(), Inputs{"msg": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", out[dag.FieldPrimary])

	_, ok = r.Lookup("missing")
	assert.False(t, ok)
	assert.Equal(t, []string{"echo"}, r.Names())
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	r := New(echoModule{})
	assert.PanicsWithValue(t, "unit function with name 'echo' already registered", func() {
		echoModule{}.Register(r)
	})
}

func TestRegistry_Validate(t *testing.T) {
	r := New(echoModule{})
	b := dag.NewBuilder()
	b.Submit("echo", nil, nil)
	b.Submit("merge_bams", nil, nil)
	b.Submit("collect", nil, nil)
	g, err := b.Graph()
	require.NoError(t, err)

	err = r.Validate(g)
	assert.EqualError(t, err, "graph uses unregistered unit functions: collect, merge_bams")
}

func TestInputs_AcceptNativeAndJSONShapes(t *testing.T) {
	native := Inputs{"files": []string{"a", "b"}, "n": 4, "flag": true, "name": "x"}

	var decoded Inputs
	raw, err := json.Marshal(native)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &decoded))

	for name, in := range map[string]Inputs{"native": native, "json": decoded} {
		t.Run(name, func(t *testing.T) {
			files, err := in.Strings("files")
			require.NoError(t, err)
			assert.Equal(t, []string{"a", "b"}, files)

			n, err := in.Int("n")
			require.NoError(t, err)
			assert.Equal(t, 4, n)

			flag, err := in.Bool("flag")
			require.NoError(t, err)
			assert.True(t, flag)

			s, err := in.String("name")
			require.NoError(t, err)
			assert.Equal(t, "x", s)
		})
	}
}

func TestInputs_Errors(t *testing.T) {
	in := Inputs{"n": 1.5, "s": 3, "list": []any{"a", 2}}

	_, err := in.String("missing")
	assert.EqualError(t, err, `missing input "missing"`)

	_, err = in.String("s")
	assert.EqualError(t, err, `input "s" is int, want string`)

	_, err = in.Int("n")
	assert.ErrorContains(t, err, "want an integer")

	_, err = in.Strings("list")
	assert.EqualError(t, err, `input "list"[1] is int, want string`)

	def, err := in.IntOr("absent", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, def)

	opt, err := in.OptionalString("absent")
	require.NoError(t, err)
	assert.Empty(t, opt)
}

func TestInputs_Decode(t *testing.T) {
	type log struct {
		Name     string   `json:"name"`
		Commands []string `json:"commands"`
	}
	in := Inputs{"logs": []any{
		map[string]any{"name": "map", "commands": []any{"bwa mem"}},
		log{Name: "qc", Commands: []string{"fastqc"}},
	}}

	var logs []log
	require.NoError(t, in.Decode("logs", &logs))
	assert.Equal(t, []log{{Name: "map", Commands: []string{"bwa mem"}}, {Name: "qc", Commands: []string{"fastqc"}}}, logs)
}
