package orchestrator

import (
	"fmt"

	"github.com/vk/lanepipe/internal/dag"
)

// Plan is a validated stage graph together with what the caller needs to
// interpret its outcome.
type Plan struct {
	Stage string
	Graph *dag.Graph
	// Result is the stage result: the fan-in output, or the only branch's
	// output when there was a single branch.
	Result dag.FieldRef
	// Logs is the log aggregation unit.
	Logs dag.Handle
	// ToolsUsed lists the toolsUsed outputs of every fan-out and fan-in unit.
	ToolsUsed []dag.FieldRef

	branches map[dag.Handle]string
}

// Branch returns the branch label (lane, barcode) a unit works for. Stage
// level units have none.
func (p *Plan) Branch(h dag.Handle) (string, bool) {
	b, ok := p.branches[h]
	return b, ok
}

// Branches returns the number of distinct branch labels.
func (p *Plan) Branches() int {
	seen := make(map[string]struct{})
	for _, b := range p.branches {
		seen[b] = struct{}{}
	}
	return len(seen)
}

// stageBuilder accumulates the units of one stage.
type stageBuilder struct {
	stage     string
	b         *dag.Builder
	branches  map[dag.Handle]string
	members   []dag.Handle
	toolsUsed []dag.FieldRef
}

func newStageBuilder(stage string) *stageBuilder {
	return &stageBuilder{
		stage:    stage,
		b:        dag.NewBuilder(),
		branches: make(map[dag.Handle]string),
	}
}

func (s *stageBuilder) submit(function, label, branch string, role dag.Role, inputs map[string]dag.Input) dag.Handle {
	h := s.b.Submit(function, inputs, nil, dag.WithLabel(label), dag.WithRole(role))
	if branch != "" {
		s.branches[h] = branch
	}
	s.members = append(s.members, h)
	s.toolsUsed = append(s.toolsUsed, dag.OutputRef(h, dag.FieldToolsUsed))
	return h
}

// fanOut submits one branch unit.
func (s *stageBuilder) fanOut(function, label, branch string, inputs map[string]dag.Input) dag.Handle {
	return s.submit(function, label, branch, dag.RoleFanOut, inputs)
}

// gather returns the primary result of members, adding a fan-in unit only
// when there is more than one member. The member outputs are passed as a
// list under key, next to extra.
func (s *stageBuilder) gather(function, label, branch, key string, members []dag.Handle, extra map[string]dag.Input) dag.FieldRef {
	if len(members) == 1 {
		return dag.OutputRef(members[0], dag.FieldPrimary)
	}

	refs := make([]dag.FieldRef, len(members))
	for i, h := range members {
		refs[i] = dag.OutputRef(h, dag.FieldPrimary)
	}
	inputs := map[string]dag.Input{key: dag.RefList(refs)}
	for k, v := range extra {
		inputs[k] = v
	}
	h := s.submit(function, label, branch, dag.RoleFanIn, inputs)
	return dag.OutputRef(h, dag.FieldPrimary)
}

// finish adds the log aggregation unit and validates the graph.
func (s *stageBuilder) finish(result dag.FieldRef, outputDir string) (*Plan, error) {
	deps := make([]dag.Handle, len(s.members))
	copy(deps, s.members)

	logs := s.b.Submit(FuncMergeToolsUsed, map[string]dag.Input{
		InStage:     dag.Value(s.stage),
		InOutputDir: dag.Value(outputDir),
		InLogs:      dag.RefList(s.toolsUsed),
	}, deps, dag.WithLabel(s.stage), dag.WithRole(dag.RoleLogs))

	g, err := s.b.Graph()
	if err != nil {
		return nil, fmt.Errorf("stage '%s': invalid graph: %w", s.stage, err)
	}
	toolsUsed := make([]dag.FieldRef, len(s.toolsUsed))
	copy(toolsUsed, s.toolsUsed)
	return &Plan{
		Stage:     s.stage,
		Graph:     g,
		Result:    result,
		Logs:      logs,
		ToolsUsed: toolsUsed,
		branches:  s.branches,
	}, nil
}
