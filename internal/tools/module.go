// Package tools implements the unit functions of every stage graph. Each
// function stages its inputs in a private workspace, runs external tools
// through a Runner, tags what it produced in the tag store and returns its
// primaryResult together with the log of commands it ran.
package tools

import (
	"context"
	"fmt"

	"github.com/vk/lanepipe/internal/classify"
	"github.com/vk/lanepipe/internal/orchestrator"
	"github.com/vk/lanepipe/internal/registry"
	"github.com/vk/lanepipe/internal/tagstore"
)

// Tools names the external programs.
type Tools struct {
	Bcl2fastq string
	Bwa       string
	Samtools  string
	Java      string
	// Picard is the path of picard.jar.
	Picard string
	Fastqc string
}

func (t Tools) withDefaults() Tools {
	set := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	set(&t.Bcl2fastq, "bcl2fastq")
	set(&t.Bwa, "bwa")
	set(&t.Samtools, "samtools")
	set(&t.Java, "java")
	set(&t.Picard, "picard.jar")
	set(&t.Fastqc, "fastqc")
	return t
}

// Module registers the stage unit functions.
type Module struct {
	store  tagstore.Store
	runner Runner
	tools  Tools
}

// New creates the module. A nil runner runs real processes.
func New(store tagstore.Store, runner Runner, tools Tools) *Module {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Module{store: store, runner: runner, tools: tools.withDefaults()}
}

// Register adds every stage unit function to r.
func (m *Module) Register(r *registry.Registry) {
	r.Register(orchestrator.FuncDemuxLane, m.demuxLane)
	r.Register(orchestrator.FuncCollectLanes, m.collectLanes)
	r.Register(orchestrator.FuncMapChunk, m.mapChunk)
	r.Register(orchestrator.FuncMergeBams, m.mergeBams)
	r.Register(orchestrator.FuncCollectBams, m.collectBams)
	r.Register(orchestrator.FuncQCSample, m.qcSample)
	r.Register(orchestrator.FuncQCReport, m.qcReport)
	r.Register(orchestrator.FuncMergeToolsUsed, m.mergeToolsUsed)
}

func (m *Module) tag(ctx context.Context, f classify.TaggedFile) error {
	if err := m.store.SetTags(ctx, f.ID, f.Tags()); err != nil {
		return fmt.Errorf("failed to tag '%s': %w", f.ID, err)
	}
	return nil
}
