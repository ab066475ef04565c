// This file translates the decoded HCL blocks into the format-agnostic
// configuration model.

package hcl_adapter

import (
	"fmt"
	"time"

	"github.com/vk/lanepipe/internal/config"
)

const defaultMismatches = 1

// single returns the only block of a kind, nil when there is none.
func single[T any](name string, blocks []*T) (*T, error) {
	switch len(blocks) {
	case 0:
		return nil, nil
	case 1:
		return blocks[0], nil
	default:
		return nil, fmt.Errorf("block '%s' is defined %d times, expected at most once", name, len(blocks))
	}
}

func translate(root *fileRoot) (*config.Model, error) {
	m := &config.Model{}

	run, err := single("run", root.Runs)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("a 'run' block is required")
	}
	m.Run = config.Run{
		RunFolder:   run.RunFolder,
		SampleSheet: run.SampleSheet,
		OutputDir:   run.OutputDir,
		ScratchDir:  run.ScratchDir,
		Lanes:       run.Lanes,
		Mismatches:  defaultMismatches,
	}
	if run.Mismatches != nil {
		m.Run.Mismatches = *run.Mismatches
	}

	mapping, err := single("mapping", root.Mappings)
	if err != nil {
		return nil, err
	}
	if mapping != nil {
		m.Mapping = config.Mapping(*mapping)
	}

	qc, err := single("qc", root.QCs)
	if err != nil {
		return nil, err
	}
	if qc != nil {
		m.QC = config.QC(*qc)
	}

	naming, err := single("naming", root.Namings)
	if err != nil {
		return nil, err
	}
	if naming != nil {
		m.Naming = config.Naming(*naming)
	}

	store, err := single("store", root.Stores)
	if err != nil {
		return nil, err
	}
	if store != nil {
		m.Store = config.Store(*store)
	}

	platform, err := single("platform", root.Platforms)
	if err != nil {
		return nil, err
	}
	if platform != nil {
		if m.Platform, err = translatePlatform(platform); err != nil {
			return nil, err
		}
	}

	notify, err := single("notify", root.Notifies)
	if err != nil {
		return nil, err
	}
	if notify != nil {
		n := config.Notify(*notify)
		m.Notify = &n
	}

	tools, err := single("tools", root.Tools)
	if err != nil {
		return nil, err
	}
	if tools != nil {
		m.Tools = config.Tools(*tools)
	}

	return m, nil
}

func translatePlatform(b *platformBlock) (config.Platform, error) {
	p := config.Platform{
		Kind:           b.Kind,
		HostPort:       b.HostPort,
		Namespace:      b.Namespace,
		TaskQueue:      b.TaskQueue,
		EmbeddedWorker: true,
		MaxAttempts:    b.MaxAttempts,
	}
	if b.EmbeddedWorker != nil {
		p.EmbeddedWorker = *b.EmbeddedWorker
	}
	if b.ActivityTimeout != "" {
		d, err := time.ParseDuration(b.ActivityTimeout)
		if err != nil {
			return p, fmt.Errorf("invalid platform activity_timeout %q: %w", b.ActivityTimeout, err)
		}
		p.ActivityTimeout = d
	}
	return p, nil
}
