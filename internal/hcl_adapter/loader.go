package hcl_adapter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/lanepipe/internal/config"
	"github.com/vk/lanepipe/internal/ctxlog"
	"github.com/vk/lanepipe/internal/fsutil"
)

// Loader is the HCL implementation of config.Loader.
type Loader struct {
	// Environ is exposed to expressions as env.<NAME>, in os.Environ form.
	Environ []string
}

// NewLoader creates a loader that sees the process environment.
func NewLoader() *Loader {
	return &Loader{Environ: os.Environ()}
}

// Load parses every .hcl file under paths, merges their blocks and
// translates them into the model.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl files found in %v", paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	parser := hclparse.NewParser()
	evalCtx := newEvalContext(l.Environ)

	var merged fileRoot
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, evalCtx, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}
		merged.merge(&root)
	}

	model, err := translate(&merged)
	if err != nil {
		return nil, err
	}
	model.ApplyDefaults()

	logger.Debug("HCL loading complete.", "store", model.Store.Kind, "platform", model.Platform.Kind)
	return model, nil
}

// findAllHCLFiles expands directories and returns each .hcl file once.
func findAllHCLFiles(paths []string) ([]string, error) {
	var all []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			all = append(all, p)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing config path %s: %w", path, err)
		}
		if !info.IsDir() {
			if filepath.Ext(path) != ".hcl" {
				return nil, fmt.Errorf("config file %s is not an .hcl file", path)
			}
			add(path)
			continue
		}
		found, err := fsutil.FindFiles(path, ".hcl")
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			add(f)
		}
	}
	return all, nil
}
