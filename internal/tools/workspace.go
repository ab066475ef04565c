package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vk/lanepipe/internal/toolsused"
)

// workspace is the private scratch directory of one unit. Inputs are linked
// in under fixed names so the recorded commands are the same for every
// branch and merge into one counted entry.
type workspace struct {
	dir    string
	runner Runner
	log    toolsused.BranchLog
}

func newWorkspace(runner Runner, scratch, prefix, logName string) (*workspace, error) {
	if scratch == "" {
		scratch = os.TempDir()
	}
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create scratch dir: %w", err)
	}
	dir, err := os.MkdirTemp(scratch, prefix+"-")
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	return &workspace{dir: dir, runner: runner, log: toolsused.BranchLog{Name: logName}}, nil
}

func (w *workspace) path(name string) string {
	return filepath.Join(w.dir, name)
}

func (w *workspace) link(src, name string) error {
	abs, err := filepath.Abs(src)
	if err != nil {
		return err
	}
	if err := os.Symlink(abs, w.path(name)); err != nil {
		return fmt.Errorf("failed to stage '%s': %w", src, err)
	}
	return nil
}

// linkOptional stages src if it exists.
func (w *workspace) linkOptional(src, name string) error {
	if _, err := os.Stat(src); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return w.link(src, name)
}

// run records and runs a command in the workspace.
func (w *workspace) run(ctx context.Context, stdout, path string, args ...string) error {
	cmd := Command{Path: path, Args: args, Dir: w.dir, Stdout: stdout}
	w.log.Record(cmd.String())
	return w.runner.Run(ctx, cmd)
}

// export moves a workspace file to dst, creating dst's directory.
func (w *workspace) export(name, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return moveFile(w.path(name), dst)
}

func (w *workspace) close() {
	_ = os.RemoveAll(w.dir)
}

func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to move '%s': %w", src, err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to move '%s': %w", src, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to move '%s': %w", src, err)
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
