package tools

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/vk/lanepipe/internal/ctxlog"
)

// Command is one external tool invocation.
type Command struct {
	Path string
	Args []string
	// Dir is the working directory.
	Dir string
	// Stdout, when set, names a file in Dir that receives standard output.
	Stdout string
}

// String renders the command the way it is reported in tools-used logs.
func (c Command) String() string {
	s := strings.Join(append([]string{c.Path}, c.Args...), " ")
	if c.Stdout != "" {
		s += " > " + c.Stdout
	}
	return s
}

// Runner executes commands.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// ExecRunner runs commands as child processes.
type ExecRunner struct{}

const stderrTail = 2048

// Run starts the command and waits for it. A non-zero exit status is an
// error carrying the tail of standard error.
func (ExecRunner) Run(ctx context.Context, cmd Command) error {
	logger := ctxlog.FromContext(ctx)

	c := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
	c.Dir = cmd.Dir
	var stderr bytes.Buffer
	c.Stderr = &stderr
	if cmd.Stdout != "" {
		f, err := os.Create(filepath.Join(cmd.Dir, cmd.Stdout))
		if err != nil {
			return fmt.Errorf("failed to create output of '%s': %w", cmd, err)
		}
		defer f.Close()
		c.Stdout = f
	}

	logger.Debug("Running command.", "command", cmd.String(), "dir", cmd.Dir)
	if err := c.Run(); err != nil {
		msg := stderr.String()
		if len(msg) > stderrTail {
			msg = msg[len(msg)-stderrTail:]
		}
		return fmt.Errorf("command '%s' failed: %w: %s", cmd, err, strings.TrimSpace(msg))
	}
	return nil
}
