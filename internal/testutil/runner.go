package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/vk/lanepipe/internal/tools"
)

// FakeRunner stands in for the external tools. It records every command and
// creates the files the real program would leave in the working directory:
// redirected stdout, OUTPUT= and -o targets, samtools index and merge
// results and fastqc archives.
type FakeRunner struct {
	// Contents holds the content of created files by name; others are empty.
	Contents map[string]string
	// FailOn fails every command whose rendering contains the substring.
	FailOn string
	// Hook runs before the standard outputs are created, e.g. to lay out
	// demultiplexer results.
	Hook func(cmd tools.Command) error

	mu       sync.Mutex
	commands []string
}

// Run implements tools.Runner.
func (f *FakeRunner) Run(_ context.Context, cmd tools.Command) error {
	f.mu.Lock()
	f.commands = append(f.commands, cmd.String())
	f.mu.Unlock()

	program := filepath.Base(cmd.Path)
	if f.FailOn != "" && strings.Contains(cmd.String(), f.FailOn) {
		return fmt.Errorf("%s exited with status 1", program)
	}
	if f.Hook != nil {
		if err := f.Hook(cmd); err != nil {
			return err
		}
	}

	var outputs []string
	if cmd.Stdout != "" {
		outputs = append(outputs, cmd.Stdout)
	}
	for i, a := range cmd.Args {
		switch {
		case strings.HasPrefix(a, "OUTPUT="):
			outputs = append(outputs, strings.TrimPrefix(a, "OUTPUT="))
		case a == "-o" && i+1 < len(cmd.Args):
			outputs = append(outputs, cmd.Args[i+1])
		case program == "fastqc" && strings.HasSuffix(a, ".fastq.gz"):
			outputs = append(outputs, strings.TrimSuffix(a, ".fastq.gz")+"_fastqc.zip")
		}
	}
	if program == "samtools" && len(cmd.Args) > 1 {
		switch cmd.Args[0] {
		case "index":
			outputs = append(outputs, cmd.Args[1]+".bai")
		case "merge":
			outputs = append(outputs, cmd.Args[1])
		}
	}

	for _, name := range outputs {
		if strings.HasPrefix(name, "/dev/") {
			continue
		}
		if err := os.WriteFile(filepath.Join(cmd.Dir, name), []byte(f.Contents[name]), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// Commands returns the recorded command lines in call order.
func (f *FakeRunner) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}

// Programs returns how often each program ran.
func (f *FakeRunner) Programs() map[string]int {
	counts := make(map[string]int)
	for _, c := range f.Commands() {
		program, _, _ := strings.Cut(c, " ")
		counts[filepath.Base(program)]++
	}
	return counts
}

// SortedCommands returns the recorded command lines sorted.
func (f *FakeRunner) SortedCommands() []string {
	out := f.Commands()
	sort.Strings(out)
	return out
}
