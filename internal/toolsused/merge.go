// Package toolsused merges the command logs of parallel branches into one
// deterministic report of which tools ran and how often.
package toolsused

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// BranchLog is the command log of one unit.
type BranchLog struct {
	Name     string   `json:"name"`
	Commands []string `json:"commands"`
}

// Record appends a command line to the log.
func (l *BranchLog) Record(command string) {
	l.Commands = append(l.Commands, command)
}

// Decode converts a unit output back into a BranchLog. Outputs that crossed
// a serialisation boundary arrive as generic maps.
func Decode(v any) (BranchLog, error) {
	switch l := v.(type) {
	case BranchLog:
		return l, nil
	case *BranchLog:
		return *l, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return BranchLog{}, fmt.Errorf("failed to encode tools log: %w", err)
	}
	var l BranchLog
	if err := json.Unmarshal(raw, &l); err != nil {
		return BranchLog{}, fmt.Errorf("invalid tools log: %w", err)
	}
	return l, nil
}

// Group is the merged log of one tool name.
type Group struct {
	Name    string
	Entries []string
}

// Report is the merged log of a stage. Groups are sorted by name and each
// group's entries by command, so a report does not depend on the order in
// which branches completed.
type Report struct {
	Groups []Group
}

// MergeLogs groups logs by upper-cased name and counts each distinct command
// within a group. A name that never ran a command has no group.
func MergeLogs(logs []BranchLog) Report {
	counts := make(map[string]map[string]int)
	for _, l := range logs {
		if len(l.Commands) == 0 {
			continue
		}
		name := strings.ToUpper(strings.TrimSpace(l.Name))
		if counts[name] == nil {
			counts[name] = make(map[string]int)
		}
		for _, cmd := range l.Commands {
			counts[name][cmd]++
		}
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	report := Report{Groups: make([]Group, 0, len(names))}
	for _, name := range names {
		commands := make([]string, 0, len(counts[name]))
		for cmd := range counts[name] {
			commands = append(commands, cmd)
		}
		sort.Strings(commands)

		entries := make([]string, len(commands))
		for i, cmd := range commands {
			entries[i] = fmt.Sprintf("%s (x%d)", cmd, counts[name][cmd])
		}
		report.Groups = append(report.Groups, Group{Name: name, Entries: entries})
	}
	return report
}

// Map returns the report as name to entries.
func (r Report) Map() map[string][]string {
	out := make(map[string][]string, len(r.Groups))
	for _, g := range r.Groups {
		out[g.Name] = g.Entries
	}
	return out
}

// Text renders the plain text report: a header line per name, one line per
// entry, and a blank line after each block.
func (r Report) Text() string {
	var b strings.Builder
	for _, g := range r.Groups {
		b.WriteString(g.Name)
		b.WriteByte('\n')
		for _, e := range g.Entries {
			b.WriteString(e)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// WriteTo writes the text report to w.
func (r Report) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, r.Text())
	return int64(n), err
}
