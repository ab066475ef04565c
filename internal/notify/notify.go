// Package notify publishes unit status transitions to observers outside the
// process. Notifications are best effort: a lost event never affects a run.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/vk/lanepipe/internal/dag"
)

// Event is one unit status transition.
type Event struct {
	Stage    string
	Unit     dag.Handle
	Function string
	Label    string
	Status   dag.Status
	Error    string
	Time     time.Time
}

// Fields renders the event as a plain map for wire encoding.
func (e Event) Fields() map[string]any {
	fields := map[string]any{
		"stage":    e.Stage,
		"unit":     string(e.Unit),
		"function": e.Function,
		"label":    e.Label,
		"status":   string(e.Status),
		"time":     e.Time.UTC().Format(time.RFC3339Nano),
	}
	if e.Error != "" {
		fields["error"] = e.Error
	}
	return fields
}

// Notifier receives unit status transitions.
type Notifier interface {
	UnitStatus(ctx context.Context, ev Event)
}

// Nop drops every event.
type Nop struct{}

// UnitStatus implements Notifier.
func (Nop) UnitStatus(context.Context, Event) {}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// UnitStatus implements Notifier.
func (r *Recorder) UnitStatus(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// ByStatus returns the handles that reached status, in arrival order.
func (r *Recorder) ByStatus(status dag.Status) []dag.Handle {
	var out []dag.Handle
	for _, ev := range r.Events() {
		if ev.Status == status {
			out = append(out, ev.Unit)
		}
	}
	return out
}

type stageKey struct{}

// WithStage tags ctx with the pipeline stage its events belong to.
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, stageKey{}, stage)
}

// StageFrom returns the stage set by WithStage, or "".
func StageFrom(ctx context.Context) string {
	s, _ := ctx.Value(stageKey{}).(string)
	return s
}
