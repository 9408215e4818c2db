// Package notify delivers "region changed" events to whatever draws the
// page. Renderers only observe; nothing here feeds back into the model.
package notify

import (
	"context"
	"sync"

	"github.com/lvoegtlin/open-gms-sub000/internal/ctxlog"
	"github.com/lvoegtlin/open-gms-sub000/internal/geom"
	"github.com/lvoegtlin/open-gms-sub000/internal/graph"
)

// Kind tells what changed.
type Kind int

const (
	GroupChanged Kind = iota
	GroupRemoved
	RegionChanged
	RegionRemoved
)

func (k Kind) String() string {
	switch k {
	case GroupChanged:
		return "group_changed"
	case GroupRemoved:
		return "group_removed"
	case RegionChanged:
		return "region_changed"
	case RegionRemoved:
		return "region_removed"
	default:
		return "unknown"
	}
}

// Event is one change notification. Region and Type are set for region
// events only.
type Event struct {
	Kind   Kind
	Group  graph.GroupID
	Region string
	Type   string
	Hull   geom.Hull
}

// Notifier receives events on the coordinator goroutine. Implementations
// must not block it for long.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// Log writes every event to the context logger at debug level.
type Log struct{}

func (Log) Notify(ctx context.Context, ev Event) {
	ctxlog.FromContext(ctx).Debug("Region notification.",
		"kind", ev.Kind.String(),
		"group", ev.Group,
		"region", ev.Region,
		"type", ev.Type,
		"hull_vertices", len(ev.Hull.Vertices()),
	)
}

// Recorder keeps events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Notify(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Count returns how many events of kind k were recorded.
func (r *Recorder) Count(k Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Kind == k {
			n++
		}
	}
	return n
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// Multi fans an event out to several notifiers in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, ev Event) {
	for _, n := range m {
		n.Notify(ctx, ev)
	}
}

// Discard drops every event.
type Discard struct{}

func (Discard) Notify(context.Context, Event) {}
