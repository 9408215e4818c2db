package command

import (
	"errors"
	"fmt"
	"sort"

	"github.com/lvoegtlin/open-gms-sub000/internal/geom"
	"github.com/lvoegtlin/open-gms-sub000/internal/graph"
	"github.com/lvoegtlin/open-gms-sub000/internal/pipeline"
)

var (
	// ErrPrecondition is returned when CanExecute is false. Callers treat it
	// as a no-op.
	ErrPrecondition    = errors.New("command precondition not met")
	ErrRedoUnsupported = errors.New("redo is not supported for this command")
	ErrNothingToUndo   = errors.New("nothing to undo")
	ErrNothingToRedo   = errors.New("nothing to redo")
)

// Command is one undoable user operation.
type Command interface {
	Name() string
	CanExecute() bool
	// Execute starts the operation. The future settles once the mutation is
	// final, committed or rolled back.
	Execute() *pipeline.Future[struct{}]
	Undo() error
	Redo() error
}

func precondition(name, format string, args ...any) *pipeline.Future[struct{}] {
	return pipeline.Rejected[struct{}](name, fmt.Errorf("%s: %w: %s", name, ErrPrecondition, fmt.Sprintf(format, args...)))
}

func sortEdges(es []*graph.Edge) {
	sort.Slice(es, func(i, j int) bool { return es[i].ID < es[j].ID })
}

// scribbleOf returns the polyline of an annotation partition, closed again
// when its edges form a cycle.
func scribbleOf(p *graph.Partition) []geom.Point {
	pts := p.Points()
	if len(pts) >= 3 && p.EdgeCount() == p.VertexCount() {
		pts = append(pts, pts[0])
	}
	return pts
}

// touches reports whether two partitions of opposite kinds intersect: the
// scribble of the annotation one against the hull, or failing that the
// edges, of the other.
func touches(a, b *graph.Partition) bool {
	if a.IsAnnotationGraph() == b.IsAnnotationGraph() {
		return false
	}
	if a.IsAnnotationGraph() {
		a, b = b, a
	}
	scribble := scribbleOf(b)
	if h, ok := a.Hull(); ok && !h.IsEmpty() {
		return geom.Intersects(h, scribble)
	}
	for _, e := range a.Edges() {
		if e.Hits(scribble) {
			return true
		}
	}
	return false
}
