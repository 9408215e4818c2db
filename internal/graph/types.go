package graph

import (
	"sync"

	"github.com/golang/geo/r2"
	"github.com/lvoegtlin/open-gms-sub000/internal/geom"
)

type (
	VertexID    int
	EdgeID      int
	PartitionID int
	GroupID     int
)

// Vertex is a graph node. UserAdded marks vertices that come from an
// annotation scribble rather than from the page.
type Vertex struct {
	geom.Point
	ID        VertexID
	UserAdded bool
}

// Edge connects two vertices. Its orientation angle is computed at
// construction and its bounding box on first use; neither changes afterwards.
type Edge struct {
	ID      EdgeID
	From    VertexID
	To      VertexID
	Weight  float64
	Deleted bool

	p, q      geom.Point
	angle     float64
	boundOnce sync.Once
	bound     r2.Rect
}

func newEdge(id EdgeID, from, to *Vertex, weight float64) *Edge {
	return &Edge{
		ID:     id,
		From:   from.ID,
		To:     to.ID,
		Weight: weight,
		p:      from.Point,
		q:      to.Point,
		angle:  geom.Angle(from.Point, to.Point),
	}
}

// Bound returns the cached bounding box of the edge segment.
func (e *Edge) Bound() r2.Rect {
	e.boundOnce.Do(func() {
		e.bound = geom.SegmentBound(e.p, e.q)
	})
	return e.bound
}

// Angle returns the cached orientation in radians, in [0, π).
func (e *Edge) Angle() float64 { return e.angle }

// Endpoints returns the endpoint coordinates in From, To order.
func (e *Edge) Endpoints() (geom.Point, geom.Point) { return e.p, e.q }

// Length is the euclidean length of the edge.
func (e *Edge) Length() float64 { return e.p.Dist(e.q) }

// Other returns the endpoint opposite v.
func (e *Edge) Other(v VertexID) VertexID {
	if e.From == v {
		return e.To
	}
	return e.From
}

// Hits reports whether the edge segment touches the scribble.
func (e *Edge) Hits(scribble []geom.Point) bool {
	return geom.Intersects(geom.LineHull(e.p, e.q), scribble)
}
