package geom

import (
	"github.com/golang/geo/r2"
)

// Kind tells how a Hull should be read.
type Kind int

const (
	KindEmpty Kind = iota
	KindPoint
	KindLine
	KindPolygon
)

func (k Kind) String() string {
	switch k {
	case KindPoint:
		return "point"
	case KindLine:
		return "line"
	case KindPolygon:
		return "polygon"
	default:
		return "empty"
	}
}

// Hull is a concave boundary approximation.
//
// For KindPolygon, Rings holds open rings (the closing vertex is not
// repeated). Several outer rings and holes may be present after a union;
// inside-ness follows the even-odd rule across all rings. For KindPoint and
// KindLine, Rings holds exactly one point list.
type Hull struct {
	Kind  Kind
	Rings [][]Point
}

// PointHull wraps a single point.
func PointHull(p Point) Hull {
	return Hull{Kind: KindPoint, Rings: [][]Point{{p}}}
}

// LineHull wraps an open polyline.
func LineHull(pts ...Point) Hull {
	if len(pts) == 1 {
		return PointHull(pts[0])
	}
	line := make([]Point, len(pts))
	copy(line, pts)
	return Hull{Kind: KindLine, Rings: [][]Point{line}}
}

// PolygonHull wraps a single ring. A repeated closing vertex is dropped.
func PolygonHull(ring []Point) Hull {
	return Hull{Kind: KindPolygon, Rings: [][]Point{openRing(ring)}}
}

// IsEmpty reports whether the hull carries no geometry.
func (h Hull) IsEmpty() bool {
	return h.Kind == KindEmpty || len(h.Rings) == 0
}

// Bound returns the bounding box of every vertex of the hull.
func (h Hull) Bound() r2.Rect {
	b := r2.EmptyRect()
	for _, r := range h.Rings {
		b = b.Union(PointsBound(r))
	}
	return b
}

// Vertices flattens all rings.
func (h Hull) Vertices() []Point {
	var out []Point
	for _, r := range h.Rings {
		out = append(out, r...)
	}
	return out
}

// Clone returns a deep copy, so callers can keep a snapshot that later
// mutation of the source slices cannot reach.
func (h Hull) Clone() Hull {
	c := Hull{Kind: h.Kind, Rings: make([][]Point, len(h.Rings))}
	for i, r := range h.Rings {
		c.Rings[i] = append([]Point(nil), r...)
	}
	return c
}

// Equal compares kind and ring vertices exactly.
func (h Hull) Equal(o Hull) bool {
	if h.Kind != o.Kind || len(h.Rings) != len(o.Rings) {
		return false
	}
	for i := range h.Rings {
		if len(h.Rings[i]) != len(o.Rings[i]) {
			return false
		}
		for j := range h.Rings[i] {
			if !h.Rings[i][j].Equal(o.Rings[i][j]) {
				return false
			}
		}
	}
	return true
}

// Area returns the even-odd area of a polygon hull; degenerate hulls have
// zero area.
func (h Hull) Area() float64 {
	if h.Kind != KindPolygon {
		return 0
	}
	var a float64
	for _, r := range h.Rings {
		a += signedArea(r)
	}
	if a < 0 {
		return -a
	}
	return a
}

func openRing(ring []Point) []Point {
	out := append([]Point(nil), ring...)
	if len(out) > 1 && out[0].Equal(out[len(out)-1]) {
		out = out[:len(out)-1]
	}
	return out
}

func signedArea(ring []Point) float64 {
	var s float64
	n := len(ring)
	for i := 0; i < n; i++ {
		p, q := ring[i], ring[(i+1)%n]
		s += float64(p.X)*float64(q.Y) - float64(q.X)*float64(p.Y)
	}
	return s / 2
}
