package geom

import (
	"math"

	"github.com/golang/geo/r2"
)

// Point is an interest point of the page graph. Component is the connected
// component id of the ink blob the point was extracted from.
type Point struct {
	X         float32
	Y         float32
	Component int32
}

// Pt builds a Point without a component.
func Pt(x, y float32) Point {
	return Point{X: x, Y: y}
}

// Equal compares coordinates only.
func (p Point) Equal(q Point) bool {
	return p.X == q.X && p.Y == q.Y
}

// Dist returns the euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(float64(q.X-p.X), float64(q.Y-p.Y))
}

func (p Point) r2() r2.Point {
	return r2.Point{X: float64(p.X), Y: float64(p.Y)}
}

// SegmentBound returns the axis-aligned bounding box of the segment pq.
func SegmentBound(p, q Point) r2.Rect {
	return r2.RectFromPoints(p.r2(), q.r2())
}

// PointsBound returns the bounding box of pts, or an empty rect.
func PointsBound(pts []Point) r2.Rect {
	b := r2.EmptyRect()
	for _, p := range pts {
		b = b.AddPoint(p.r2())
	}
	return b
}

// Angle returns the orientation of the segment pq in radians, in [0, π).
func Angle(p, q Point) float64 {
	a := math.Atan2(float64(q.Y-p.Y), float64(q.X-p.X))
	if a < 0 {
		a += math.Pi
	}
	if a >= math.Pi {
		a -= math.Pi
	}
	return a
}

// dedup drops repeated coordinates, keeping the first occurrence.
func dedup(pts []Point) []Point {
	seen := make(map[[2]float32]struct{}, len(pts))
	out := make([]Point, 0, len(pts))
	for _, p := range pts {
		k := [2]float32{p.X, p.Y}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, p)
	}
	return out
}
