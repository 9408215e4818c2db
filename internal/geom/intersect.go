package geom

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Intersects reports whether hull and the query ring share any point. The
// query may be open (a scribble) or closed. A closed query (last point equal
// to the first) is also treated as an area, so a lasso drawn around a region
// hits it.
func Intersects(h Hull, query []Point) bool {
	if h.IsEmpty() || len(query) == 0 {
		return false
	}

	for _, hs := range hullSegments(h) {
		for _, qs := range polylineSegments(query) {
			if segmentsTouch(hs[0], hs[1], qs[0], qs[1]) {
				return true
			}
		}
	}

	if h.Kind == KindPolygon {
		for _, q := range query {
			if containsPoint(h, q) {
				return true
			}
		}
	}

	if IsClosed(query) {
		r := toOrbRing(query)
		for _, p := range h.Vertices() {
			if planar.RingContains(r, orb.Point{float64(p.X), float64(p.Y)}) {
				return true
			}
		}
	}
	return false
}

// IsClosed reports whether pts forms a closed ring of at least three
// distinct vertices.
func IsClosed(pts []Point) bool {
	return len(pts) >= 4 && pts[0].Equal(pts[len(pts)-1])
}

// Contains reports whether p lies inside a polygon hull, by the even-odd
// rule over all rings. Degenerate hulls contain nothing.
func Contains(h Hull, p Point) bool {
	if h.Kind != KindPolygon {
		return false
	}
	return containsPoint(h, p)
}

func containsPoint(h Hull, p Point) bool {
	pt := orb.Point{float64(p.X), float64(p.Y)}
	inside := false
	for _, r := range h.Rings {
		if len(r) < 3 {
			continue
		}
		if planar.RingContains(toOrbRing(r), pt) {
			inside = !inside
		}
	}
	return inside
}

// SegmentsIntersect reports whether the closed segments ab and cd touch.
func SegmentsIntersect(a, b, c, d Point) bool {
	return segmentsTouch(a, b, c, d)
}

func hullSegments(h Hull) [][2]Point {
	var segs [][2]Point
	for _, r := range h.Rings {
		switch {
		case len(r) == 1:
			segs = append(segs, [2]Point{r[0], r[0]})
		case h.Kind == KindPolygon:
			for i := range r {
				segs = append(segs, [2]Point{r[i], r[(i+1)%len(r)]})
			}
		default:
			segs = append(segs, polylineSegments(r)...)
		}
	}
	return segs
}

func polylineSegments(pts []Point) [][2]Point {
	if len(pts) == 1 {
		return [][2]Point{{pts[0], pts[0]}}
	}
	segs := make([][2]Point, 0, len(pts)-1)
	for i := 0; i+1 < len(pts); i++ {
		segs = append(segs, [2]Point{pts[i], pts[i+1]})
	}
	return segs
}

// cross is the z component of (b-a) x (p-a).
func cross(a, b, p Point) float64 {
	return (float64(b.X)-float64(a.X))*(float64(p.Y)-float64(a.Y)) -
		(float64(b.Y)-float64(a.Y))*(float64(p.X)-float64(a.X))
}

// segmentsCross is a proper crossing: the interiors intersect in one point.
func segmentsCross(a, b, c, d Point) bool {
	d1, d2 := cross(c, d, a), cross(c, d, b)
	d3, d4 := cross(a, b, c), cross(a, b, d)
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

func segmentsTouch(a, b, c, d Point) bool {
	if segmentsCross(a, b, c, d) {
		return true
	}
	const eps = 1e-9
	return (math.Abs(cross(c, d, a)) <= eps && onSegment(c, d, a)) ||
		(math.Abs(cross(c, d, b)) <= eps && onSegment(c, d, b)) ||
		(math.Abs(cross(a, b, c)) <= eps && onSegment(a, b, c)) ||
		(math.Abs(cross(a, b, d)) <= eps && onSegment(a, b, d))
}

// onSegment assumes p is collinear with ab.
func onSegment(a, b, p Point) bool {
	return math.Min(float64(a.X), float64(b.X)) <= float64(p.X) &&
		float64(p.X) <= math.Max(float64(a.X), float64(b.X)) &&
		math.Min(float64(a.Y), float64(b.Y)) <= float64(p.Y) &&
		float64(p.Y) <= math.Max(float64(a.Y), float64(b.Y))
}
