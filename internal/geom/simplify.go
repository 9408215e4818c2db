package geom

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"
)

// SimplifyPolyline reduces a freehand scribble with Douglas-Peucker. The
// returned points are a subsequence of the input, so component ids survive.
func SimplifyPolyline(points []Point, tolerance float64) []Point {
	if len(points) < 3 || tolerance <= 0 {
		return append([]Point(nil), points...)
	}
	ls := make(orb.LineString, len(points))
	for i, p := range points {
		ls[i] = orb.Point{float64(p.X), float64(p.Y)}
	}
	s := simplify.DouglasPeucker(tolerance).Simplify(ls.Clone())
	kept, ok := s.(orb.LineString)
	if !ok || len(kept) == 0 {
		return append([]Point(nil), points...)
	}

	// Walk both sequences in order to map the kept coordinates back onto the
	// original points.
	out := make([]Point, 0, len(kept))
	j := 0
	for _, k := range kept {
		for j < len(points) {
			p := points[j]
			j++
			if float64(p.X) == k[0] && float64(p.Y) == k[1] {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

func simplifyRing(ring []Point, tolerance float64) []Point {
	closed := toOrbRing(ring)
	s := simplify.DouglasPeucker(tolerance).Simplify(orb.LineString(closed).Clone())
	ls, ok := s.(orb.LineString)
	if !ok {
		return ring
	}
	out := make([]Point, 0, len(ls))
	for _, p := range ls {
		out = append(out, Point{X: float32(p[0]), Y: float32(p[1])})
	}
	return openRing(out)
}

// toOrbRing converts an open ring to a closed orb.Ring.
func toOrbRing(ring []Point) orb.Ring {
	r := make(orb.Ring, 0, len(ring)+1)
	for _, p := range ring {
		r = append(r, orb.Point{float64(p.X), float64(p.Y)})
	}
	if len(ring) > 0 && !ring[0].Equal(ring[len(ring)-1]) {
		r = append(r, r[0])
	}
	return r
}
