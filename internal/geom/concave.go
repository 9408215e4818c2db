package geom

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

const (
	// DefaultTightness is the starting neighbour count of the hull walk.
	// Values below 7 give unstable rings on page graphs.
	DefaultTightness = 25
	// BufferDistance is the outward offset applied to every traced ring.
	BufferDistance = 1.0
	// HullTolerance is the Douglas-Peucker tolerance applied after buffering.
	HullTolerance = 1.0
)

// ConcaveHull traces a k-nearest-neighbour concave hull around points. The
// walk starts with k = tightness and widens k each time the ring would cross
// itself or leave a point outside. The traced ring is buffered and then
// simplified.
//
// Fewer than four distinct points produce a point or line hull. An empty
// input and a walk that fails for every k return a *GeometryError.
func ConcaveHull(points []Point, tightness int) (Hull, error) {
	pts := dedup(points)
	switch {
	case len(pts) == 0:
		return Hull{}, &GeometryError{Op: "concave hull", Err: ErrEmptyInput}
	case len(pts) == 1:
		return PointHull(pts[0]), nil
	case len(pts) < 4:
		return LineHull(pts...), nil
	}
	if lo, hi, ok := collinear(pts); ok {
		return LineHull(lo, hi), nil
	}

	k := tightness
	if k < 3 {
		k = 3
	}
	if k > len(pts)-1 {
		k = len(pts) - 1
	}
	for ; k <= len(pts)-1; k++ {
		if ring, ok := traceRing(pts, k); ok {
			return finishRing(ring), nil
		}
	}
	return Hull{}, &GeometryError{Op: "concave hull", Points: len(pts), Err: ErrSelfIntersecting}
}

// traceRing runs one Moreira-Santos walk with a fixed k. The walk turns
// right as sharply as possible at every step, which traverses the boundary
// counter-clockwise starting from the lowest point.
func traceRing(pts []Point, k int) ([]Point, bool) {
	first := lowest(pts)
	dataset := make([]int, 0, len(pts)-1)
	for i := range pts {
		if i != first {
			dataset = append(dataset, i)
		}
	}

	hull := []int{first}
	current := first
	back := 0.0
	for step := 2; (current != first || step == 2) && len(dataset) > 0; step++ {
		if step == 5 {
			dataset = append(dataset, first)
		}
		cand := nearest(pts, current, dataset, k)
		sortByTurn(pts, current, back, cand, step == 2)

		crossing := true
		i := -1
		for crossing && i < len(cand)-1 {
			i++
			last := 0
			if cand[i] == first {
				last = 1
			}
			crossing = false
			for j := 2; !crossing && j < len(hull)-last; j++ {
				crossing = segmentsCross(
					pts[hull[step-2]], pts[cand[i]],
					pts[hull[step-2-j]], pts[hull[step-1-j]],
				)
			}
		}
		if crossing {
			return nil, false
		}

		current = cand[i]
		hull = append(hull, current)
		back = heading(pts[current], pts[hull[len(hull)-2]])
		dataset = removeIndex(dataset, current)
	}

	if hull[len(hull)-1] == first {
		hull = hull[:len(hull)-1]
	}
	if len(hull) < 3 {
		return nil, false
	}
	ring := make([]Point, len(hull))
	for i, idx := range hull {
		ring[i] = pts[idx]
	}
	if !containsAll(ring, pts) {
		return nil, false
	}
	return ring, true
}

func lowest(pts []Point) int {
	best := 0
	for i, p := range pts {
		b := pts[best]
		if p.Y < b.Y || (p.Y == b.Y && p.X < b.X) {
			best = i
		}
	}
	return best
}

// nearest returns up to k dataset indices closest to pts[from].
func nearest(pts []Point, from int, dataset []int, k int) []int {
	cand := append([]int(nil), dataset...)
	origin := pts[from]
	sort.SliceStable(cand, func(a, b int) bool {
		return origin.Dist(pts[cand[a]]) < origin.Dist(pts[cand[b]])
	})
	if k < len(cand) {
		cand = cand[:k]
	}
	return cand
}

// sortByTurn orders candidates by the counter-clockwise angle measured from
// the direction we came from, which is the same as sharpest right turn first.
// A candidate straight behind us is a U-turn and sorts last, except on the
// first step where "behind" is the virtual +x direction.
func sortByTurn(pts []Point, from int, back float64, cand []int, firstStep bool) {
	origin := pts[from]
	turn := make(map[int]float64, len(cand))
	for _, c := range cand {
		a := math.Mod(heading(origin, pts[c])-back+4*math.Pi, 2*math.Pi)
		if a < 1e-12 && !firstStep {
			a = 2 * math.Pi
		}
		turn[c] = a
	}
	sort.SliceStable(cand, func(i, j int) bool {
		ti, tj := turn[cand[i]], turn[cand[j]]
		if ti != tj {
			return ti < tj
		}
		return origin.Dist(pts[cand[i]]) < origin.Dist(pts[cand[j]])
	})
}

func heading(from, to Point) float64 {
	return math.Atan2(float64(to.Y-from.Y), float64(to.X-from.X))
}

func removeIndex(s []int, v int) []int {
	for i, x := range s {
		if x == v {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}

func collinear(pts []Point) (Point, Point, bool) {
	a, b := pts[0], pts[1]
	for _, p := range pts[2:] {
		if math.Abs(cross(a, b, p)) > 1e-9 {
			return Point{}, Point{}, false
		}
	}
	sorted := append([]Point(nil), pts...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].X != sorted[j].X {
			return sorted[i].X < sorted[j].X
		}
		return sorted[i].Y < sorted[j].Y
	})
	return sorted[0], sorted[len(sorted)-1], true
}

func containsAll(ring []Point, pts []Point) bool {
	r := toOrbRing(ring)
	for _, p := range pts {
		if !planar.RingContains(r, orb.Point{float64(p.X), float64(p.Y)}) {
			return false
		}
	}
	return true
}

// finishRing buffers the ring outward and simplifies it.
func finishRing(ring []Point) Hull {
	if signedArea(ring) < 0 {
		ring = reversed(ring)
	}
	buffered := offsetRing(ring, BufferDistance)
	simplified := simplifyRing(buffered, HullTolerance)
	if len(simplified) < 3 {
		simplified = buffered
	}
	return PolygonHull(simplified)
}

// offsetRing moves every vertex of a counter-clockwise ring outward along
// the bisector of its two edge normals. Miters are clamped at 3d.
func offsetRing(ring []Point, d float64) []Point {
	n := len(ring)
	out := make([]Point, n)
	for i := range ring {
		prev, cur, next := ring[(i+n-1)%n], ring[i], ring[(i+1)%n]
		n1x, n1y := outwardNormal(prev, cur)
		n2x, n2y := outwardNormal(cur, next)
		bx, by := n1x+n2x, n1y+n2y
		l := math.Hypot(bx, by)
		if l < 1e-9 {
			bx, by, l = n1x, n1y, 1
		}
		m := math.Min(2*d/l, 3*d)
		out[i] = Point{
			X:         cur.X + float32(bx/l*m),
			Y:         cur.Y + float32(by/l*m),
			Component: cur.Component,
		}
	}
	return out
}

func outwardNormal(a, b Point) (float64, float64) {
	dx, dy := float64(b.X-a.X), float64(b.Y-a.Y)
	l := math.Hypot(dx, dy)
	if l == 0 {
		return 0, 0
	}
	return dy / l, -dx / l
}

func reversed(ring []Point) []Point {
	out := make([]Point, len(ring))
	for i, p := range ring {
		out[len(ring)-1-i] = p
	}
	return out
}
