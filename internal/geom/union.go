package geom

import (
	"math"

	cgeom "github.com/ctessum/geom"
)

// UnionOfHulls unions hulls left to right. A single hull is returned
// unchanged. Point and line hulls are inflated by BufferDistance before the
// polygon clip so they contribute area.
func UnionOfHulls(hulls []Hull) (Hull, error) {
	if len(hulls) == 0 {
		return Hull{}, &GeometryError{Op: "union", Err: ErrEmptyInput}
	}
	if len(hulls) == 1 {
		return hulls[0], nil
	}

	var acc cgeom.Polygon
	for _, h := range hulls {
		if h.IsEmpty() {
			continue
		}
		p := polygonal(h)
		if acc == nil {
			acc = p
			continue
		}
		acc = acc.Union(p).(cgeom.Polygon)
	}
	if len(acc) == 0 {
		return Hull{}, &GeometryError{Op: "union", Points: len(hulls), Err: ErrEmptyInput}
	}
	return fromPolygon(acc), nil
}

func polygonal(h Hull) cgeom.Polygon {
	switch h.Kind {
	case KindPolygon:
		poly := make(cgeom.Polygon, 0, len(h.Rings))
		for _, r := range h.Rings {
			if len(r) < 3 {
				continue
			}
			poly = append(poly, toPath(r))
		}
		return poly
	case KindPoint:
		return square(h.Rings[0][0], BufferDistance)
	default:
		line := h.Rings[0]
		var acc cgeom.Polygon
		for i := 0; i+1 < len(line); i++ {
			q := segmentQuad(line[i], line[i+1], BufferDistance)
			if acc == nil {
				acc = q
				continue
			}
			acc = acc.Union(q).(cgeom.Polygon)
		}
		if acc == nil {
			return square(line[0], BufferDistance)
		}
		return acc
	}
}

func square(p Point, d float64) cgeom.Polygon {
	x, y := float64(p.X), float64(p.Y)
	return cgeom.Polygon{{
		{X: x - d, Y: y - d},
		{X: x + d, Y: y - d},
		{X: x + d, Y: y + d},
		{X: x - d, Y: y + d},
	}}
}

// segmentQuad inflates the segment ab into a rectangle extended by d on
// every side.
func segmentQuad(a, b Point, d float64) cgeom.Polygon {
	ax, ay, bx, by := float64(a.X), float64(a.Y), float64(b.X), float64(b.Y)
	dx, dy := bx-ax, by-ay
	l := math.Hypot(dx, dy)
	if l == 0 {
		return square(a, d)
	}
	ux, uy := dx/l*d, dy/l*d
	nx, ny := -uy, ux
	return cgeom.Polygon{{
		{X: ax - ux + nx, Y: ay - uy + ny},
		{X: ax - ux - nx, Y: ay - uy - ny},
		{X: bx + ux - nx, Y: by + uy - ny},
		{X: bx + ux + nx, Y: by + uy + ny},
	}}
}

func toPath(ring []Point) []cgeom.Point {
	path := make([]cgeom.Point, len(ring))
	for i, p := range ring {
		path[i] = cgeom.Point{X: float64(p.X), Y: float64(p.Y)}
	}
	return path
}

func fromPolygon(poly cgeom.Polygon) Hull {
	h := Hull{Kind: KindPolygon}
	for _, r := range poly {
		ring := make([]Point, 0, len(r))
		for _, p := range r {
			ring = append(ring, Point{X: float32(p.X), Y: float32(p.Y)})
		}
		ring = openRing(ring)
		if len(ring) >= 3 {
			h.Rings = append(h.Rings, ring)
		}
	}
	return h
}
