package forest

import (
	"sort"

	"github.com/fogleman/delaunay"
	"github.com/lvoegtlin/open-gms-sub000/internal/geom"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

// SpanningTree triangulates the points and returns the euclidean minimum
// spanning forest of the triangulation, sorted by endpoint indices.
// Inputs with no triangulation (fewer than three points, or all points on a
// line) are chained in coordinate order instead.
func SpanningTree(points []geom.Point) ([]WeightedEdge, error) {
	if len(points) < 2 {
		return nil, nil
	}
	candidates := triangulationEdges(points)
	if candidates == nil {
		return chain(points), nil
	}

	g := simple.NewWeightedUndirectedGraph(0, 0)
	for i := range points {
		g.AddNode(simple.Node(i))
	}
	for _, e := range candidates {
		g.SetWeightedEdge(simple.WeightedEdge{
			F: simple.Node(e.A),
			T: simple.Node(e.B),
			W: e.Weight,
		})
	}

	dst := simple.NewWeightedUndirectedGraph(0, 0)
	path.Kruskal(dst, g)

	var out []WeightedEdge
	it := dst.WeightedEdges()
	for it.Next() {
		we := it.WeightedEdge()
		a, b := int(we.From().ID()), int(we.To().ID())
		if a > b {
			a, b = b, a
		}
		out = append(out, WeightedEdge{A: a, B: b, Weight: we.Weight()})
	}
	sortEdges(out)
	return out, nil
}

func triangulationEdges(points []geom.Point) []WeightedEdge {
	if len(points) < 3 {
		return nil
	}
	dpts := make([]delaunay.Point, len(points))
	for i, p := range points {
		dpts[i] = delaunay.Point{X: float64(p.X), Y: float64(p.Y)}
	}
	tri, err := delaunay.Triangulate(dpts)
	if err != nil || len(tri.Triangles) == 0 {
		return nil
	}

	var out []WeightedEdge
	for e := range tri.Triangles {
		// Each undirected edge appears as two half-edges except on the
		// hull; keep one of each.
		if opp := tri.Halfedges[e]; opp != -1 && opp < e {
			continue
		}
		a, b := tri.Triangles[e], tri.Triangles[nextHalfedge(e)]
		if a == b {
			continue
		}
		out = append(out, WeightedEdge{A: a, B: b, Weight: points[a].Dist(points[b])})
	}
	return out
}

func nextHalfedge(e int) int {
	if e%3 == 2 {
		return e - 2
	}
	return e + 1
}

func chain(points []geom.Point) []WeightedEdge {
	order := make([]int, len(points))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := points[order[i]], points[order[j]]
		if a.X != b.X {
			return a.X < b.X
		}
		return a.Y < b.Y
	})
	var out []WeightedEdge
	for i := 0; i+1 < len(order); i++ {
		a, b := order[i], order[i+1]
		w := points[a].Dist(points[b])
		if a > b {
			a, b = b, a
		}
		out = append(out, WeightedEdge{A: a, B: b, Weight: w})
	}
	sortEdges(out)
	return out
}

func sortEdges(es []WeightedEdge) {
	sort.Slice(es, func(i, j int) bool {
		if es[i].A != es[j].A {
			return es[i].A < es[j].A
		}
		return es[i].B < es[j].B
	})
}
