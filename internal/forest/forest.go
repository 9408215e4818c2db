// Package forest turns the page's spanning tree into the initial forest of
// partitions by cutting its longest edges.
package forest

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/lvoegtlin/open-gms-sub000/internal/ctxlog"
	"github.com/lvoegtlin/open-gms-sub000/internal/geom"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// DefaultCutThreshold is the percentage of spanning-tree edges after which
// the pruning stops.
const DefaultCutThreshold = 10.0

// WeightedEdge is an undirected edge between two point indices.
type WeightedEdge struct {
	A, B   int
	Weight float64
}

// Edge is a forest edge. Deleted edges were cut by pruning but stay part of
// the forest so the spatial index can reference them.
type Edge struct {
	WeightedEdge
	Deleted bool
}

// Forest is the pruned graph: every input point and every spanning-tree
// edge, plus the connected components of the surviving edges.
type Forest struct {
	Points     []geom.Point
	Edges      []Edge
	Components [][]int
}

// Build prunes the spanning tree and computes the resulting components.
func Build(ctx context.Context, points []geom.Point, tree []WeightedEdge, thresholdPct float64) (*Forest, error) {
	logger := ctxlog.FromContext(ctx)
	for _, e := range tree {
		if e.A < 0 || e.A >= len(points) || e.B < 0 || e.B >= len(points) {
			return nil, fmt.Errorf("edge %d-%d references a point outside [0,%d)", e.A, e.B, len(points))
		}
	}

	cut := Prune(len(points), tree, thresholdPct)
	f := &Forest{Points: append([]geom.Point(nil), points...)}
	removed := 0
	for i, e := range tree {
		f.Edges = append(f.Edges, Edge{WeightedEdge: e, Deleted: cut[i]})
		if cut[i] {
			removed++
		}
	}
	f.Components = f.components()
	logger.Debug("Forest pruned.",
		"points", len(points),
		"edges", len(tree),
		"cut", removed,
		"components", len(f.Components),
	)
	return f, nil
}

// Prune marks the edges of the heaviest Sturges weight classes for removal.
// Classes are walked heaviest first and cut until the cumulative share of
// removed edges exceeds thresholdPct. The result is indexed like edges.
// When no prefix exceeds thresholdPct nothing is cut.
//
// With fewer than two classes, or when all weights are equal, there is no
// "long" edge and nothing is cut.
func Prune(vertexCount int, edges []WeightedEdge, thresholdPct float64) []bool {
	cut := make([]bool, len(edges))
	if len(edges) == 0 || vertexCount < 3 {
		return cut
	}
	k := sturges(vertexCount)
	if k < 2 {
		return cut
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, e := range edges {
		lo = math.Min(lo, e.Weight)
		hi = math.Max(hi, e.Weight)
	}
	if hi == lo {
		return cut
	}
	width := (hi - lo) / float64(k)

	class := make([]int, len(edges))
	counts := make([]int, k)
	for i, e := range edges {
		c := int((hi - e.Weight) / width)
		if c >= k {
			c = k - 1
		}
		class[i] = c
		counts[c]++
	}

	last := -1
	removed := 0
	for c := 0; c < k; c++ {
		removed += counts[c]
		if float64(removed)/float64(len(edges))*100 > thresholdPct {
			last = c
			break
		}
	}
	if last < 0 {
		// No prefix exceeds the threshold.
		return cut
	}
	for i := range edges {
		cut[i] = class[i] <= last
	}
	return cut
}

// sturges returns ceil(1 + 3.3*log10(n-1)).
func sturges(n int) int {
	if n < 2 {
		return 0
	}
	return int(math.Ceil(1 + 3.3*math.Log10(float64(n-1))))
}

// components groups point indices by the surviving edges. Components are
// ordered by their lowest index, and isolated points form their own.
func (f *Forest) components() [][]int {
	g := simple.NewUndirectedGraph()
	for i := range f.Points {
		g.AddNode(simple.Node(i))
	}
	for _, e := range f.Edges {
		if e.Deleted || e.A == e.B {
			continue
		}
		g.SetEdge(g.NewEdge(simple.Node(e.A), simple.Node(e.B)))
	}

	var comps [][]int
	for _, nodes := range topo.ConnectedComponents(g) {
		comp := make([]int, len(nodes))
		for i, n := range nodes {
			comp[i] = int(n.ID())
		}
		sort.Ints(comp)
		comps = append(comps, comp)
	}
	sort.Slice(comps, func(i, j int) bool { return comps[i][0] < comps[j][0] })
	return comps
}

// ComponentEdges returns the indices into f.Edges of the live edges inside
// each component, aligned with f.Components.
func (f *Forest) ComponentEdges() [][]int {
	compOf := make([]int, len(f.Points))
	for ci, comp := range f.Components {
		for _, v := range comp {
			compOf[v] = ci
		}
	}
	out := make([][]int, len(f.Components))
	for i, e := range f.Edges {
		if e.Deleted {
			continue
		}
		c := compOf[e.A]
		out[c] = append(out[c], i)
	}
	return out
}

// Recompute refreshes Components from the Deleted flags, for forests loaded
// from disk.
func (f *Forest) Recompute() {
	f.Components = f.components()
}
