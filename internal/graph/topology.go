package graph

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Topology is a value snapshot of a partition's vertices and live edges.
type Topology struct {
	Partition PartitionID
	Vertices  []VertexID
	Edges     [][2]VertexID
}

// ConnectivityError reports a topology snapshot that references a vertex it
// does not contain.
type ConnectivityError struct {
	Partition PartitionID
	Vertex    VertexID
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("partition %d: edge references unknown vertex %d", e.Partition, e.Vertex)
}

// Validate checks that every edge endpoint is a vertex of the snapshot.
func (t Topology) Validate() error {
	known := make(map[VertexID]struct{}, len(t.Vertices))
	for _, v := range t.Vertices {
		known[v] = struct{}{}
	}
	for _, e := range t.Edges {
		for _, v := range e {
			if _, ok := known[v]; !ok {
				return &ConnectivityError{Partition: t.Partition, Vertex: v}
			}
		}
	}
	return nil
}

// Components returns the connected components, each sorted ascending. The
// components are ordered by their lowest vertex id, which makes every
// tie-break downstream deterministic.
func (t Topology) Components() [][]VertexID {
	g := simple.NewUndirectedGraph()
	for _, v := range t.Vertices {
		g.AddNode(simple.Node(v))
	}
	for _, e := range t.Edges {
		if e[0] == e[1] {
			continue
		}
		g.SetEdge(g.NewEdge(simple.Node(e[0]), simple.Node(e[1])))
	}

	var comps [][]VertexID
	for _, nodes := range topo.ConnectedComponents(g) {
		comp := make([]VertexID, len(nodes))
		for i, n := range nodes {
			comp[i] = VertexID(n.ID())
		}
		sort.Slice(comp, func(i, j int) bool { return comp[i] < comp[j] })
		comps = append(comps, comp)
	}
	sort.Slice(comps, func(i, j int) bool { return comps[i][0] < comps[j][0] })
	return comps
}

// Smallest returns the component with the fewest vertices. Ties go to the
// component found first.
func Smallest(comps [][]VertexID) []VertexID {
	var best []VertexID
	for _, c := range comps {
		if best == nil || len(c) < len(best) {
			best = c
		}
	}
	return best
}
