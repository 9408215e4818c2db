package graph

import (
	"sort"

	"github.com/lvoegtlin/open-gms-sub000/internal/geom"
)

// Partition is one connected component of the working graph plus its cached
// concave hull.
type Partition struct {
	id         PartitionID
	annotation bool
	annotated  bool

	vertices map[VertexID]*Vertex
	edges    map[EdgeID]*Edge
	adj      map[VertexID]map[EdgeID]struct{}

	hull  *geom.Hull
	group *Group
}

func newPartition(id PartitionID, annotation bool) *Partition {
	return &Partition{
		id:         id,
		annotation: annotation,
		vertices:   make(map[VertexID]*Vertex),
		edges:      make(map[EdgeID]*Edge),
		adj:        make(map[VertexID]map[EdgeID]struct{}),
	}
}

func (p *Partition) ID() PartitionID { return p.id }

// IsAnnotationGraph is true for partitions built from a scribble.
func (p *Partition) IsAnnotationGraph() bool { return p.annotation }

// Annotated is set while the partition is the label carrier of a registered
// region.
func (p *Partition) Annotated() bool { return p.annotated }

func (p *Partition) MarkAnnotated(v bool) { p.annotated = v }

// Group returns the owning group, or nil for a detached partition.
func (p *Partition) Group() *Group { return p.group }

func (p *Partition) VertexCount() int { return len(p.vertices) }
func (p *Partition) EdgeCount() int   { return len(p.edges) }

func (p *Partition) HasVertex(id VertexID) bool {
	_, ok := p.vertices[id]
	return ok
}

func (p *Partition) HasEdge(id EdgeID) bool {
	_, ok := p.edges[id]
	return ok
}

// VertexIDs returns the vertex ids in ascending order.
func (p *Partition) VertexIDs() []VertexID {
	ids := make([]VertexID, 0, len(p.vertices))
	for id := range p.vertices {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// EdgeIDs returns the live edge ids in ascending order.
func (p *Partition) EdgeIDs() []EdgeID {
	ids := make([]EdgeID, 0, len(p.edges))
	for id := range p.edges {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Edges returns the live edges ordered by id.
func (p *Partition) Edges() []*Edge {
	out := make([]*Edge, 0, len(p.edges))
	for _, id := range p.EdgeIDs() {
		out = append(out, p.edges[id])
	}
	return out
}

// Points snapshots the vertex coordinates ordered by vertex id. Hull jobs
// run on this copy.
func (p *Partition) Points() []geom.Point {
	pts := make([]geom.Point, 0, len(p.vertices))
	for _, id := range p.VertexIDs() {
		pts = append(pts, p.vertices[id].Point)
	}
	return pts
}

// Hull returns the cached hull, if one was computed.
func (p *Partition) Hull() (geom.Hull, bool) {
	if p.hull == nil {
		return geom.Hull{}, false
	}
	return *p.hull, true
}

func (p *Partition) SetHull(h geom.Hull) { p.hull = &h }

func (p *Partition) ClearHull() { p.hull = nil }

// Degree returns the number of live edges incident to v.
func (p *Partition) Degree(v VertexID) int { return len(p.adj[v]) }

// Topology snapshots the partition for connectivity analysis.
func (p *Partition) Topology() Topology {
	t := Topology{Partition: p.id, Vertices: p.VertexIDs()}
	for _, e := range p.Edges() {
		t.Edges = append(t.Edges, [2]VertexID{e.From, e.To})
	}
	return t
}

// Connected reports whether the live edges span all vertices.
func (p *Partition) Connected() bool {
	return len(p.Topology().Components()) <= 1
}

func (p *Partition) addVertex(v *Vertex) {
	p.vertices[v.ID] = v
	if _, ok := p.adj[v.ID]; !ok {
		p.adj[v.ID] = make(map[EdgeID]struct{})
	}
}

func (p *Partition) removeVertex(id VertexID) {
	delete(p.vertices, id)
	delete(p.adj, id)
}

func (p *Partition) addEdge(e *Edge) {
	p.edges[e.ID] = e
	p.adj[e.From][e.ID] = struct{}{}
	p.adj[e.To][e.ID] = struct{}{}
}

func (p *Partition) removeEdge(id EdgeID) *Edge {
	e, ok := p.edges[id]
	if !ok {
		return nil
	}
	delete(p.edges, id)
	delete(p.adj[e.From], id)
	delete(p.adj[e.To], id)
	return e
}
