package graph

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/lvoegtlin/open-gms-sub000/internal/geom"
)

var (
	ErrPartitionOwned = errors.New("partition is owned by another group")
	ErrUnknownVertex  = errors.New("unknown vertex")
	ErrUnknownEdge    = errors.New("unknown edge")
	ErrVertexOwned    = errors.New("vertex is owned by another partition")
	ErrEdgeOwned      = errors.New("edge is owned by another partition")
	ErrEdgeDeleted    = errors.New("edge is deleted")
	ErrGroupNotEmpty  = errors.New("group is not empty")
	ErrNotDetached    = errors.New("invalid detached handle")
	ErrBadWeight      = errors.New("edge weight is not a finite non-negative number")
)

// Detached is an owned handle to a partition that belongs to no group.
type Detached struct {
	p *Partition
}

// Partition returns the handle's partition.
func (d Detached) Partition() *Partition { return d.p }

// Model holds the whole working graph and its partitioning.
type Model struct {
	vertices   map[VertexID]*Vertex
	edges      map[EdgeID]*Edge
	partitions map[PartitionID]*Partition
	groups     map[GroupID]*Group

	vertexOwner map[VertexID]*Partition
	edgeOwner   map[EdgeID]*Partition

	nextVertex    VertexID
	nextEdge      EdgeID
	nextPartition PartitionID
	nextGroup     GroupID
}

func NewModel() *Model {
	return &Model{
		vertices:    make(map[VertexID]*Vertex),
		edges:       make(map[EdgeID]*Edge),
		partitions:  make(map[PartitionID]*Partition),
		groups:      make(map[GroupID]*Group),
		vertexOwner: make(map[VertexID]*Partition),
		edgeOwner:   make(map[EdgeID]*Partition),
	}
}

// AddVertex registers a vertex that no partition owns yet.
func (m *Model) AddVertex(pt geom.Point, userAdded bool) *Vertex {
	v := &Vertex{Point: pt, ID: m.nextVertex, UserAdded: userAdded}
	m.nextVertex++
	m.vertices[v.ID] = v
	return v
}

// AddEdge registers an edge between two known vertices. The edge is not
// owned by any partition until NewPartition claims it.
func (m *Model) AddEdge(from, to VertexID, weight float64) (*Edge, error) {
	a, ok := m.vertices[from]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownVertex, from)
	}
	b, ok := m.vertices[to]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownVertex, to)
	}
	if math.IsNaN(weight) || math.IsInf(weight, 0) || weight < 0 {
		return nil, fmt.Errorf("%w: %g", ErrBadWeight, weight)
	}
	e := newEdge(m.nextEdge, a, b, weight)
	m.nextEdge++
	m.edges[e.ID] = e
	return e, nil
}

// Forget drops vertices and edges that no partition owns, undoing AddVertex
// and AddEdge. Owned ids are refused and nothing is dropped.
func (m *Model) Forget(vertices []VertexID, edges []EdgeID) error {
	for _, id := range edges {
		if _, owned := m.edgeOwner[id]; owned {
			return fmt.Errorf("%w: %d", ErrEdgeOwned, id)
		}
	}
	for _, id := range vertices {
		if _, owned := m.vertexOwner[id]; owned {
			return fmt.Errorf("%w: %d", ErrVertexOwned, id)
		}
	}
	for _, id := range edges {
		delete(m.edges, id)
	}
	for _, id := range vertices {
		delete(m.vertices, id)
	}
	return nil
}

func (m *Model) Vertex(id VertexID) (*Vertex, bool) {
	v, ok := m.vertices[id]
	return v, ok
}

func (m *Model) Edge(id EdgeID) (*Edge, bool) {
	e, ok := m.edges[id]
	return e, ok
}

func (m *Model) Partition(id PartitionID) (*Partition, bool) {
	p, ok := m.partitions[id]
	return p, ok
}

func (m *Model) Group(id GroupID) (*Group, bool) {
	g, ok := m.groups[id]
	return g, ok
}

// EdgeOwner returns the partition that holds a live edge.
func (m *Model) EdgeOwner(id EdgeID) (*Partition, bool) {
	p, ok := m.edgeOwner[id]
	return p, ok
}

func (m *Model) VertexOwner(id VertexID) (*Partition, bool) {
	p, ok := m.vertexOwner[id]
	return p, ok
}

// Edges returns every edge ever registered, deleted ones included, by id.
func (m *Model) Edges() []*Edge {
	out := make([]*Edge, 0, len(m.edges))
	for _, e := range m.edges {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Vertices returns the live vertices by id.
func (m *Model) Vertices() []*Vertex {
	out := make([]*Vertex, 0, len(m.vertices))
	for _, v := range m.vertices {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Model) Partitions() []*Partition {
	out := make([]*Partition, 0, len(m.partitions))
	for _, p := range m.partitions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (m *Model) Groups() []*Group {
	out := make([]*Group, 0, len(m.groups))
	for _, g := range m.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// NewPartition claims unowned vertices and live unowned edges into a new
// partition. Every edge endpoint must be among the given vertices.
func (m *Model) NewPartition(annotation bool, vertices []VertexID, edges []EdgeID) (Detached, error) {
	set := make(map[VertexID]struct{}, len(vertices))
	for _, id := range vertices {
		if _, ok := m.vertices[id]; !ok {
			return Detached{}, fmt.Errorf("%w: %d", ErrUnknownVertex, id)
		}
		if _, owned := m.vertexOwner[id]; owned {
			return Detached{}, fmt.Errorf("%w: %d", ErrVertexOwned, id)
		}
		set[id] = struct{}{}
	}
	for _, id := range edges {
		e, ok := m.edges[id]
		if !ok {
			return Detached{}, fmt.Errorf("%w: %d", ErrUnknownEdge, id)
		}
		if e.Deleted {
			return Detached{}, fmt.Errorf("%w: %d", ErrEdgeDeleted, id)
		}
		if _, owned := m.edgeOwner[id]; owned {
			return Detached{}, fmt.Errorf("%w: %d", ErrEdgeOwned, id)
		}
		for _, v := range [2]VertexID{e.From, e.To} {
			if _, ok := set[v]; !ok {
				return Detached{}, &ConnectivityError{Partition: m.nextPartition, Vertex: v}
			}
		}
	}

	p := newPartition(m.nextPartition, annotation)
	m.nextPartition++
	for _, id := range vertices {
		p.addVertex(m.vertices[id])
		m.vertexOwner[id] = p
	}
	for _, id := range edges {
		e := m.edges[id]
		p.addEdge(e)
		m.edgeOwner[id] = p
	}
	m.partitions[p.id] = p
	return Detached{p: p}, nil
}

// NewGroup registers an empty group.
func (m *Model) NewGroup() *Group {
	g := &Group{id: m.nextGroup}
	m.nextGroup++
	m.groups[g.id] = g
	return g
}

// Attach moves a detached partition into g.
func (m *Model) Attach(g *Group, d Detached) error {
	p := d.p
	if p == nil {
		return ErrNotDetached
	}
	if _, ok := m.partitions[p.id]; !ok {
		return fmt.Errorf("%w: partition %d is not live", ErrNotDetached, p.id)
	}
	if p.group != nil {
		return fmt.Errorf("%w: partition %d in group %d", ErrPartitionOwned, p.id, p.group.id)
	}
	if _, ok := m.groups[g.id]; !ok {
		m.groups[g.id] = g
	}
	g.add(p)
	return nil
}

// Detach removes p from its group. The group stays registered even when it
// becomes empty; RemoveGroup disposes of it.
func (m *Model) Detach(p *Partition) Detached {
	if p.group != nil {
		p.group.remove(p)
	}
	return Detached{p: p}
}

// RemoveGroup unregisters an empty group.
func (m *Model) RemoveGroup(g *Group) error {
	if len(g.parts) > 0 {
		return fmt.Errorf("%w: group %d has %d partitions", ErrGroupNotEmpty, g.id, len(g.parts))
	}
	delete(m.groups, g.id)
	return nil
}

// DeleteEdge soft-deletes a live edge and drops it from its owner, which is
// returned.
func (m *Model) DeleteEdge(id EdgeID) (*Partition, error) {
	e, ok := m.edges[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownEdge, id)
	}
	if e.Deleted {
		return nil, fmt.Errorf("%w: %d", ErrEdgeDeleted, id)
	}
	p, ok := m.edgeOwner[id]
	if ok {
		p.removeEdge(id)
		delete(m.edgeOwner, id)
	}
	e.Deleted = true
	return p, nil
}

// RestoreEdge undeletes an edge into p. Both endpoints must belong to p.
func (m *Model) RestoreEdge(id EdgeID, p *Partition) error {
	e, ok := m.edges[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownEdge, id)
	}
	if owner, owned := m.edgeOwner[id]; owned {
		if owner == p && !e.Deleted {
			return nil
		}
		return fmt.Errorf("%w: %d", ErrEdgeOwned, id)
	}
	for _, v := range [2]VertexID{e.From, e.To} {
		if !p.HasVertex(v) {
			return &ConnectivityError{Partition: p.id, Vertex: v}
		}
	}
	e.Deleted = false
	p.addEdge(e)
	m.edgeOwner[id] = p
	return nil
}

// Carve moves the given vertices of p, and every live edge between them,
// into a new detached partition. No live edge of p may cross the cut.
func (m *Model) Carve(p *Partition, vertices []VertexID) (Detached, error) {
	set := make(map[VertexID]struct{}, len(vertices))
	for _, v := range vertices {
		if !p.HasVertex(v) {
			return Detached{}, fmt.Errorf("%w: %d not in partition %d", ErrUnknownVertex, v, p.id)
		}
		set[v] = struct{}{}
	}
	var moved []*Edge
	for _, e := range p.Edges() {
		_, a := set[e.From]
		_, b := set[e.To]
		switch {
		case a && b:
			moved = append(moved, e)
		case a:
			return Detached{}, fmt.Errorf("carve partition %d: %w", p.id, &ConnectivityError{Partition: p.id, Vertex: e.To})
		case b:
			return Detached{}, fmt.Errorf("carve partition %d: %w", p.id, &ConnectivityError{Partition: p.id, Vertex: e.From})
		}
	}

	np := newPartition(m.nextPartition, p.annotation)
	m.nextPartition++
	for _, v := range vertices {
		vx := p.vertices[v]
		p.removeVertex(v)
		np.addVertex(vx)
		m.vertexOwner[v] = np
	}
	for _, e := range moved {
		p.removeEdge(e.ID)
		np.addEdge(e)
		m.edgeOwner[e.ID] = np
	}
	m.partitions[np.id] = np
	if p.group != nil {
		p.group.Touch(p)
	}
	return Detached{p: np}, nil
}

// Merge moves every vertex and edge of src into dst and destroys src.
func (m *Model) Merge(dst *Partition, src Detached) error {
	p := src.p
	if p == nil || p == dst {
		return ErrNotDetached
	}
	if p.group != nil {
		return fmt.Errorf("%w: partition %d in group %d", ErrPartitionOwned, p.id, p.group.id)
	}
	for _, id := range p.VertexIDs() {
		v := p.vertices[id]
		p.removeVertex(id)
		dst.addVertex(v)
		m.vertexOwner[id] = dst
	}
	for _, e := range p.edges {
		dst.addEdge(e)
		m.edgeOwner[e.ID] = dst
	}
	p.edges = make(map[EdgeID]*Edge)
	delete(m.partitions, p.id)
	if dst.group != nil {
		dst.group.Touch(dst)
	}
	return nil
}

// Retire takes a detached partition out of the model. Its vertices leave
// the live set and its edges are soft-deleted, but the partition keeps them
// so Revive can bring it back unchanged.
func (m *Model) Retire(d Detached) error {
	p := d.p
	if p == nil {
		return ErrNotDetached
	}
	if p.group != nil {
		return fmt.Errorf("%w: partition %d in group %d", ErrPartitionOwned, p.id, p.group.id)
	}
	for id := range p.vertices {
		delete(m.vertices, id)
		delete(m.vertexOwner, id)
	}
	for id, e := range p.edges {
		e.Deleted = true
		delete(m.edgeOwner, id)
	}
	delete(m.partitions, p.id)
	return nil
}

// Revive re-registers a retired partition with its vertices and edges.
func (m *Model) Revive(p *Partition) (Detached, error) {
	if _, live := m.partitions[p.id]; live {
		return Detached{}, fmt.Errorf("partition %d is already live", p.id)
	}
	for id := range p.vertices {
		if _, owned := m.vertexOwner[id]; owned {
			return Detached{}, fmt.Errorf("%w: %d", ErrVertexOwned, id)
		}
	}
	for id, v := range p.vertices {
		m.vertices[id] = v
		m.vertexOwner[id] = p
	}
	for id, e := range p.edges {
		e.Deleted = false
		m.edgeOwner[id] = p
	}
	m.partitions[p.id] = p
	return Detached{p: p}, nil
}

// GroupState is a verbatim snapshot of a group and its members' hulls.
type GroupState struct {
	Group      *Group
	Parts      []*Partition
	Hull       *geom.Hull
	PartHulls  map[PartitionID]*geom.Hull
	LastEdited *Partition
}

// SaveGroup snapshots g for a later RestoreGroup.
func (m *Model) SaveGroup(g *Group) GroupState {
	s := GroupState{
		Group:      g,
		Parts:      g.Partitions(),
		PartHulls:  make(map[PartitionID]*geom.Hull, len(g.parts)),
		LastEdited: g.lastEdited,
	}
	if h, ok := g.Hull(); ok {
		c := h.Clone()
		s.Hull = &c
	}
	for _, p := range g.parts {
		if h, ok := p.Hull(); ok {
			c := h.Clone()
			s.PartHulls[p.id] = &c
		} else {
			s.PartHulls[p.id] = nil
		}
	}
	return s
}

// RestoreGroup puts a group back exactly as saved. Saved members currently
// in another group are detached from it first; current members that are not
// part of the snapshot are detached and returned so the caller can dispose
// of them.
func (m *Model) RestoreGroup(s GroupState) ([]Detached, error) {
	g := s.Group
	keep := make(map[*Partition]bool, len(s.Parts))
	for _, p := range s.Parts {
		if _, ok := m.partitions[p.id]; !ok {
			return nil, fmt.Errorf("restore group %d: partition %d is not live", g.id, p.id)
		}
		keep[p] = true
	}

	var evicted []Detached
	for _, p := range g.Partitions() {
		if !keep[p] {
			evicted = append(evicted, m.Detach(p))
		}
	}
	for _, p := range s.Parts {
		if p.group != nil {
			m.Detach(p)
		}
	}

	g.parts = nil
	for _, p := range s.Parts {
		g.add(p)
		p.hull = s.PartHulls[p.id]
	}
	g.hull = s.Hull
	g.lastEdited = s.LastEdited
	m.groups[g.id] = g
	return evicted, nil
}

// CheckInvariants verifies partition exclusivity: every live vertex is owned
// by exactly one live partition, every live partition by exactly one live
// group, and every live edge lies inside its owner.
func (m *Model) CheckInvariants() error {
	seen := make(map[VertexID]PartitionID, len(m.vertices))
	for _, p := range m.Partitions() {
		if p.group == nil {
			return fmt.Errorf("partition %d has no group", p.id)
		}
		if _, ok := m.groups[p.group.id]; !ok || m.groups[p.group.id] != p.group {
			return fmt.Errorf("partition %d belongs to unregistered group %d", p.id, p.group.id)
		}
		for id := range p.vertices {
			if other, dup := seen[id]; dup {
				return fmt.Errorf("vertex %d in partitions %d and %d", id, other, p.id)
			}
			seen[id] = p.id
			if m.vertexOwner[id] != p {
				return fmt.Errorf("vertex %d owner map disagrees with partition %d", id, p.id)
			}
		}
		for id, e := range p.edges {
			if e.Deleted {
				return fmt.Errorf("deleted edge %d still in partition %d", id, p.id)
			}
			if m.edgeOwner[id] != p {
				return fmt.Errorf("edge %d owner map disagrees with partition %d", id, p.id)
			}
			if !p.HasVertex(e.From) || !p.HasVertex(e.To) {
				return fmt.Errorf("edge %d dangles out of partition %d", id, p.id)
			}
		}
	}
	for id := range m.vertices {
		if _, ok := seen[id]; !ok {
			return fmt.Errorf("vertex %d has no partition", id)
		}
	}
	for _, g := range m.Groups() {
		if len(g.parts) == 0 {
			return fmt.Errorf("group %d is empty", g.id)
		}
		count := make(map[*Partition]int, len(g.parts))
		for _, p := range g.parts {
			count[p]++
			if count[p] > 1 {
				return fmt.Errorf("partition %d listed twice in group %d", p.id, g.id)
			}
			if p.group != g {
				return fmt.Errorf("group %d lists partition %d owned by another group", g.id, p.id)
			}
			if _, ok := m.partitions[p.id]; !ok {
				return fmt.Errorf("group %d lists dead partition %d", g.id, p.id)
			}
		}
	}
	return nil
}
