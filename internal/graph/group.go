package graph

import (
	"github.com/lvoegtlin/open-gms-sub000/internal/geom"
)

// Group is an ordered, duplicate-free set of partitions that form one
// visible region.
type Group struct {
	id         GroupID
	parts      []*Partition
	hull       *geom.Hull
	lastEdited *Partition
}

func (g *Group) ID() GroupID { return g.id }

// Partitions returns a copy of the member list in insertion order.
func (g *Group) Partitions() []*Partition {
	return append([]*Partition(nil), g.parts...)
}

func (g *Group) Len() int { return len(g.parts) }

func (g *Group) Contains(p *Partition) bool {
	return p != nil && p.group == g
}

// AnnotationGraphs returns the members built from scribbles.
func (g *Group) AnnotationGraphs() []*Partition {
	return g.filter(true)
}

// NonAnnotationGraphs returns the members derived from the page graph.
func (g *Group) NonAnnotationGraphs() []*Partition {
	return g.filter(false)
}

func (g *Group) filter(annotation bool) []*Partition {
	var out []*Partition
	for _, p := range g.parts {
		if p.annotation == annotation {
			out = append(out, p)
		}
	}
	return out
}

// Annotated is true iff the group holds at least one annotation graph.
func (g *Group) Annotated() bool {
	for _, p := range g.parts {
		if p.annotation {
			return true
		}
	}
	return false
}

// Hull returns the cached union hull.
func (g *Group) Hull() (geom.Hull, bool) {
	if g.hull == nil {
		return geom.Hull{}, false
	}
	return *g.hull, true
}

func (g *Group) SetHull(h geom.Hull) { g.hull = &h }

func (g *Group) ClearHull() { g.hull = nil }

// LastEdited is the member most recently added or mutated.
func (g *Group) LastEdited() *Partition { return g.lastEdited }

// Touch records p as the last edited member.
func (g *Group) Touch(p *Partition) {
	if g.Contains(p) {
		g.lastEdited = p
	}
}

// PartitionOf finds the member owning vertex v. The last edited member is
// consulted first, so right after a split the fresh side wins a lookup for a
// vertex it now owns.
func (g *Group) PartitionOf(v VertexID) *Partition {
	if g.lastEdited != nil && g.lastEdited.HasVertex(v) {
		return g.lastEdited
	}
	for _, p := range g.parts {
		if p.HasVertex(v) {
			return p
		}
	}
	return nil
}

// UnionHull rebuilds the group hull from the cached member hulls, without
// recomputing any member. Members without a hull are skipped.
func (g *Group) UnionHull() (geom.Hull, error) {
	var hulls []geom.Hull
	for _, p := range g.parts {
		if h, ok := p.Hull(); ok {
			hulls = append(hulls, h)
		}
	}
	return geom.UnionOfHulls(hulls)
}

func (g *Group) add(p *Partition) {
	g.parts = append(g.parts, p)
	p.group = g
	g.lastEdited = p
}

func (g *Group) remove(p *Partition) {
	for i, q := range g.parts {
		if q == p {
			g.parts = append(g.parts[:i], g.parts[i+1:]...)
			break
		}
	}
	p.group = nil
	if g.lastEdited == p {
		g.lastEdited = nil
		if len(g.parts) > 0 {
			g.lastEdited = g.parts[len(g.parts)-1]
		}
	}
}
