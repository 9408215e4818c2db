package annotation

import (
	"github.com/lvoegtlin/open-gms-sub000/internal/graph"
)

// Index maps annotation type names to their regions. A group is the
// polygon of at most one region across the whole index.
type Index struct {
	order   []string
	types   map[string]Type
	buckets map[string][]*Polygon
}

// NewIndex returns an index with the configured types, in order.
func NewIndex(types ...Type) *Index {
	x := &Index{
		types:   make(map[string]Type),
		buckets: make(map[string][]*Polygon),
	}
	for _, t := range types {
		x.register(t)
	}
	return x
}

func (x *Index) register(t Type) {
	if _, ok := x.types[t.Name]; !ok {
		x.order = append(x.order, t.Name)
	}
	x.types[t.Name] = t
}

// Types returns the known types in configuration order.
func (x *Index) Types() []Type {
	out := make([]Type, 0, len(x.order))
	for _, n := range x.order {
		out = append(out, x.types[n])
	}
	return out
}

// Type looks a type up by name.
func (x *Index) Type(name string) (Type, bool) {
	t, ok := x.types[name]
	return t, ok
}

// AddRegion registers group under t. A new region is created with source
// as its only source and true is returned. If the group is already a region
// of t, source is appended to it and false is returned. A group registered
// under another type moves to t as a new region.
func (x *Index) AddRegion(group *graph.Group, source *graph.Partition, t Type) bool {
	if p, ok := x.FindByGroup(group); ok {
		if p.Type.Equal(t) {
			if source != nil && !p.HasSource(source) {
				p.Sources = append(p.Sources, source)
			}
			markAnnotated(group, true)
			return false
		}
		x.RemoveRegion(group)
	}

	x.register(t)
	p := &Polygon{ID: NewRegionID(), Group: group, Type: t}
	if source != nil {
		p.Sources = []*graph.Partition{source}
	}
	x.buckets[t.Name] = append(x.buckets[t.Name], p)
	markAnnotated(group, true)
	return true
}

// RemoveRegion deletes the region whose polygon is group.
func (x *Index) RemoveRegion(group *graph.Group) (*Polygon, bool) {
	for name, bucket := range x.buckets {
		for i, p := range bucket {
			if p.Group != group {
				continue
			}
			x.buckets[name] = append(bucket[:i:i], bucket[i+1:]...)
			markAnnotated(group, false)
			return p, true
		}
	}
	return nil, false
}

// Restore puts a previously removed region back, keeping its id.
func (x *Index) Restore(p *Polygon) {
	x.RemoveRegion(p.Group)
	x.register(p.Type)
	x.buckets[p.Type.Name] = append(x.buckets[p.Type.Name], p)
	markAnnotated(p.Group, true)
}

// FindByGroup returns the region whose polygon is group.
func (x *Index) FindByGroup(group *graph.Group) (*Polygon, bool) {
	if group == nil {
		return nil, false
	}
	for _, name := range x.order {
		for _, p := range x.buckets[name] {
			if p.Group == group {
				return p, true
			}
		}
	}
	return nil, false
}

// FindByPartition returns the region of the group owning part.
func (x *Index) FindByPartition(part *graph.Partition) (*Polygon, bool) {
	return x.FindByGroup(part.Group())
}

// FindByEdge returns the region whose group holds the edge.
func (x *Index) FindByEdge(e *graph.Edge) (*Polygon, bool) {
	for _, name := range x.order {
		for _, p := range x.buckets[name] {
			for _, part := range p.Group.Partitions() {
				if part.HasEdge(e.ID) {
					return p, true
				}
			}
		}
	}
	return nil, false
}

// Regions returns the regions of one type.
func (x *Index) Regions(name string) []*Polygon {
	return append([]*Polygon(nil), x.buckets[name]...)
}

// All returns every region, by type order then insertion order.
func (x *Index) All() []*Polygon {
	var out []*Polygon
	for _, name := range x.order {
		out = append(out, x.buckets[name]...)
	}
	return out
}

// Len counts the regions of all types.
func (x *Index) Len() int {
	n := 0
	for _, b := range x.buckets {
		n += len(b)
	}
	return n
}

func markAnnotated(g *graph.Group, v bool) {
	for _, p := range g.AnnotationGraphs() {
		p.MarkAnnotated(v)
	}
}
