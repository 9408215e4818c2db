package annotation

import (
	"fmt"
	"image/color"

	"github.com/lvoegtlin/open-gms-sub000/internal/geom"
	"github.com/lvoegtlin/open-gms-sub000/internal/graph"
)

// Type is an annotation label.
type Type struct {
	Name  string
	Color color.RGBA
}

// Equal requires both name and color to match.
func (t Type) Equal(o Type) bool {
	return t.Name == o.Name && t.Color == o.Color
}

// Hex renders the color as #rrggbb.
func (t Type) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", t.Color.R, t.Color.G, t.Color.B)
}

// Polygon is one user-visible labelled region.
type Polygon struct {
	ID      string
	Group   *graph.Group
	Sources []*graph.Partition
	Type    Type
}

// Hull returns the region outline, the union hull of its group.
func (p *Polygon) Hull() (geom.Hull, bool) {
	return p.Group.Hull()
}

// HasSource reports whether s is one of the region's sources.
func (p *Polygon) HasSource(s *graph.Partition) bool {
	for _, x := range p.Sources {
		if x == s {
			return true
		}
	}
	return false
}

// Clone copies the polygon so later source edits do not reach the copy.
func (p *Polygon) Clone() *Polygon {
	c := *p
	c.Sources = append([]*graph.Partition(nil), p.Sources...)
	return &c
}
