// Package quadtree is a region quadtree over item bounding boxes, used for
// scribble hit-testing against graph edges.
//
// The tree only grows. Logical deletion of an item is the caller's concern
// (edges carry a deleted flag), and Retrieve answers "what might be near"
// rather than "what is near": callers run the exact test and drop deleted
// items themselves.
package quadtree

import (
	"github.com/golang/geo/r2"
)

const (
	DefaultMaxObjects = 10
	DefaultMaxLevels  = 1000
)

// Bounded is anything with an axis-aligned bounding box.
type Bounded interface {
	Bound() r2.Rect
}

// Option configures a Tree.
type Option func(*options)

type options struct {
	maxObjects int
	maxLevels  int
}

// WithMaxObjects sets how many items a node holds before it splits.
func WithMaxObjects(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxObjects = n
		}
	}
}

// WithMaxLevels caps the depth of the tree.
func WithMaxLevels(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxLevels = n
		}
	}
}

// Tree is not safe for concurrent mutation. It is written from the session
// coordinator only.
type Tree[T Bounded] struct {
	root *node[T]
	opts options
	size int
}

type node[T Bounded] struct {
	level    int
	bounds   r2.Rect
	items    []T
	children *[4]*node[T]
}

// New returns an empty tree covering bounds. Items outside bounds are kept
// at the root.
func New[T Bounded](bounds r2.Rect, opts ...Option) *Tree[T] {
	o := options{maxObjects: DefaultMaxObjects, maxLevels: DefaultMaxLevels}
	for _, opt := range opts {
		opt(&o)
	}
	return &Tree[T]{root: &node[T]{bounds: bounds}, opts: o}
}

// Len returns the number of inserted items.
func (t *Tree[T]) Len() int { return t.size }

// Bounds returns the root rectangle.
func (t *Tree[T]) Bounds() r2.Rect { return t.root.bounds }

// Depth returns the deepest level that currently holds a node.
func (t *Tree[T]) Depth() int { return t.root.depth() }

// Insert adds item to the tree.
func (t *Tree[T]) Insert(item T) {
	t.root.insert(item, t.opts)
	t.size++
}

// Retrieve returns every item stored on a node whose rectangle the query
// could reach. The result is a superset of the items whose bounds intersect
// query.
func (t *Tree[T]) Retrieve(query r2.Rect) []T {
	var out []T
	t.root.retrieve(query, &out)
	return out
}

func (n *node[T]) insert(item T, o options) {
	if n.children != nil {
		if c := n.childFor(item.Bound()); c != nil {
			c.insert(item, o)
			return
		}
		n.items = append(n.items, item)
		return
	}

	n.items = append(n.items, item)
	if len(n.items) <= o.maxObjects || n.level >= o.maxLevels {
		return
	}

	n.split()
	kept := n.items[:0]
	for _, it := range n.items {
		if c := n.childFor(it.Bound()); c != nil {
			c.insert(it, o)
			continue
		}
		kept = append(kept, it)
	}
	var zero T
	for i := len(kept); i < len(n.items); i++ {
		n.items[i] = zero
	}
	n.items = kept
}

func (n *node[T]) split() {
	lo, hi, c := n.bounds.Lo(), n.bounds.Hi(), n.bounds.Center()
	quads := [4]r2.Rect{
		r2.RectFromPoints(r2.Point{X: c.X, Y: c.Y}, r2.Point{X: hi.X, Y: hi.Y}),
		r2.RectFromPoints(r2.Point{X: lo.X, Y: c.Y}, r2.Point{X: c.X, Y: hi.Y}),
		r2.RectFromPoints(r2.Point{X: lo.X, Y: lo.Y}, r2.Point{X: c.X, Y: c.Y}),
		r2.RectFromPoints(r2.Point{X: c.X, Y: lo.Y}, r2.Point{X: hi.X, Y: c.Y}),
	}
	var children [4]*node[T]
	for i, q := range quads {
		children[i] = &node[T]{level: n.level + 1, bounds: q}
	}
	n.children = &children
}

// childFor returns the child that fully contains b, if any.
func (n *node[T]) childFor(b r2.Rect) *node[T] {
	for _, c := range n.children {
		if c.bounds.Contains(b) {
			return c
		}
	}
	return nil
}

func (n *node[T]) retrieve(query r2.Rect, out *[]T) {
	*out = append(*out, n.items...)
	if n.children == nil {
		return
	}
	// A query inside one quadrant visits only that child. A straddling query
	// visits every child it touches, since items pushed down into any of them
	// may overlap it.
	for _, c := range n.children {
		if c.bounds.Intersects(query) {
			c.retrieve(query, out)
		}
	}
}

func (n *node[T]) depth() int {
	d := n.level
	if n.children == nil {
		return d
	}
	for _, c := range n.children {
		if cd := c.depth(); cd > d {
			d = cd
		}
	}
	return d
}
