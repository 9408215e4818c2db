// Package geom is the geometry kernel: points, cached concave hulls and the
// handful of polygon operations the partition model needs.
//
// Everything here is a pure function over values. Nothing in this package
// holds shared state, so any function may run on a worker goroutine.
//
// # Hull shapes
//
// A Hull is never empty once computed. Point sets too small for a ring fall
// back to a degenerate KindPoint or KindLine hull, which the union and
// intersection code treat as a thin polygon. This keeps a partition with a
// single vertex from poisoning the union of its group.
package geom
