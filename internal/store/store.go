// Package store reads and writes the on-disk layouts: point lists from the
// feature extractor, pruned forests, and exported regions.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/lvoegtlin/open-gms-sub000/internal/forest"
	"github.com/lvoegtlin/open-gms-sub000/internal/geom"
)

var ErrFormat = errors.New("malformed file")

// ReadPoints decodes a JSON array of points. A point is [x, y],
// [x, y, component] or {"x": x, "y": y, "component": c}; a missing
// component is 0.
func ReadPoints(r io.Reader) ([]geom.Point, error) {
	var raw []pointRecord
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: points: %w", ErrFormat, err)
	}
	pts := make([]geom.Point, len(raw))
	for i, p := range raw {
		pts[i] = geom.Point(p)
	}
	return pts, nil
}

// pointRecord is a point on disk. It is written as [x, y, component].
type pointRecord geom.Point

func (p pointRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{p.X, p.Y, p.Component})
}

func (p *pointRecord) UnmarshalJSON(b []byte) error {
	var xs []float64
	if err := json.Unmarshal(b, &xs); err == nil {
		if len(xs) != 2 && len(xs) != 3 {
			return fmt.Errorf("point has %d values, want 2 or 3", len(xs))
		}
		*p = pointRecord{X: float32(xs[0]), Y: float32(xs[1])}
		if len(xs) == 3 {
			c, err := component(xs[2])
			if err != nil {
				return err
			}
			p.Component = c
		}
		return nil
	}

	var obj struct {
		X         *float32 `json:"x"`
		Y         *float32 `json:"y"`
		Component int32    `json:"component"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	if obj.X == nil || obj.Y == nil {
		return errors.New("point needs both x and y")
	}
	*p = pointRecord{X: *obj.X, Y: *obj.Y, Component: obj.Component}
	return nil
}

func component(v float64) (int32, error) {
	if v != math.Trunc(v) || v < math.MinInt32 || v > math.MaxInt32 {
		return 0, fmt.Errorf("component %g is not an int32", v)
	}
	return int32(v), nil
}

type forestFile struct {
	Points []pointRecord `json:"points"`
	Edges  []edgeRecord  `json:"edges"`
}

type edgeRecord struct {
	A       int     `json:"a"`
	B       int     `json:"b"`
	Weight  float64 `json:"weight"`
	Deleted bool    `json:"deleted,omitempty"`
}

// SaveForest writes f as points plus an edge list. Point component ids are
// kept. Forest components are not stored; LoadForest recomputes them.
func SaveForest(w io.Writer, f *forest.Forest) error {
	out := forestFile{
		Points: make([]pointRecord, len(f.Points)),
		Edges:  make([]edgeRecord, len(f.Edges)),
	}
	for i, p := range f.Points {
		out.Points[i] = pointRecord(p)
	}
	for i, e := range f.Edges {
		out.Edges[i] = edgeRecord{A: e.A, B: e.B, Weight: e.Weight, Deleted: e.Deleted}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode forest: %w", err)
	}
	return nil
}

// LoadForest is the inverse of SaveForest.
func LoadForest(r io.Reader) (*forest.Forest, error) {
	var in forestFile
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, fmt.Errorf("%w: forest: %w", ErrFormat, err)
	}
	f := &forest.Forest{Points: make([]geom.Point, len(in.Points))}
	for i, p := range in.Points {
		f.Points[i] = geom.Point(p)
	}
	for i, e := range in.Edges {
		if e.A < 0 || e.A >= len(f.Points) || e.B < 0 || e.B >= len(f.Points) || e.A == e.B {
			return nil, fmt.Errorf("%w: edge %d joins %d and %d", ErrFormat, i, e.A, e.B)
		}
		f.Edges = append(f.Edges, forest.Edge{
			WeightedEdge: forest.WeightedEdge{A: e.A, B: e.B, Weight: e.Weight},
			Deleted:      e.Deleted,
		})
	}
	f.Recompute()
	return f, nil
}

// Region is one labelled region as exported for downstream consumers. Hull
// holds the ordered outline points.
type Region struct {
	ID    string       `json:"id"`
	Type  string       `json:"type"`
	Color string       `json:"color"`
	Group int64        `json:"group"`
	Hull  [][2]float32 `json:"hull"`
}

// ExportRegions writes regions as a JSON array.
func ExportRegions(w io.Writer, regions []Region) error {
	if regions == nil {
		regions = []Region{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(regions); err != nil {
		return fmt.Errorf("encode regions: %w", err)
	}
	return nil
}

// ReadFile opens path and hands it to read.
func ReadFile[T any](path string, read func(io.Reader) (T, error)) (T, error) {
	var zero T
	fh, err := os.Open(path)
	if err != nil {
		return zero, err
	}
	defer fh.Close()
	v, err := read(fh)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

// WriteFile creates path and hands it to write.
func WriteFile(path string, write func(io.Writer) error) error {
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(fh); err != nil {
		fh.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return fh.Close()
}
