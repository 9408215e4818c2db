package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/lvoegtlin/open-gms-sub000/internal/command"
	"github.com/lvoegtlin/open-gms-sub000/internal/forest"
	"github.com/lvoegtlin/open-gms-sub000/internal/geom"
	"github.com/lvoegtlin/open-gms-sub000/internal/graph"
	"github.com/lvoegtlin/open-gms-sub000/internal/store"
)

// Snapshot captures the page graph as a forest: page vertices, their edges
// with the current deletion flags, and the components those flags imply.
// Scribble vertices and edges are left out.
func (s *Session) Snapshot(ctx context.Context) (*forest.Forest, error) {
	var f *forest.Forest
	err := s.Do(ctx, func(env *command.Env) {
		f = &forest.Forest{}
		index := make(map[graph.VertexID]int)
		for _, v := range env.Model.Vertices() {
			if v.UserAdded {
				continue
			}
			index[v.ID] = len(f.Points)
			f.Points = append(f.Points, v.Point)
		}
		for _, e := range env.Model.Edges() {
			a, okA := index[e.From]
			b, okB := index[e.To]
			if !okA || !okB {
				continue
			}
			f.Edges = append(f.Edges, forest.Edge{
				WeightedEdge: forest.WeightedEdge{A: a, B: b, Weight: e.Weight},
				Deleted:      e.Deleted,
			})
		}
		f.Recompute()
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Regions lists every labelled region, ordered by type registration and
// then by group.
func (s *Session) Regions(ctx context.Context) ([]store.Region, error) {
	var out []store.Region
	err := s.Do(ctx, func(env *command.Env) {
		for _, t := range env.Index.Types() {
			polys := env.Index.Regions(t.Name)
			sort.Slice(polys, func(i, j int) bool { return polys[i].Group.ID() < polys[j].Group.ID() })
			for _, p := range polys {
				r := store.Region{ID: p.ID, Type: t.Name, Color: t.Hex(), Group: int64(p.Group.ID())}
				if h, ok := p.Hull(); ok {
					for _, pt := range h.Vertices() {
						r.Hull = append(r.Hull, [2]float32{pt.X, pt.Y})
					}
				}
				out = append(out, r)
			}
		}
	})
	return out, err
}

// Stats summarizes the session state.
type Stats struct {
	Vertices     int `json:"vertices"`
	Edges        int `json:"edges"`
	DeletedEdges int `json:"deleted_edges"`
	Partitions   int `json:"partitions"`
	Groups       int `json:"groups"`
	Regions      int `json:"regions"`
	Undoable     int `json:"undoable"`
	IndexDepth   int `json:"index_depth"`
}

func (s *Session) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.Do(ctx, func(env *command.Env) {
		for _, e := range env.Model.Edges() {
			if e.Deleted {
				st.DeletedEdges++
			}
		}
		st.Vertices = len(env.Model.Vertices())
		st.Edges = len(env.Model.Edges())
		st.Partitions = len(env.Model.Partitions())
		st.Groups = len(env.Model.Groups())
		st.Regions = env.Index.Len()
		st.Undoable = s.history.Len()
		if env.Tree != nil {
			st.IndexDepth = env.Tree.Depth()
		}
	})
	return st, err
}

// ReadGestures decodes a JSON array of gestures, as recorded from the input
// source.
func ReadGestures(r io.Reader) ([]Gesture, error) {
	var raw []struct {
		Points [][2]float32 `json:"points"`
		Type   string       `json:"type"`
		Delete bool         `json:"delete"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: gestures: %w", store.ErrFormat, err)
	}
	out := make([]Gesture, len(raw))
	for i, g := range raw {
		pts := make([]geom.Point, len(g.Points))
		for j, xy := range g.Points {
			pts[j] = geom.Pt(xy[0], xy[1])
		}
		out[i] = Gesture{Points: pts, Type: g.Type, Delete: g.Delete}
	}
	return out, nil
}
