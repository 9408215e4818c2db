package forest

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/lvoegtlin/open-gms-sub000/internal/ctxlog"
	"github.com/lvoegtlin/open-gms-sub000/internal/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext() context.Context {
	return ctxlog.Discard(context.Background())
}

func TestBuild_ABCScenario(t *testing.T) {
	pts := []geom.Point{geom.Pt(0, 0), geom.Pt(1, 0), geom.Pt(10, 0)}
	tree := []WeightedEdge{{A: 0, B: 1, Weight: 1}, {A: 1, B: 2, Weight: 9}}

	f, err := Build(testContext(), pts, tree, DefaultCutThreshold)
	require.NoError(t, err)

	assert.False(t, f.Edges[0].Deleted, "AB survives")
	assert.True(t, f.Edges[1].Deleted, "BC is cut")
	if diff := cmp.Diff([][]int{{0, 1}, {2}}, f.Components); diff != "" {
		t.Errorf("Components mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, [][]int{{0}, nil}, f.ComponentEdges())
}

func TestBuild_RejectsOutOfRangeEdge(t *testing.T) {
	_, err := Build(testContext(), []geom.Point{geom.Pt(0, 0)}, []WeightedEdge{{A: 0, B: 3}}, 10)
	assert.Error(t, err)
}

func TestPrune_SmallestPrefixOverThreshold(t *testing.T) {
	// 21 vertices: k = ceil(1 + 3.3*log10(20)) = 6 classes over [1, 61].
	var edges []WeightedEdge
	for i := 0; i < 20; i++ {
		edges = append(edges, WeightedEdge{A: i, B: i + 1, Weight: 1})
	}
	edges[0].Weight = 61 // class 0
	edges[1].Weight = 55 // class 0
	edges[2].Weight = 45 // class 1

	tests := []struct {
		name      string
		threshold float64
		wantCut   int
	}{
		// class 0 alone is 10%, which does not exceed 10.
		{"ten percent", 10, 3},
		{"five percent", 5, 2},
		{"fourteen percent", 14, 3},
		// 15% is reached but not exceeded, so the walk runs to the last class.
		{"fifteen percent", 15, 20},
		{"ninety nine percent", 99, 20},
		// No share can exceed 100%, so there is no prefix to cut.
		{"hundred percent", 100, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cut := Prune(21, edges, tc.threshold)
			n := 0
			for _, c := range cut {
				if c {
					n++
				}
			}
			assert.Equal(t, tc.wantCut, n)
			assert.Equal(t, cut, Prune(21, edges, tc.threshold), "pruning is deterministic")
		})
	}
}

func TestPrune_NothingToCut(t *testing.T) {
	equal := []WeightedEdge{{0, 1, 2}, {1, 2, 2}, {2, 3, 2}}
	assert.Equal(t, []bool{false, false, false}, Prune(4, equal, 10))
	assert.Equal(t, []bool{false}, Prune(2, []WeightedEdge{{0, 1, 5}}, 10))
	assert.Empty(t, Prune(5, nil, 10))
}

func TestComponents_OrderedByLowestIndex(t *testing.T) {
	pts := make([]geom.Point, 6)
	f := &Forest{Points: pts, Edges: []Edge{
		{WeightedEdge: WeightedEdge{A: 5, B: 1}},
		{WeightedEdge: WeightedEdge{A: 4, B: 2}},
		{WeightedEdge: WeightedEdge{A: 2, B: 0}},
		{WeightedEdge: WeightedEdge{A: 3, B: 1}, Deleted: true},
	}}
	f.Recompute()
	want := [][]int{{0, 2, 4}, {1, 5}, {3}}
	if diff := cmp.Diff(want, f.Components); diff != "" {
		t.Errorf("Components mismatch (-want +got):\n%s", diff)
	}
}

func TestSpanningTree(t *testing.T) {
	pts := []geom.Point{
		geom.Pt(0, 0), geom.Pt(10, 0), geom.Pt(0, 10), geom.Pt(10, 10), geom.Pt(5, 4),
	}
	tree, err := SpanningTree(pts)
	require.NoError(t, err)
	require.Len(t, tree, len(pts)-1)

	// Every point is reached.
	f := &Forest{Points: pts}
	for _, e := range tree {
		f.Edges = append(f.Edges, Edge{WeightedEdge: e})
	}
	f.Recompute()
	assert.Len(t, f.Components, 1)

	for _, e := range tree {
		assert.Less(t, e.A, e.B)
		assert.InDelta(t, pts[e.A].Dist(pts[e.B]), e.Weight, 1e-9)
	}
}

func TestSpanningTree_Collinear(t *testing.T) {
	pts := []geom.Point{geom.Pt(20, 0), geom.Pt(0, 0), geom.Pt(10, 0)}
	tree, err := SpanningTree(pts)
	require.NoError(t, err)
	want := []WeightedEdge{{A: 0, B: 2, Weight: 10}, {A: 1, B: 2, Weight: 10}}
	if diff := cmp.Diff(want, tree); diff != "" {
		t.Errorf("SpanningTree mismatch (-want +got):\n%s", diff)
	}
}
