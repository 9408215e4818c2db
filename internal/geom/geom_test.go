package geom

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func grid(n int, step float32) []Point {
	var pts []Point
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			pts = append(pts, Point{X: float32(i) * step, Y: float32(j) * step, Component: 7})
		}
	}
	return pts
}

func square10() Hull {
	return PolygonHull([]Point{Pt(0, 0), Pt(10, 0), Pt(10, 10), Pt(0, 10)})
}

func TestConcaveHull_Degenerate(t *testing.T) {
	h, err := ConcaveHull([]Point{Pt(1, 1), Pt(1, 1)}, DefaultTightness)
	require.NoError(t, err)
	assert.Equal(t, KindPoint, h.Kind)

	h, err = ConcaveHull([]Point{Pt(0, 0), Pt(5, 5), Pt(9, 1)}, DefaultTightness)
	require.NoError(t, err)
	assert.Equal(t, KindLine, h.Kind)
	assert.Len(t, h.Rings[0], 3)

	h, err = ConcaveHull([]Point{Pt(0, 0), Pt(1, 1), Pt(3, 3), Pt(2, 2)}, DefaultTightness)
	require.NoError(t, err)
	assert.Equal(t, KindLine, h.Kind)
	assert.True(t, cmp.Equal([]Point{Pt(0, 0), Pt(3, 3)}, h.Rings[0]))
}

func TestConcaveHull_EmptyInput(t *testing.T) {
	_, err := ConcaveHull(nil, DefaultTightness)
	require.Error(t, err)

	var gerr *GeometryError
	require.True(t, errors.As(err, &gerr))
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestConcaveHull_GridIsCovered(t *testing.T) {
	pts := grid(5, 10)
	h, err := ConcaveHull(pts, DefaultTightness)
	require.NoError(t, err)
	require.Equal(t, KindPolygon, h.Kind)

	for _, p := range pts {
		assert.True(t, Contains(h, p), "point %v outside hull", p)
	}
	// Buffered by one unit on each side of a 40x40 square.
	assert.InDelta(t, 42*42, h.Area(), 4)
}

func TestConcaveHull_SmallTightnessStillTraces(t *testing.T) {
	h, err := ConcaveHull(grid(4, 5), 3)
	require.NoError(t, err)
	assert.Equal(t, KindPolygon, h.Kind)
}

func TestUnionOfHulls(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		_, err := UnionOfHulls(nil)
		assert.ErrorIs(t, err, ErrEmptyInput)
	})

	t.Run("single hull is returned unchanged", func(t *testing.T) {
		h := square10()
		got, err := UnionOfHulls([]Hull{h})
		require.NoError(t, err)
		assert.True(t, h.Equal(got))
	})

	t.Run("overlapping squares", func(t *testing.T) {
		b := PolygonHull([]Point{Pt(5, 0), Pt(15, 0), Pt(15, 10), Pt(5, 10)})
		got, err := UnionOfHulls([]Hull{square10(), b})
		require.NoError(t, err)
		assert.Equal(t, KindPolygon, got.Kind)
		assert.InDelta(t, 150, got.Area(), 0.01)
	})

	t.Run("disjoint squares keep both rings", func(t *testing.T) {
		b := PolygonHull([]Point{Pt(20, 0), Pt(30, 0), Pt(30, 10), Pt(20, 10)})
		got, err := UnionOfHulls([]Hull{square10(), b})
		require.NoError(t, err)
		assert.Len(t, got.Rings, 2)
		assert.True(t, Contains(got, Pt(25, 5)))
		assert.False(t, Contains(got, Pt(15, 5)))
	})

	t.Run("degenerate hulls are inflated", func(t *testing.T) {
		got, err := UnionOfHulls([]Hull{PointHull(Pt(50, 50)), LineHull(Pt(0, 0), Pt(10, 0))})
		require.NoError(t, err)
		assert.True(t, Contains(got, Pt(50, 50)))
		assert.True(t, Contains(got, Pt(5, 0)))
	})
}

func TestIntersects(t *testing.T) {
	sq := square10()
	tests := []struct {
		name  string
		hull  Hull
		query []Point
		want  bool
	}{
		{"crossing stroke", sq, []Point{Pt(-5, 5), Pt(5, 5)}, true},
		{"stroke inside", sq, []Point{Pt(2, 2), Pt(3, 3)}, true},
		{"stroke outside", sq, []Point{Pt(20, 20), Pt(30, 30)}, false},
		{"lasso around hull", sq, []Point{Pt(-5, -5), Pt(15, -5), Pt(15, 15), Pt(-5, 15), Pt(-5, -5)}, true},
		{"open hook around hull", sq, []Point{Pt(-5, -5), Pt(15, -5), Pt(15, 15), Pt(-5, 15)}, false},
		{"single point inside", sq, []Point{Pt(5, 5)}, true},
		{"point hull on stroke", PointHull(Pt(5, 5)), []Point{Pt(0, 5), Pt(10, 5)}, true},
		{"point hull off stroke", PointHull(Pt(5, 6)), []Point{Pt(0, 5), Pt(10, 5)}, false},
		{"line hull crossing", LineHull(Pt(0, 0), Pt(10, 10)), []Point{Pt(0, 10), Pt(10, 0)}, true},
		{"empty hull", Hull{}, []Point{Pt(0, 0)}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Intersects(tc.hull, tc.query))
		})
	}
}

func TestSimplifyPolyline(t *testing.T) {
	in := []Point{
		{X: 0, Y: 0, Component: 3},
		{X: 5, Y: 0.2, Component: 3},
		{X: 10, Y: -0.1, Component: 3},
		{X: 15, Y: 0, Component: 4},
	}
	got := SimplifyPolyline(in, 1.0)
	want := []Point{{X: 0, Y: 0, Component: 3}, {X: 15, Y: 0, Component: 4}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SimplifyPolyline() mismatch (-want +got):\n%s", diff)
	}

	short := []Point{Pt(0, 0), Pt(1, 1)}
	assert.Equal(t, short, SimplifyPolyline(short, 1.0))
}

func TestHullCloneIsIndependent(t *testing.T) {
	h := square10()
	c := h.Clone()
	c.Rings[0][0] = Pt(-1, -1)
	assert.True(t, h.Rings[0][0].Equal(Pt(0, 0)))
}

func TestAngle(t *testing.T) {
	assert.InDelta(t, 0, Angle(Pt(0, 0), Pt(5, 0)), 1e-9)
	assert.InDelta(t, Angle(Pt(0, 0), Pt(1, 1)), Angle(Pt(1, 1), Pt(0, 0)), 1e-9)
}
