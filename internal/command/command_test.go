package command

import (
	"context"
	"errors"
	"image/color"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/geo/r2"
	"github.com/lvoegtlin/open-gms-sub000/internal/annotation"
	"github.com/lvoegtlin/open-gms-sub000/internal/ctxlog"
	"github.com/lvoegtlin/open-gms-sub000/internal/geom"
	"github.com/lvoegtlin/open-gms-sub000/internal/graph"
	"github.com/lvoegtlin/open-gms-sub000/internal/notify"
	"github.com/lvoegtlin/open-gms-sub000/internal/pipeline"
	"github.com/lvoegtlin/open-gms-sub000/internal/quadtree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	text  = annotation.Type{Name: "text", Color: color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}}
	image = annotation.Type{Name: "image", Color: color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}}
)

type fixture struct {
	env    *Env
	events *notify.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(ctxlog.Discard(context.Background()))
	loop := pipeline.NewLoop()
	pool := pipeline.NewPool(2)
	pool.Start(ctx)
	go loop.Run(ctx)
	t.Cleanup(func() {
		cancel()
		pool.Close()
		<-loop.Done()
	})

	events := &notify.Recorder{}
	env := NewEnv(ctx, DefaultSettings(), annotation.NewIndex(text, image), loop, pool, events)
	env.Tree = quadtree.New[*graph.Edge](r2.RectFromPoints(r2.Point{X: -500, Y: -500}, r2.Point{X: 500, Y: 500}))
	return &fixture{env: env, events: events}
}

// on runs fn on the coordinator and waits for it.
func (f *fixture) on(t *testing.T, fn func()) {
	t.Helper()
	done := make(chan struct{})
	require.True(t, f.env.Loop.Post(func() {
		defer close(done)
		fn()
	}))
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("coordinator did not run the task")
	}
}

// do runs fn on the coordinator and returns its error.
func (f *fixture) do(t *testing.T, fn func() error) error {
	t.Helper()
	var err error
	f.on(t, func() { err = fn() })
	return err
}

// run executes c on the coordinator and waits until it and every hull job
// it started have settled.
func (f *fixture) run(t *testing.T, c Command) error {
	t.Helper()
	var fut *pipeline.Future[struct{}]
	f.on(t, func() { fut = c.Execute() })
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := fut.Wait(ctx)
	f.quiesce(t)
	return err
}

func (f *fixture) quiesce(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool {
		busy := true
		f.on(t, func() { busy = f.env.JobsInFlight() > 0 })
		return !busy
	}, 5*time.Second, 5*time.Millisecond)
}

func (f *fixture) check(t *testing.T) {
	t.Helper()
	require.NoError(t, f.do(t, func() error { return f.env.Model.CheckInvariants() }))
}

// chain adds a horizontal path of n vertices spaced 10 apart starting at
// (x, 0), in its own group, with hulls already computed.
func (f *fixture) chain(t *testing.T, x float32, n int) (*graph.Partition, []*graph.Edge) {
	t.Helper()
	m := f.env.Model
	var vids []graph.VertexID
	for i := 0; i < n; i++ {
		vids = append(vids, m.AddVertex(geom.Pt(x+float32(i*10), 0), false).ID)
	}
	var edges []*graph.Edge
	var eids []graph.EdgeID
	for i := 0; i+1 < n; i++ {
		e, err := m.AddEdge(vids[i], vids[i+1], 10)
		require.NoError(t, err)
		edges = append(edges, e)
		eids = append(eids, e.ID)
	}
	d, err := m.NewPartition(false, vids, eids)
	require.NoError(t, err)
	g := m.NewGroup()
	require.NoError(t, m.Attach(g, d))
	p := d.Partition()
	h, err := geom.ConcaveHull(p.Points(), DefaultSettings().Tightness)
	require.NoError(t, err)
	p.SetHull(h)
	g.SetHull(h)
	f.env.InsertEdges(p)
	return p, edges
}

func vertical(x float32) []geom.Point {
	return []geom.Point{geom.Pt(x, -10), geom.Pt(x, 10)}
}

func TestDeleteEdgeSplitAndUndoRestoresSnapshot(t *testing.T) {
	f := newFixture(t)
	x, edges := f.chain(t, 0, 5)
	g := x.Group()
	before, ok := g.Hull()
	require.True(t, ok)
	before = before.Clone()

	c := NewDeleteEdge(f.env, edges[3].ID)
	require.NoError(t, f.run(t, c))
	f.check(t)

	require.True(t, c.Split())
	carved := c.Carved()
	assert.Equal(t, 1, carved.VertexCount(), "smallest component is carved")
	assert.Equal(t, 4, x.VertexCount())
	assert.NotSame(t, g, carved.Group())
	assert.True(t, edges[3].Deleted)
	_, ok = carved.Group().Hull()
	assert.True(t, ok, "carved group gets a hull")
	assert.Equal(t, 2, f.events.Count(notify.GroupChanged))

	require.NoError(t, f.do(t, func() error { return c.Undo() }))
	f.check(t)

	assert.Equal(t, 5, x.VertexCount())
	assert.Equal(t, 4, x.EdgeCount())
	assert.False(t, edges[3].Deleted)
	assert.Same(t, g, x.Group())
	after, ok := g.Hull()
	require.True(t, ok)
	assert.True(t, before.Equal(after), "undo restores the hull snapshot verbatim")
	f.on(t, func() { assert.Len(t, f.env.Model.Groups(), 1) })
}

func TestDeleteEdgeOnCycleDoesNotSplit(t *testing.T) {
	f := newFixture(t)
	m := f.env.Model
	a := m.AddVertex(geom.Pt(0, 0), false)
	b := m.AddVertex(geom.Pt(10, 0), false)
	cv := m.AddVertex(geom.Pt(5, 8), false)
	var eids []graph.EdgeID
	for _, pair := range [][2]graph.VertexID{{a.ID, b.ID}, {b.ID, cv.ID}, {cv.ID, a.ID}} {
		e, err := m.AddEdge(pair[0], pair[1], 10)
		require.NoError(t, err)
		eids = append(eids, e.ID)
	}
	d, err := m.NewPartition(false, []graph.VertexID{a.ID, b.ID, cv.ID}, eids)
	require.NoError(t, err)
	require.NoError(t, m.Attach(m.NewGroup(), d))

	c := NewDeleteEdge(f.env, eids[0])
	require.NoError(t, f.run(t, c))
	assert.False(t, c.Split())
	assert.Equal(t, 2, d.Partition().EdgeCount())
	f.check(t)

	require.NoError(t, f.do(t, func() error { return c.Undo() }))
	assert.Equal(t, 3, d.Partition().EdgeCount())
	f.check(t)
}

var errInjected = errors.New("injected job failure")

func TestDeleteEdgeHullFailureRollsBackSplit(t *testing.T) {
	f := newFixture(t)
	x, edges := f.chain(t, 0, 5)
	require.NoError(t, f.run(t, NewAnnotate(f.env, vertical(10), text)))
	g := x.Group()
	before, ok := g.Hull()
	require.True(t, ok)
	before = before.Clone()
	require.Equal(t, 1, f.env.Index.Len())

	f.env.RunHull = func(context.Context, pipeline.HullInput) (pipeline.HullResult, error) {
		return pipeline.HullResult{}, errInjected
	}
	c := NewDeleteEdge(f.env, edges[3].ID)
	err := f.run(t, c)
	require.ErrorIs(t, err, errInjected)
	f.check(t)

	assert.False(t, c.Split())
	assert.False(t, edges[3].Deleted)
	owner, ok := f.env.Model.EdgeOwner(edges[3].ID)
	require.True(t, ok)
	assert.Same(t, x, owner)
	assert.Equal(t, 5, x.VertexCount())
	assert.Equal(t, 4, x.EdgeCount())
	assert.Same(t, g, x.Group())
	f.on(t, func() { assert.Len(t, f.env.Model.Groups(), 1) })

	assert.Equal(t, 1, f.env.Index.Len(), "no region left for the carved side")
	r, ok := f.env.Index.FindByGroup(g)
	require.True(t, ok)
	assert.Equal(t, []*graph.Partition{x}, r.Sources)
	after, ok := g.Hull()
	require.True(t, ok)
	assert.True(t, before.Equal(after))
}

func TestDeleteEdgeSplitFailureRestoresEdge(t *testing.T) {
	f := newFixture(t)
	x, edges := f.chain(t, 0, 4)
	g := x.Group()

	f.env.RunSplit = func(context.Context, pipeline.SplitInput) (pipeline.SplitResult, error) {
		return pipeline.SplitResult{}, errInjected
	}
	c := NewDeleteEdge(f.env, edges[1].ID)
	err := f.run(t, c)
	require.ErrorIs(t, err, errInjected)
	var jf *pipeline.JobFailure
	assert.ErrorAs(t, err, &jf)
	f.check(t)

	assert.False(t, edges[1].Deleted)
	owner, ok := f.env.Model.EdgeOwner(edges[1].ID)
	require.True(t, ok)
	assert.Same(t, x, owner)
	assert.Equal(t, 3, x.EdgeCount())
	_, ok = g.Hull()
	assert.True(t, ok)
	assert.Zero(t, f.env.Index.Len())
	assert.Error(t, f.do(t, func() error { return c.Undo() }), "nothing to undo after a rollback")
}

func TestDeleteEdgeCancelsRunningHullJobFirst(t *testing.T) {
	f := newFixture(t)
	m := f.env.Model
	a := m.AddVertex(geom.Pt(0, 0), false)
	b := m.AddVertex(geom.Pt(10, 0), false)
	cv := m.AddVertex(geom.Pt(5, 8), false)
	var eids []graph.EdgeID
	for _, pair := range [][2]graph.VertexID{{a.ID, b.ID}, {b.ID, cv.ID}, {cv.ID, a.ID}} {
		e, err := m.AddEdge(pair[0], pair[1], 10)
		require.NoError(t, err)
		eids = append(eids, e.ID)
	}
	d, err := m.NewPartition(false, []graph.VertexID{a.ID, b.ID, cv.ID}, eids)
	require.NoError(t, err)
	g := m.NewGroup()
	require.NoError(t, m.Attach(g, d))

	// The first hull job hangs until it is cancelled, as a load-time job
	// still running when the user acts.
	var calls atomic.Int32
	f.env.RunHull = func(ctx context.Context, in pipeline.HullInput) (pipeline.HullResult, error) {
		if calls.Add(1) == 1 {
			<-ctx.Done()
			return pipeline.HullResult{}, ctx.Err()
		}
		return pipeline.RunHull(ctx, in)
	}
	var pending *HullJob
	f.on(t, func() { pending = f.env.Rehull(g) })
	require.Eventually(t, func() bool { return calls.Load() == 1 }, 5*time.Second, time.Millisecond)

	var atSplit pipeline.Status
	f.env.RunSplit = func(ctx context.Context, in pipeline.SplitInput) (pipeline.SplitResult, error) {
		atSplit = pending.Future.Status()
		return pipeline.RunSplit(ctx, in)
	}
	c := NewDeleteEdge(f.env, eids[0])
	require.NoError(t, f.run(t, c))
	f.check(t)

	assert.Equal(t, pipeline.Cancelled, atSplit)
	assert.True(t, pending.Superseded())
	assert.False(t, c.Split())
	_, ok := g.Hull()
	assert.True(t, ok, "the cancelled hull job is restarted")
	_, ok = d.Partition().Hull()
	assert.True(t, ok)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCutSharesOneUndo(t *testing.T) {
	f := newFixture(t)
	x, xe := f.chain(t, 0, 5)
	y, ye := f.chain(t, 100, 3)
	h := NewHistory(0)

	c := NewCut(f.env, []graph.EdgeID{xe[0].ID, xe[3].ID, ye[1].ID})
	require.NoError(t, f.run(t, c))
	h.Push(c)
	f.check(t)
	assert.Len(t, c.Deleted(), 3)
	assert.True(t, xe[0].Deleted)
	assert.True(t, ye[1].Deleted)
	assert.Equal(t, 3, x.VertexCount())
	assert.Equal(t, 2, y.VertexCount())
	f.on(t, func() { assert.Len(t, f.env.Model.Groups(), 5) })
	assert.Equal(t, 1, h.Len())

	require.NoError(t, f.do(t, func() error {
		_, err := h.Undo()
		return err
	}))
	f.check(t)
	assert.Equal(t, 5, x.VertexCount())
	assert.Equal(t, 3, y.VertexCount())
	for _, e := range append(xe, ye...) {
		assert.False(t, e.Deleted)
	}
	f.on(t, func() { assert.Len(t, f.env.Model.Groups(), 2) })
	assert.ErrorIs(t, f.do(t, c.Redo), ErrRedoUnsupported)
}

func TestCutSkipsGoneEdges(t *testing.T) {
	f := newFixture(t)
	_, edges := f.chain(t, 0, 3)

	require.NoError(t, f.run(t, NewDeleteEdge(f.env, edges[0].ID)))
	c := NewCut(f.env, []graph.EdgeID{edges[0].ID, edges[1].ID, 999})
	require.NoError(t, f.run(t, c))
	require.Len(t, c.Deleted(), 1)
	assert.Equal(t, edges[1].ID, c.Deleted()[0].Edge())

	err := f.run(t, NewCut(f.env, []graph.EdgeID{edges[0].ID, edges[1].ID}))
	assert.ErrorIs(t, err, ErrPrecondition)
}

func TestCutFailingEveryDeletionRejects(t *testing.T) {
	f := newFixture(t)
	_, edges := f.chain(t, 0, 3)
	f.env.RunSplit = func(context.Context, pipeline.SplitInput) (pipeline.SplitResult, error) {
		return pipeline.SplitResult{}, errInjected
	}
	c := NewCut(f.env, []graph.EdgeID{edges[0].ID, edges[1].ID})
	err := f.run(t, c)
	assert.ErrorIs(t, err, errInjected)
	assert.Empty(t, c.Deleted())
	assert.False(t, edges[0].Deleted)
	assert.False(t, edges[1].Deleted)
	f.check(t)
}

func TestDeleteEdgePreconditions(t *testing.T) {
	f := newFixture(t)
	_, edges := f.chain(t, 0, 3)

	require.NoError(t, f.run(t, NewDeleteEdge(f.env, edges[0].ID)))
	err := f.run(t, NewDeleteEdge(f.env, edges[0].ID))
	assert.ErrorIs(t, err, ErrPrecondition)
	err = f.run(t, NewDeleteEdge(f.env, 999))
	assert.ErrorIs(t, err, ErrPrecondition)
}

func TestDeleteEdgeRedoUnsupported(t *testing.T) {
	f := newFixture(t)
	_, edges := f.chain(t, 0, 3)
	h := NewHistory(0)

	c := NewDeleteEdge(f.env, edges[1].ID)
	require.NoError(t, f.run(t, c))
	h.Push(c)
	require.NoError(t, f.do(t, func() error {
		_, err := h.Undo()
		return err
	}))
	err := f.do(t, func() error {
		_, err := h.Redo()
		return err
	})
	assert.ErrorIs(t, err, ErrRedoUnsupported)
	assert.False(t, h.CanRedo())
	assert.False(t, h.CanUndo())
}

func TestBuildScribbleLeavesNothingOnError(t *testing.T) {
	f := newFixture(t)
	x, _ := f.chain(t, 0, 3)
	nan := float32(math.NaN())

	c := NewAnnotate(f.env, vertical(10), text)
	c.scribble = []geom.Point{geom.Pt(0, 20), geom.Pt(10, 20), geom.Pt(nan, 20)}
	var vertices, edges int
	f.on(t, func() {
		vertices, edges = len(f.env.Model.Vertices()), len(f.env.Model.Edges())
	})

	err := f.do(t, func() error {
		_, _, err := c.buildScribble()
		return err
	})
	assert.ErrorIs(t, err, graph.ErrBadWeight)
	f.check(t)
	f.on(t, func() {
		assert.Len(t, f.env.Model.Vertices(), vertices)
		assert.Len(t, f.env.Model.Edges(), edges)
		assert.Len(t, f.env.Model.Groups(), 1)
	})
	assert.Equal(t, 3, x.VertexCount())
}

func TestAnnotateMergesHitPartitionsIntoOneRegion(t *testing.T) {
	f := newFixture(t)
	x, _ := f.chain(t, 0, 5)
	y, _ := f.chain(t, 100, 5)
	scribble := []geom.Point{geom.Pt(20, -10), geom.Pt(20, 10), geom.Pt(120, 10), geom.Pt(120, -10)}

	c := NewAnnotate(f.env, scribble, text)
	require.NoError(t, f.run(t, c))
	f.check(t)

	rx, ok := f.env.Index.FindByGroup(x.Group())
	require.True(t, ok)
	ry, ok := f.env.Index.FindByGroup(y.Group())
	require.True(t, ok)
	assert.Same(t, rx, ry)
	assert.Equal(t, []*graph.Partition{x, y}, rx.Sources)
	assert.True(t, c.Scribble().Annotated())
	assert.Equal(t, 3, c.Group().Len())
	_, ok = c.Group().Hull()
	assert.True(t, ok)
	assert.Equal(t, 1, f.events.Count(notify.RegionChanged))
	f.on(t, func() { assert.Len(t, f.env.Model.Groups(), 1) })

	require.NoError(t, f.do(t, func() error { return c.Undo() }))
	f.check(t)
	assert.Zero(t, f.env.Index.Len())
	assert.NotSame(t, x.Group(), y.Group())
	assert.False(t, c.Scribble().Annotated())
	f.on(t, func() { assert.Len(t, f.env.Model.Groups(), 2) })

	require.NoError(t, f.do(t, func() error { return c.Redo() }))
	f.check(t)
	r, ok := f.env.Index.FindByGroup(x.Group())
	require.True(t, ok)
	assert.Equal(t, rx.ID, r.ID, "redo reuses the cached region")
	assert.Same(t, x.Group(), y.Group())
}

func TestDeannotateFansOutSingletons(t *testing.T) {
	f := newFixture(t)
	x, _ := f.chain(t, 0, 5)
	y, _ := f.chain(t, 100, 5)
	scribble := []geom.Point{geom.Pt(20, -10), geom.Pt(20, 10), geom.Pt(120, 10), geom.Pt(120, -10)}
	add := NewAnnotate(f.env, scribble, text)
	require.NoError(t, f.run(t, add))

	del := NewDeannotate(f.env, vertical(30))
	require.NoError(t, f.run(t, del))
	f.check(t)

	assert.Empty(t, f.env.Index.Regions("text"))
	assert.Zero(t, f.env.Index.Len())
	require.NotSame(t, x.Group(), y.Group())
	for _, p := range []*graph.Partition{x, y} {
		assert.Equal(t, 1, p.Group().Len())
		assert.False(t, p.Group().Annotated())
		_, ok := p.Group().Hull()
		assert.True(t, ok)
	}
	f.on(t, func() {
		_, live := f.env.Model.Partition(add.Scribble().ID())
		assert.False(t, live, "annotation partition is retired")
	})

	require.NoError(t, f.do(t, func() error { return del.Undo() }))
	f.check(t)
	r, ok := f.env.Index.FindByGroup(x.Group())
	require.True(t, ok)
	assert.Len(t, r.Sources, 2)
	assert.Same(t, add.Group(), x.Group())

	require.NoError(t, f.do(t, func() error { return del.Redo() }))
	f.check(t)
	assert.Zero(t, f.env.Index.Len())
}

func TestDeannotateWithoutRegionIsNoop(t *testing.T) {
	f := newFixture(t)
	f.chain(t, 0, 5)
	err := f.run(t, NewDeannotate(f.env, vertical(20)))
	assert.ErrorIs(t, err, ErrPrecondition)
	f.check(t)
}

func TestAnnotateSkipsGroupsOfAnotherType(t *testing.T) {
	f := newFixture(t)
	x, _ := f.chain(t, 0, 5)
	require.NoError(t, f.run(t, NewAnnotate(f.env, vertical(20), text)))

	err := f.run(t, NewAnnotate(f.env, vertical(30), image))
	assert.ErrorIs(t, err, ErrPrecondition)
	r, ok := f.env.Index.FindByGroup(x.Group())
	require.True(t, ok)
	assert.Equal(t, "text", r.Type.Name)
	f.check(t)
}

func TestSplitLeavesAnnotationOnTouchingSide(t *testing.T) {
	f := newFixture(t)
	x, edges := f.chain(t, 0, 5)
	require.NoError(t, f.run(t, NewAnnotate(f.env, vertical(10), text)))
	g := x.Group()

	c := NewDeleteEdge(f.env, edges[3].ID)
	require.NoError(t, f.run(t, c))
	f.check(t)

	assert.Same(t, g, x.Group())
	_, ok := f.env.Index.FindByPartition(c.Carved())
	assert.False(t, ok, "carved side does not touch the scribble")
	r, ok := f.env.Index.FindByGroup(g)
	require.True(t, ok)
	assert.Equal(t, []*graph.Partition{x}, r.Sources)
}

func TestSplitMovesAnnotationToCarvedSide(t *testing.T) {
	f := newFixture(t)
	x, edges := f.chain(t, 0, 5)
	require.NoError(t, f.run(t, NewAnnotate(f.env, vertical(40), text)))
	g := x.Group()

	c := NewDeleteEdge(f.env, edges[3].ID)
	require.NoError(t, f.run(t, c))
	f.check(t)

	assert.Same(t, g, c.Carved().Group(), "annotated side keeps the group")
	assert.NotSame(t, g, x.Group())
	r, ok := f.env.Index.FindByGroup(g)
	require.True(t, ok)
	assert.Equal(t, []*graph.Partition{c.Carved()}, r.Sources)
	_, ok = f.env.Index.FindByPartition(x)
	assert.False(t, ok)

	require.NoError(t, f.do(t, func() error { return c.Undo() }))
	f.check(t)
	assert.Same(t, g, x.Group())
	r, ok = f.env.Index.FindByGroup(g)
	require.True(t, ok)
	assert.Equal(t, []*graph.Partition{x}, r.Sources)
}

func TestSplitKeepsConnectedRegionWhole(t *testing.T) {
	f := newFixture(t)
	x, edges := f.chain(t, 0, 5)
	lasso := []geom.Point{geom.Pt(0, -10), geom.Pt(0, 10), geom.Pt(40, 10), geom.Pt(40, -10)}
	require.NoError(t, f.run(t, NewAnnotate(f.env, lasso, text)))
	g := x.Group()

	c := NewDeleteEdge(f.env, edges[3].ID)
	require.NoError(t, f.run(t, c))
	f.check(t)

	assert.Same(t, g, c.Carved().Group())
	assert.Equal(t, 1, f.env.Index.Len())
	r, _ := f.env.Index.FindByGroup(g)
	assert.Equal(t, []*graph.Partition{x, c.Carved()}, r.Sources)
	f.on(t, func() { assert.Len(t, f.env.Model.Groups(), 1) })
}

func TestSplitSeparatesDisconnectedRegions(t *testing.T) {
	f := newFixture(t)
	x, edges := f.chain(t, 0, 5)
	first := NewAnnotate(f.env, vertical(0), text)
	require.NoError(t, f.run(t, first))
	second := NewAnnotate(f.env, vertical(40), text)
	require.NoError(t, f.run(t, second))
	g := x.Group()
	require.Same(t, g, first.Scribble().Group())
	require.Equal(t, 1, f.env.Index.Len())

	c := NewDeleteEdge(f.env, edges[1].ID)
	require.NoError(t, f.run(t, c))
	f.check(t)

	carved := c.Carved()
	assert.Equal(t, 2, carved.VertexCount())
	assert.Equal(t, 2, f.env.Index.Len())
	assert.Same(t, carved.Group(), first.Scribble().Group())
	assert.Same(t, g, second.Scribble().Group())
	r2, ok := f.env.Index.FindByGroup(carved.Group())
	require.True(t, ok)
	assert.Equal(t, []*graph.Partition{carved}, r2.Sources)
	assert.Equal(t, "text", r2.Type.Name)

	require.NoError(t, f.do(t, func() error { return c.Undo() }))
	f.check(t)
	assert.Equal(t, 1, f.env.Index.Len())
	assert.Same(t, g, first.Scribble().Group())
}

type countingCommand struct {
	name         string
	undone, redo int
	redoErr      error
}

func (c *countingCommand) Name() string                        { return c.name }
func (c *countingCommand) CanExecute() bool                    { return true }
func (c *countingCommand) Execute() *pipeline.Future[struct{}] { return pipeline.Resolved(c.name, struct{}{}) }
func (c *countingCommand) Undo() error                         { c.undone++; return nil }
func (c *countingCommand) Redo() error                         { c.redo++; return c.redoErr }

func TestHistoryIsBoundedAndLinear(t *testing.T) {
	h := NewHistory(2)
	a, b, c := &countingCommand{name: "a"}, &countingCommand{name: "b"}, &countingCommand{name: "c"}
	h.Push(a)
	h.Push(b)
	h.Push(c)
	assert.Equal(t, 2, h.Len(), "oldest entry evicted")

	got, err := h.Undo()
	require.NoError(t, err)
	assert.Same(t, c, got)
	got, err = h.Undo()
	require.NoError(t, err)
	assert.Same(t, b, got)
	_, err = h.Undo()
	assert.ErrorIs(t, err, ErrNothingToUndo)

	got, err = h.Redo()
	require.NoError(t, err)
	assert.Same(t, b, got)
	assert.True(t, h.CanRedo())

	h.Push(&countingCommand{name: "d"})
	assert.False(t, h.CanRedo(), "push clears redo")
	_, err = h.Redo()
	assert.ErrorIs(t, err, ErrNothingToRedo)
	assert.Equal(t, 1, b.redo)
}
