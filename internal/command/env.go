package command

import (
	"context"
	"fmt"

	"github.com/lvoegtlin/open-gms-sub000/internal/annotation"
	"github.com/lvoegtlin/open-gms-sub000/internal/ctxlog"
	"github.com/lvoegtlin/open-gms-sub000/internal/geom"
	"github.com/lvoegtlin/open-gms-sub000/internal/graph"
	"github.com/lvoegtlin/open-gms-sub000/internal/notify"
	"github.com/lvoegtlin/open-gms-sub000/internal/pipeline"
	"github.com/lvoegtlin/open-gms-sub000/internal/quadtree"
)

// Settings are the read-only knobs commands consult.
type Settings struct {
	Tightness         int
	SimplifyTolerance float64
	UndoDepth         int
}

// DefaultSettings mirrors the defaults of the geometry kernel.
func DefaultSettings() Settings {
	return Settings{
		Tightness:         geom.DefaultTightness,
		SimplifyTolerance: geom.HullTolerance,
		UndoDepth:         DefaultUndoDepth,
	}
}

// Env is the session state shared by every command. It is owned by the
// coordinator goroutine.
type Env struct {
	Settings Settings
	Model    *graph.Model
	Index    *annotation.Index
	Tree     *quadtree.Tree[*graph.Edge]
	Loop     *pipeline.Loop
	Pool     *pipeline.Pool
	Notifier notify.Notifier

	// RunHull and RunSplit are the job bodies handed to the pool.
	RunHull  func(context.Context, pipeline.HullInput) (pipeline.HullResult, error)
	RunSplit func(context.Context, pipeline.SplitInput) (pipeline.SplitResult, error)

	// OnJobsIdle, if set, runs on the coordinator each time the last hull
	// job in flight is collected.
	OnJobsIdle func()

	ctx  context.Context
	jobs map[*graph.Group][]*HullJob
}

// NewEnv wires an empty model. The spatial index is installed on load.
func NewEnv(ctx context.Context, s Settings, idx *annotation.Index, loop *pipeline.Loop, pool *pipeline.Pool, n notify.Notifier) *Env {
	if n == nil {
		n = notify.Discard{}
	}
	return &Env{
		Settings: s,
		Model:    graph.NewModel(),
		Index:    idx,
		Loop:     loop,
		Pool:     pool,
		Notifier: n,
		RunHull:  pipeline.RunHull,
		RunSplit: pipeline.RunSplit,
		ctx:      ctx,
		jobs:     make(map[*graph.Group][]*HullJob),
	}
}

// Context is the session context jobs run under.
func (e *Env) Context() context.Context { return e.ctx }

// HullJob is a running hull recomputation for one group.
type HullJob struct {
	Group      *graph.Group
	Future     *pipeline.Future[pipeline.HullResult]
	superseded bool
}

// Superseded reports whether a later mutation invalidated the job's input.
func (j *HullJob) Superseded() bool { return j.superseded }

// StartHull snapshots g and submits a hull job for it. then, if not nil,
// runs on the coordinator once the job is terminal; the job counts as in
// flight until it returns.
func (e *Env) StartHull(g *graph.Group, then func(j *HullJob, res pipeline.HullResult, err error, s pipeline.Status)) *HullJob {
	in := pipeline.SnapshotHull(g, e.Settings.Tightness)
	name := fmt.Sprintf("hull/group-%d", g.ID())
	j := &HullJob{Group: g}
	run := e.RunHull
	j.Future = pipeline.Go(e.ctx, e.Pool, name, func(ctx context.Context) (pipeline.HullResult, error) {
		return run(ctx, in)
	})
	e.jobs[g] = append(e.jobs[g], j)
	pipeline.Then(e.Loop, j.Future, func(res pipeline.HullResult, err error, s pipeline.Status) {
		defer e.forget(j)
		if then != nil {
			then(j, res, err, s)
		}
	})
	return j
}

func (e *Env) forget(j *HullJob) {
	list := e.jobs[j.Group]
	for i, x := range list {
		if x == j {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(e.jobs, j.Group)
		if len(e.jobs) == 0 && e.OnJobsIdle != nil {
			e.OnJobsIdle()
		}
		return
	}
	e.jobs[j.Group] = list
}

// Supersede cancels every hull job still running for g. Cancellation is
// synchronous, so a result that lands afterwards is never applied.
func (e *Env) Supersede(g *graph.Group) int {
	list := e.jobs[g]
	for _, j := range list {
		j.superseded = true
		j.Future.Cancel()
	}
	delete(e.jobs, g)
	if len(list) > 0 {
		ctxlog.FromContext(e.ctx).Debug("Hull jobs superseded.", "group", g.ID(), "count", len(list))
	}
	return len(list)
}

// JobsInFlight counts hull jobs that have not been collected yet.
func (e *Env) JobsInFlight() int {
	n := 0
	for _, l := range e.jobs {
		n += len(l)
	}
	return n
}

// ApplyHull stores a finished job's hulls on the group and its members.
// Superseded results are dropped.
func (e *Env) ApplyHull(j *HullJob, res pipeline.HullResult) bool {
	if j.superseded {
		return false
	}
	g := j.Group
	for _, p := range g.Partitions() {
		if h, ok := res.Parts[p.ID()]; ok {
			p.SetHull(h)
		}
	}
	g.SetHull(res.Union)
	return true
}

// RefreshHull rebuilds the group hull from the cached member hulls.
func (e *Env) RefreshHull(g *graph.Group) {
	h, err := g.UnionHull()
	if err != nil {
		g.ClearHull()
		return
	}
	g.SetHull(h)
}

// InsertEdges adds the edges of p to the spatial index.
func (e *Env) InsertEdges(p *graph.Partition) {
	if e.Tree == nil {
		return
	}
	for _, edge := range p.Edges() {
		e.Tree.Insert(edge)
	}
}

// HitEdges returns the live edges the scribble touches, by id.
func (e *Env) HitEdges(scribble []geom.Point) []*graph.Edge {
	if e.Tree == nil || len(scribble) == 0 {
		return nil
	}
	seen := make(map[graph.EdgeID]bool)
	var out []*graph.Edge
	for _, edge := range e.Tree.Retrieve(geom.PointsBound(scribble)) {
		if edge.Deleted || seen[edge.ID] {
			continue
		}
		seen[edge.ID] = true
		if edge.Hits(scribble) {
			out = append(out, edge)
		}
	}
	sortEdges(out)
	return out
}

// HitPartitions returns the owners of the hit edges, ordered by first hit.
func (e *Env) HitPartitions(scribble []geom.Point) []*graph.Partition {
	seen := make(map[*graph.Partition]bool)
	var out []*graph.Partition
	for _, edge := range e.HitEdges(scribble) {
		p, ok := e.Model.EdgeOwner(edge.ID)
		if !ok || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func (e *Env) notifyGroup(g *graph.Group) {
	h, _ := g.Hull()
	e.Notifier.Notify(e.ctx, notify.Event{Kind: notify.GroupChanged, Group: g.ID(), Hull: h})
}

func (e *Env) notifyGroupRemoved(g *graph.Group) {
	e.Notifier.Notify(e.ctx, notify.Event{Kind: notify.GroupRemoved, Group: g.ID()})
}

func (e *Env) notifyRegion(p *annotation.Polygon) {
	h, _ := p.Hull()
	e.Notifier.Notify(e.ctx, notify.Event{
		Kind:   notify.RegionChanged,
		Group:  p.Group.ID(),
		Region: p.ID,
		Type:   p.Type.Name,
		Hull:   h,
	})
}

func (e *Env) notifyRegionRemoved(p *annotation.Polygon) {
	e.Notifier.Notify(e.ctx, notify.Event{
		Kind:   notify.RegionRemoved,
		Group:  p.Group.ID(),
		Region: p.ID,
		Type:   p.Type.Name,
	})
}

// Rehull starts a hull job for g whose result is applied and announced when
// it lands. A failed job keeps the stale hull.
func (e *Env) Rehull(g *graph.Group) *HullJob {
	return e.StartHull(g, func(j *HullJob, res pipeline.HullResult, err error, s pipeline.Status) {
		switch s {
		case pipeline.Succeeded:
			if !e.ApplyHull(j, res) {
				return
			}
			e.notifyGroup(g)
			if r, ok := e.Index.FindByGroup(g); ok {
				e.notifyRegion(r)
			}
		case pipeline.Failed:
			ctxlog.FromContext(e.ctx).Warn("Hull job failed, keeping stale hull.", "group", g.ID(), "error", err)
		}
	})
}

// heal restarts the hull job of g when a cancelled job, or a load that never
// finished, would otherwise leave it without a current hull.
func (e *Env) heal(g *graph.Group, cancelled int) {
	if _, ok := g.Hull(); ok && cancelled == 0 && !missingHull(g) {
		return
	}
	ctxlog.FromContext(e.ctx).Debug("Restarting hull job.", "group", g.ID(), "cancelled", cancelled)
	e.Rehull(g)
}

// missingHull reports whether any member of g has no cached hull.
func missingHull(g *graph.Group) bool {
	for _, p := range g.Partitions() {
		if _, ok := p.Hull(); !ok {
			return true
		}
	}
	return false
}

// discard retires a scribble partition together with its private group.
func (e *Env) discard(p *graph.Partition, g *graph.Group) error {
	e.Supersede(g)
	if err := e.Model.Retire(e.Model.Detach(p)); err != nil {
		return err
	}
	return e.Model.RemoveGroup(g)
}
