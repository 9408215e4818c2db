package command

import (
	"errors"
	"fmt"
	"sort"

	"github.com/lvoegtlin/open-gms-sub000/internal/annotation"
	"github.com/lvoegtlin/open-gms-sub000/internal/ctxlog"
	"github.com/lvoegtlin/open-gms-sub000/internal/geom"
	"github.com/lvoegtlin/open-gms-sub000/internal/graph"
	"github.com/lvoegtlin/open-gms-sub000/internal/pipeline"
)

// Annotate turns a freehand scribble into an annotation partition. With add
// set, every page partition the scribble hits joins one region of the given
// type. Without it, every annotated group the scribble hits loses its
// annotation and falls apart into singleton groups.
type Annotate struct {
	env    *Env
	points []geom.Point
	typ    annotation.Type
	add    bool

	scribble []geom.Point
	part     *graph.Partition
	group    *graph.Group

	merged  []saved
	hull    geom.Hull
	region  *annotation.Polygon
	removed []removal
	done    bool
}

type saved struct {
	state  graph.GroupState
	region *annotation.Polygon
}

type removal struct {
	saved
	retired []*graph.Partition
	singles []*graph.Group
}

// NewAnnotate labels what the scribble hits with t.
func NewAnnotate(env *Env, points []geom.Point, t annotation.Type) *Annotate {
	return newAnnotate(env, points, t, true)
}

// NewDeannotate removes the annotation of every region the scribble hits.
func NewDeannotate(env *Env, points []geom.Point) *Annotate {
	return newAnnotate(env, points, annotation.Type{}, false)
}

func newAnnotate(env *Env, points []geom.Point, t annotation.Type, add bool) *Annotate {
	return &Annotate{
		env:      env,
		points:   points,
		typ:      t,
		add:      add,
		scribble: geom.SimplifyPolyline(points, env.Settings.SimplifyTolerance),
	}
}

func (c *Annotate) Name() string {
	if c.add {
		return "annotate/" + c.typ.Name
	}
	return "deannotate"
}

// Group is the region group created by an executed annotate.
func (c *Annotate) Group() *graph.Group { return c.group }

// Scribble is the annotation partition built from the simplified points.
func (c *Annotate) Scribble() *graph.Partition { return c.part }

func (c *Annotate) CanExecute() bool {
	if c.done || len(c.scribble) < 2 {
		return false
	}
	if c.add {
		groups, _ := c.addTargets()
		return len(groups) > 0
	}
	return len(c.removeTargets()) > 0
}

// addTargets returns the hit groups the scribble may absorb and the hit
// page partitions, in hit order. Groups labelled with another type are
// left alone.
func (c *Annotate) addTargets() ([]*graph.Group, []*graph.Partition) {
	var groups []*graph.Group
	var sources []*graph.Partition
	seen := make(map[*graph.Group]bool)
	for _, p := range c.env.HitPartitions(c.scribble) {
		g := p.Group()
		if r, ok := c.env.Index.FindByGroup(g); ok && !r.Type.Equal(c.typ) {
			continue
		}
		if !p.IsAnnotationGraph() {
			sources = append(sources, p)
		}
		if !seen[g] {
			seen[g] = true
			groups = append(groups, g)
		}
	}
	return groups, sources
}

// removeTargets returns the annotated groups the scribble hits, by id.
func (c *Annotate) removeTargets() []*graph.Group {
	seen := make(map[*graph.Group]bool)
	var out []*graph.Group
	for _, p := range c.env.HitPartitions(c.scribble) {
		g := p.Group()
		if _, ok := c.env.Index.FindByGroup(g); ok && !seen[g] {
			seen[g] = true
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func (c *Annotate) Execute() *pipeline.Future[struct{}] {
	if !c.CanExecute() {
		return precondition(c.Name(), "scribble hits nothing it can change")
	}
	env := c.env
	logger := ctxlog.FromContext(env.Context()).With("command", c.Name())
	out := pipeline.NewFuture[struct{}](c.Name())

	var groups []*graph.Group
	var sources []*graph.Partition
	var targets []*graph.Group
	if c.add {
		groups, sources = c.addTargets()
	} else {
		targets = c.removeTargets()
	}

	g, p, err := c.buildScribble()
	if err != nil {
		out.Reject(fmt.Errorf("%s: %w", c.Name(), err))
		return out
	}
	c.group, c.part = g, p

	env.StartHull(g, func(job *HullJob, res pipeline.HullResult, err error, s pipeline.Status) {
		if s != pipeline.Succeeded || !env.ApplyHull(job, res) {
			if err == nil {
				err = pipeline.ErrCancelled
			}
			if derr := env.discard(c.part, c.group); derr != nil {
				err = errors.Join(err, derr)
			}
			logger.Warn("Scribble hull failed, annotation reverted.", "error", err)
			out.Reject(fmt.Errorf("%s: %w", c.Name(), err))
			return
		}

		if c.add {
			c.commitAdd(groups, sources)
			logger.Debug("Annotation added.", "group", c.group.ID(), "merged", len(c.merged))
		} else {
			if err := c.commitRemove(targets); err != nil {
				logger.Error("Annotation removal incomplete.", "error", err)
				out.Reject(fmt.Errorf("%s: %w", c.Name(), err))
				return
			}
			logger.Debug("Annotation removed.", "regions", len(c.removed))
		}
		c.done = true
		out.Resolve(struct{}{})
	})
	return out
}

// buildScribble adds the scribble's vertices and edges as a new annotation
// partition in a fresh group. On error nothing it added is left behind.
func (c *Annotate) buildScribble() (*graph.Group, *graph.Partition, error) {
	m := c.env.Model
	pts := c.scribble
	closed := geom.IsClosed(pts)
	if closed {
		pts = pts[:len(pts)-1]
	}

	var vids []graph.VertexID
	var eids []graph.EdgeID
	fail := func(err error) (*graph.Group, *graph.Partition, error) {
		if ferr := m.Forget(vids, eids); ferr != nil {
			err = errors.Join(err, ferr)
		}
		return nil, nil, err
	}

	var last geom.Point
	for i, pt := range pts {
		if i > 0 && pt.Equal(last) {
			continue
		}
		vids = append(vids, m.AddVertex(pt, true).ID)
		last = pt
	}
	link := func(a, b graph.VertexID) error {
		va, _ := m.Vertex(a)
		vb, _ := m.Vertex(b)
		e, err := m.AddEdge(a, b, va.Dist(vb.Point))
		if err != nil {
			return err
		}
		eids = append(eids, e.ID)
		return nil
	}
	for i := 1; i < len(vids); i++ {
		if err := link(vids[i-1], vids[i]); err != nil {
			return fail(err)
		}
	}
	if closed && len(vids) >= 3 {
		if err := link(vids[len(vids)-1], vids[0]); err != nil {
			return fail(err)
		}
	}

	d, err := m.NewPartition(true, vids, eids)
	if err != nil {
		return fail(err)
	}
	g := m.NewGroup()
	if err := m.Attach(g, d); err != nil {
		err = errors.Join(err, m.Retire(d), m.RemoveGroup(g))
		return nil, nil, err
	}
	return g, d.Partition(), nil
}

func (c *Annotate) commitAdd(groups []*graph.Group, hits []*graph.Partition) {
	env := c.env
	seen := make(map[*graph.Group]bool, len(groups))
	for _, g := range groups {
		seen[g] = true
	}
	// Same-type regions the new scribble overlaps join as well; their hulls
	// are reused rather than recomputed.
	for _, r := range env.Index.Regions(c.typ.Name) {
		if seen[r.Group] || !r.Type.Equal(c.typ) {
			continue
		}
		if h, ok := r.Hull(); ok && geom.Intersects(h, c.scribble) {
			seen[r.Group] = true
			groups = append(groups, r.Group)
		}
	}

	var sources []*graph.Partition
	have := make(map[*graph.Partition]bool)
	addSource := func(p *graph.Partition) {
		if !have[p] {
			have[p] = true
			sources = append(sources, p)
		}
	}
	c.merged = c.merged[:0]
	for _, g := range groups {
		env.Supersede(g)
		s := saved{state: env.Model.SaveGroup(g)}
		if r, ok := env.Index.RemoveRegion(g); ok {
			s.region = r.Clone()
			for _, src := range r.Sources {
				addSource(src)
			}
			env.notifyRegionRemoved(r)
		}
		c.merged = append(c.merged, s)
	}
	for _, p := range hits {
		addSource(p)
	}
	c.absorb()

	env.RefreshHull(c.group)
	if len(sources) == 0 {
		env.Index.AddRegion(c.group, nil, c.typ)
	}
	for _, s := range sources {
		env.Index.AddRegion(c.group, s, c.typ)
	}
	env.InsertEdges(c.part)

	c.hull, _ = c.group.Hull()
	c.hull = c.hull.Clone()
	r, _ := env.Index.FindByGroup(c.group)
	c.region = r.Clone()
	env.notifyGroup(c.group)
	env.notifyRegion(r)
	if missingHull(c.group) {
		env.Rehull(c.group)
	}
}

// absorb moves every member of the merged groups into the region group and
// drops the emptied groups.
func (c *Annotate) absorb() {
	env := c.env
	for _, s := range c.merged {
		g := s.state.Group
		for _, p := range g.Partitions() {
			if err := env.Model.Attach(c.group, env.Model.Detach(p)); err != nil {
				ctxlog.FromContext(env.Context()).Error("Partition move failed.", "partition", p.ID(), "error", err)
			}
		}
		if err := env.Model.RemoveGroup(g); err != nil {
			ctxlog.FromContext(env.Context()).Error("Could not drop merged group.", "group", g.ID(), "error", err)
			continue
		}
		env.notifyGroupRemoved(g)
	}
}

func (c *Annotate) commitRemove(targets []*graph.Group) error {
	env := c.env
	c.removed = c.removed[:0]
	var errs []error
	for _, g := range targets {
		env.Supersede(g)
		rm := removal{saved: saved{state: env.Model.SaveGroup(g)}}
		if r, ok := env.Index.FindByGroup(g); ok {
			rm.region = r.Clone()
		}
		if err := c.unlabel(&rm); err != nil {
			errs = append(errs, err)
		}
		c.removed = append(c.removed, rm)
	}
	if err := env.discard(c.part, c.group); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// unlabel drops the region of rm's group, retires its annotation partitions
// and gives each page partition a singleton group. Existing singles are
// reused on redo.
func (c *Annotate) unlabel(rm *removal) error {
	env := c.env
	g := rm.state.Group
	if r, ok := env.Index.RemoveRegion(g); ok {
		env.notifyRegionRemoved(r)
	}
	reuse := len(rm.singles) > 0
	next := 0
	var errs []error
	for _, p := range g.Partitions() {
		d := env.Model.Detach(p)
		if p.IsAnnotationGraph() {
			if err := env.Model.Retire(d); err != nil {
				errs = append(errs, err)
				continue
			}
			if !reuse {
				rm.retired = append(rm.retired, p)
			}
			continue
		}
		var s *graph.Group
		if reuse && next < len(rm.singles) {
			s = rm.singles[next]
			next++
		} else {
			s = env.Model.NewGroup()
			rm.singles = append(rm.singles, s)
		}
		if err := env.Model.Attach(s, d); err != nil {
			errs = append(errs, err)
			continue
		}
		if h, ok := p.Hull(); ok {
			s.SetHull(h)
		} else {
			env.Rehull(s)
		}
		env.notifyGroup(s)
	}
	if err := env.Model.RemoveGroup(g); err != nil {
		errs = append(errs, err)
	} else {
		env.notifyGroupRemoved(g)
	}
	return errors.Join(errs...)
}

func (c *Annotate) Undo() error {
	if !c.done {
		return fmt.Errorf("%s: %w: not executed", c.Name(), ErrPrecondition)
	}
	var err error
	if c.add {
		err = c.undoAdd()
	} else {
		err = c.undoRemove()
	}
	if err != nil {
		return fmt.Errorf("%s: undo: %w", c.Name(), err)
	}
	c.done = false
	return nil
}

func (c *Annotate) undoAdd() error {
	env := c.env
	env.Supersede(c.group)
	if r, ok := env.Index.RemoveRegion(c.group); ok {
		env.notifyRegionRemoved(r)
	}
	for i := len(c.merged) - 1; i >= 0; i-- {
		s := c.merged[i]
		if _, err := env.Model.RestoreGroup(s.state); err != nil {
			return err
		}
		if s.region != nil {
			env.Index.Restore(s.region.Clone())
		}
	}
	if err := env.discard(c.part, c.group); err != nil {
		return err
	}
	env.notifyGroupRemoved(c.group)
	for _, s := range c.merged {
		env.notifyGroup(s.state.Group)
		if r, ok := env.Index.FindByGroup(s.state.Group); ok {
			env.notifyRegion(r)
		}
	}
	return nil
}

func (c *Annotate) undoRemove() error {
	env := c.env
	for i := len(c.removed) - 1; i >= 0; i-- {
		rm := c.removed[i]
		for _, s := range rm.singles {
			env.Supersede(s)
		}
		for _, p := range rm.retired {
			if _, err := env.Model.Revive(p); err != nil {
				return err
			}
		}
		if _, err := env.Model.RestoreGroup(rm.state); err != nil {
			return err
		}
		for _, s := range rm.singles {
			if err := env.Model.RemoveGroup(s); err != nil {
				return err
			}
			env.notifyGroupRemoved(s)
		}
		if rm.region != nil {
			env.Index.Restore(rm.region.Clone())
		}
		env.notifyGroup(rm.state.Group)
		if r, ok := env.Index.FindByGroup(rm.state.Group); ok {
			env.notifyRegion(r)
		}
	}
	return nil
}

// Redo re-applies the cached outcome without recomputing any hull.
func (c *Annotate) Redo() error {
	if c.done {
		return fmt.Errorf("%s: %w: already applied", c.Name(), ErrPrecondition)
	}
	env := c.env
	if !c.add {
		var errs []error
		for i := range c.removed {
			if err := c.unlabel(&c.removed[i]); err != nil {
				errs = append(errs, err)
			}
		}
		if err := errors.Join(errs...); err != nil {
			return fmt.Errorf("%s: redo: %w", c.Name(), err)
		}
		c.done = true
		return nil
	}

	d, err := env.Model.Revive(c.part)
	if err != nil {
		return fmt.Errorf("%s: redo: %w", c.Name(), err)
	}
	if err := env.Model.Attach(c.group, d); err != nil {
		return fmt.Errorf("%s: redo: %w", c.Name(), err)
	}
	for _, s := range c.merged {
		env.Supersede(s.state.Group)
		if r, ok := env.Index.RemoveRegion(s.state.Group); ok {
			env.notifyRegionRemoved(r)
		}
	}
	c.absorb()
	c.group.SetHull(c.hull.Clone())
	env.Index.Restore(c.region.Clone())
	env.notifyGroup(c.group)
	if r, ok := env.Index.FindByGroup(c.group); ok {
		env.notifyRegion(r)
	}
	c.done = true
	return nil
}
