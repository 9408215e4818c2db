package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/lvoegtlin/open-gms-sub000/internal/annotation"
	"github.com/lvoegtlin/open-gms-sub000/internal/ctxlog"
	"github.com/lvoegtlin/open-gms-sub000/internal/graph"
	"github.com/lvoegtlin/open-gms-sub000/internal/pipeline"
)

// DeleteEdge removes one edge and, when that disconnects its partition,
// splits the partition in two.
type DeleteEdge struct {
	env  *Env
	edge graph.EdgeID

	owner  *graph.Partition
	group  *graph.Group
	before graph.GroupState
	region *annotation.Polygon

	split     bool
	carved    *graph.Partition
	newGroup  *graph.Group
	newRegion *annotation.Polygon
	done      bool

	// Hull jobs of group cancelled on execute.
	cancelled int
}

func NewDeleteEdge(env *Env, edge graph.EdgeID) *DeleteEdge {
	return &DeleteEdge{env: env, edge: edge}
}

func (c *DeleteEdge) Name() string { return fmt.Sprintf("delete-edge/%d", c.edge) }

// Edge is the target edge id.
func (c *DeleteEdge) Edge() graph.EdgeID { return c.edge }

// Split reports whether execution carved out a new partition.
func (c *DeleteEdge) Split() bool { return c.split }

// Carved returns the partition carved out by the split, if any.
func (c *DeleteEdge) Carved() *graph.Partition { return c.carved }

func (c *DeleteEdge) CanExecute() bool {
	e, ok := c.env.Model.Edge(c.edge)
	if !ok || e.Deleted {
		return false
	}
	_, owned := c.env.Model.EdgeOwner(c.edge)
	return owned && !c.done
}

func (c *DeleteEdge) Execute() *pipeline.Future[struct{}] {
	if !c.CanExecute() {
		return precondition(c.Name(), "edge %d is not a live owned edge", c.edge)
	}
	env := c.env
	ctx := ctxlog.With(env.Context(), "command", c.Name())
	logger := ctxlog.FromContext(ctx)
	out := pipeline.NewFuture[struct{}](c.Name())

	c.owner, _ = env.Model.EdgeOwner(c.edge)
	c.group = c.owner.Group()
	c.cancelled = env.Supersede(c.group)
	c.before = env.Model.SaveGroup(c.group)
	if r, ok := env.Index.FindByGroup(c.group); ok {
		c.region = r.Clone()
	}

	if _, err := env.Model.DeleteEdge(c.edge); err != nil {
		out.Reject(fmt.Errorf("%s: %w", c.Name(), err))
		return out
	}

	in := pipeline.SplitInput{Topology: c.owner.Topology(), Removed: c.edge}
	run := env.RunSplit
	job := pipeline.Go(ctx, env.Pool, fmt.Sprintf("split/partition-%d", c.owner.ID()), func(ctx context.Context) (pipeline.SplitResult, error) {
		return run(ctx, in)
	})
	pipeline.Then(env.Loop, job, func(res pipeline.SplitResult, err error, s pipeline.Status) {
		if s != pipeline.Succeeded {
			if rerr := env.Model.RestoreEdge(c.edge, c.owner); rerr != nil {
				err = errors.Join(err, rerr)
			}
			logger.Warn("Split failed, edge restored.", "error", err)
			env.heal(c.group, c.cancelled)
			out.Reject(fmt.Errorf("%s: %w", c.Name(), err))
			return
		}
		if !res.Split {
			c.done = true
			env.heal(c.group, c.cancelled)
			logger.Debug("Edge deleted without split.")
			out.Resolve(struct{}{})
			return
		}
		if err := c.carve(res.Carve); err != nil {
			if rerr := env.Model.RestoreEdge(c.edge, c.owner); rerr != nil {
				err = errors.Join(err, rerr)
			}
			logger.Warn("Carve failed, edge restored.", "error", err)
			env.heal(c.group, c.cancelled)
			out.Reject(fmt.Errorf("%s: %w", c.Name(), err))
			return
		}

		left, right := env.StartHull(c.group, nil), env.StartHull(c.newGroup, nil)
		pipeline.JoinAll(env.Loop, func(st []pipeline.Status) {
			switch {
			case pipeline.AllSucceeded(st):
				lres, _ := left.Future.Result()
				rres, _ := right.Future.Result()
				env.ApplyHull(left, lres)
				env.ApplyHull(right, rres)
				c.reconcile(ctx)
				c.done = true
				c.emit()
				logger.Debug("Edge deleted with split.",
					"partition", c.owner.ID(), "carved", c.carved.ID(), "group", c.newGroup.ID())
				out.Resolve(struct{}{})
			case pipeline.AnyIs(st, pipeline.Failed):
				_, lerr := left.Future.Result()
				_, rerr := right.Future.Result()
				jobErr := errors.Join(lerr, rerr)
				if err := c.revert(); err != nil {
					jobErr = errors.Join(jobErr, err)
				}
				logger.Warn("Hull job failed, edge deletion rolled back.", "error", jobErr)
				out.Reject(fmt.Errorf("%s: %w", c.Name(), jobErr))
			default:
				// Superseded by a newer mutation of the same groups.
				c.done = true
				logger.Debug("Split hull jobs superseded.")
				out.Resolve(struct{}{})
			}
		}, left.Future, right.Future)
	})
	return out
}

func (c *DeleteEdge) carve(vertices []graph.VertexID) error {
	env := c.env
	d, err := env.Model.Carve(c.owner, vertices)
	if err != nil {
		return err
	}
	g := env.Model.NewGroup()
	if err := env.Model.Attach(g, d); err != nil {
		return err
	}
	c.split = true
	c.carved = d.Partition()
	c.newGroup = g
	return nil
}

func (c *DeleteEdge) emit() {
	env := c.env
	env.notifyGroup(c.group)
	if c.newGroup.Len() > 0 {
		env.notifyGroup(c.newGroup)
	}
	if r, ok := env.Index.FindByGroup(c.group); ok {
		env.notifyRegion(r)
	}
	if c.newRegion != nil {
		env.notifyRegion(c.newRegion)
	}
}

// Undo merges the carved partition back, restores the edge and puts the
// group back exactly as it was, hulls included.
func (c *DeleteEdge) Undo() error {
	if !c.done {
		return fmt.Errorf("%s: %w: not executed", c.Name(), ErrPrecondition)
	}
	if err := c.revert(); err != nil {
		return err
	}
	c.done = false
	c.env.notifyGroup(c.group)
	if c.region != nil {
		c.env.notifyRegion(c.region)
	}
	return nil
}

func (c *DeleteEdge) revert() error {
	env := c.env
	g2, r2 := c.newGroup, c.newRegion
	env.Supersede(c.group)
	if c.split {
		env.Supersede(g2)
		d := env.Model.Detach(c.carved)
		if err := env.Model.Merge(c.owner, d); err != nil {
			return fmt.Errorf("%s: merge back: %w", c.Name(), err)
		}
		if r2 != nil {
			env.Index.RemoveRegion(g2)
		}
	}
	if err := env.Model.RestoreEdge(c.edge, c.owner); err != nil {
		return fmt.Errorf("%s: restore edge: %w", c.Name(), err)
	}
	evicted, err := env.Model.RestoreGroup(c.before)
	if err != nil {
		return fmt.Errorf("%s: %w", c.Name(), err)
	}
	if len(evicted) > 0 {
		return fmt.Errorf("%s: restore left %d partitions without a group", c.Name(), len(evicted))
	}
	if c.region != nil {
		env.Index.Restore(c.region.Clone())
	} else {
		env.Index.RemoveRegion(c.group)
	}
	if c.split {
		_, live := env.Model.Group(g2.ID())
		if err := env.Model.RemoveGroup(g2); err != nil {
			return fmt.Errorf("%s: %w", c.Name(), err)
		}
		if r2 != nil {
			env.notifyRegionRemoved(r2)
		}
		if live {
			env.notifyGroupRemoved(g2)
		}
	}

	c.split = false
	c.carved = nil
	c.newGroup = nil
	c.newRegion = nil
	env.heal(c.group, c.cancelled)
	return nil
}

// Redo is unsupported: the split outcome depends on job results that are
// not replayed.
func (c *DeleteEdge) Redo() error {
	return fmt.Errorf("%s: %w", c.Name(), ErrRedoUnsupported)
}
