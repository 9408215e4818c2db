package command

import (
	"errors"
	"fmt"

	"github.com/lvoegtlin/open-gms-sub000/internal/ctxlog"
	"github.com/lvoegtlin/open-gms-sub000/internal/graph"
	"github.com/lvoegtlin/open-gms-sub000/internal/pipeline"
)

// Cut deletes every edge one scribble crossed as a single history entry.
// The deletions run one after another, so each sees the splits of the ones
// before it.
type Cut struct {
	env   *Env
	edges []graph.EdgeID

	deleted []*DeleteEdge
	done    bool
}

func NewCut(env *Env, edges []graph.EdgeID) *Cut {
	return &Cut{env: env, edges: edges}
}

func (c *Cut) Name() string { return fmt.Sprintf("cut/%d", len(c.edges)) }

// Deleted returns the edge deletions that committed, in execution order.
func (c *Cut) Deleted() []*DeleteEdge { return c.deleted }

func (c *Cut) CanExecute() bool {
	if c.done {
		return false
	}
	for _, id := range c.edges {
		if NewDeleteEdge(c.env, id).CanExecute() {
			return true
		}
	}
	return false
}

// Execute commits once at least one deletion commits. Deletions that fail
// roll themselves back; their errors are only logged then. When none
// commits, the first real error, or else a precondition error, rejects the
// cut.
func (c *Cut) Execute() *pipeline.Future[struct{}] {
	if !c.CanExecute() {
		return precondition(c.Name(), "no live owned edge among %d", len(c.edges))
	}
	out := pipeline.NewFuture[struct{}](c.Name())
	c.deleted = c.deleted[:0]
	c.step(c.edges, nil, out)
	return out
}

func (c *Cut) step(ids []graph.EdgeID, errs []error, out *pipeline.Future[struct{}]) {
	logger := ctxlog.FromContext(c.env.Context()).With("command", c.Name())
	if len(ids) == 0 {
		err := errors.Join(errs...)
		switch {
		case len(c.deleted) > 0:
			if err != nil {
				logger.Warn("Cut committed with failed deletions.", "deleted", len(c.deleted), "error", err)
			}
			c.done = true
			out.Resolve(struct{}{})
		case err != nil:
			out.Reject(fmt.Errorf("%s: %w", c.Name(), err))
		default:
			out.Reject(fmt.Errorf("%s: %w: every edge was already gone", c.Name(), ErrPrecondition))
		}
		return
	}
	d := NewDeleteEdge(c.env, ids[0])
	pipeline.Then(c.env.Loop, d.Execute(), func(_ struct{}, err error, st pipeline.Status) {
		switch {
		case st == pipeline.Succeeded:
			c.deleted = append(c.deleted, d)
		case !errors.Is(err, ErrPrecondition):
			errs = append(errs, err)
		}
		c.step(ids[1:], errs, out)
	})
}

// Undo reverts the deletions newest first. On error the ones not yet
// reverted stay recorded, so a retry picks up where this one stopped.
func (c *Cut) Undo() error {
	if !c.done {
		return fmt.Errorf("%s: %w: not executed", c.Name(), ErrPrecondition)
	}
	for i := len(c.deleted) - 1; i >= 0; i-- {
		if err := c.deleted[i].Undo(); err != nil {
			c.deleted = c.deleted[:i+1]
			return err
		}
	}
	c.deleted = nil
	c.done = false
	return nil
}

// Redo is unsupported, as for every single deletion.
func (c *Cut) Redo() error {
	return fmt.Errorf("%s: %w", c.Name(), ErrRedoUnsupported)
}
