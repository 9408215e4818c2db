package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/golang/geo/r2"
	"github.com/lvoegtlin/open-gms-sub000/internal/annotation"
	"github.com/lvoegtlin/open-gms-sub000/internal/command"
	"github.com/lvoegtlin/open-gms-sub000/internal/ctxlog"
	"github.com/lvoegtlin/open-gms-sub000/internal/forest"
	"github.com/lvoegtlin/open-gms-sub000/internal/geom"
	"github.com/lvoegtlin/open-gms-sub000/internal/graph"
	"github.com/lvoegtlin/open-gms-sub000/internal/notify"
	"github.com/lvoegtlin/open-gms-sub000/internal/pipeline"
	"github.com/lvoegtlin/open-gms-sub000/internal/quadtree"
)

var (
	ErrClosed        = errors.New("session closed")
	ErrAlreadyLoaded = errors.New("session already holds a forest")
	ErrUnknownType   = errors.New("unknown annotation type")
	ErrEmptyGesture  = errors.New("gesture has no effect")
	ErrUnknownEdge   = errors.New("unknown edge")
	ErrNotLoaded     = errors.New("no forest loaded")
)

// Options configure a session. Zero values fall back to defaults.
type Options struct {
	Settings         command.Settings
	Workers          int
	QuadtreeCapacity int
	QuadtreeLevels   int
	Types            []annotation.Type
	Notifier         notify.Notifier
}

// Session is one annotation session over one page.
type Session struct {
	opts    Options
	ctx     context.Context
	cancel  context.CancelFunc
	loop    *pipeline.Loop
	pool    *pipeline.Pool
	env     *command.Env
	history *command.History

	// Coordinator-owned.
	queue   []pending
	busy    bool
	loaded  bool
	waiters []func()

	started atomic.Bool

	startOnce sync.Once
	closeOnce sync.Once
}

type pending struct {
	name string
	op   func() *pipeline.Future[struct{}]
	out  *pipeline.Future[struct{}]
}

// New builds a session. The context must carry a logger; it also bounds the
// lifetime of every background job.
func New(ctx context.Context, opts Options) *Session {
	if opts.Settings == (command.Settings{}) {
		opts.Settings = command.DefaultSettings()
	}
	ctx, cancel := context.WithCancel(ctx)
	loop := pipeline.NewLoop()
	pool := pipeline.NewPool(opts.Workers)
	s := &Session{
		opts:    opts,
		ctx:     ctx,
		cancel:  cancel,
		loop:    loop,
		pool:    pool,
		env:     command.NewEnv(ctx, opts.Settings, annotation.NewIndex(opts.Types...), loop, pool, opts.Notifier),
		history: command.NewHistory(opts.Settings.UndoDepth),
	}
	s.env.OnJobsIdle = s.wake
	return s
}

// Start launches the coordinator and the workers.
func (s *Session) Start() {
	s.startOnce.Do(func() {
		logger := ctxlog.FromContext(s.ctx)
		s.started.Store(true)
		s.pool.Start(s.ctx)
		go func() {
			if err := s.loop.Run(s.ctx); err != nil && !errors.Is(err, pipeline.ErrLoopClosed) && !errors.Is(err, context.Canceled) {
				logger.Error("Coordinator stopped.", "error", err)
			}
		}()
		logger.Info("Session started.", "workers", s.pool.Workers())
	})
}

// Close stops accepting work, cancels running jobs and waits for the
// coordinator and the workers to exit.
func (s *Session) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		logger := ctxlog.FromContext(s.ctx)
		logger.Debug("Closing session...")
		s.loop.Close()
		s.cancel()
		s.pool.Close()
		if !s.started.Load() {
			return
		}
		select {
		case <-s.loop.Done():
		case <-ctx.Done():
			err = fmt.Errorf("waiting for coordinator: %w", ctx.Err())
			return
		}
		logger.Info("Session closed.")
	})
	return err
}

// Do runs fn on the coordinator and waits for it. fn may read and mutate
// the environment but must not block.
func (s *Session) Do(ctx context.Context, fn func(env *command.Env)) error {
	done := make(chan struct{})
	if !s.loop.Post(func() {
		defer close(done)
		fn(s.env)
	}) {
		return ErrClosed
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.loop.Done():
		select {
		case <-done:
			return nil
		default:
			return ErrClosed
		}
	}
}

// Wait blocks until no command is queued or running and no hull job is in
// flight.
func (s *Session) Wait(ctx context.Context) error {
	idle := make(chan struct{})
	if err := s.Do(ctx, func(*command.Env) {
		s.waiters = append(s.waiters, func() { close(idle) })
		s.wake()
	}); err != nil {
		return err
	}
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.loop.Done():
		select {
		case <-idle:
			return nil
		default:
			return ErrClosed
		}
	}
}

// wake releases the waiters once the session is idle. It runs on the
// coordinator.
func (s *Session) wake() {
	if len(s.waiters) == 0 || s.busy || len(s.queue) > 0 || s.env.JobsInFlight() > 0 {
		return
	}
	ws := s.waiters
	s.waiters = nil
	for _, w := range ws {
		w()
	}
}

// Load seeds the session from a pruned forest: one partition per component,
// each in its own group, with hull jobs started for all of them. Every edge
// goes into the spatial index, cut ones included.
func (s *Session) Load(ctx context.Context, f *forest.Forest) error {
	var err error
	if derr := s.Do(ctx, func(env *command.Env) { err = s.load(f) }); derr != nil {
		return derr
	}
	return err
}

func (s *Session) load(f *forest.Forest) error {
	if s.loaded {
		return ErrAlreadyLoaded
	}
	env := s.env
	logger := ctxlog.FromContext(s.ctx)

	vids := make([]graph.VertexID, len(f.Points))
	for i, p := range f.Points {
		vids[i] = env.Model.AddVertex(p, false).ID
	}
	edges := make([]*graph.Edge, len(f.Edges))
	for i, fe := range f.Edges {
		e, err := env.Model.AddEdge(vids[fe.A], vids[fe.B], fe.Weight)
		if err != nil {
			return fmt.Errorf("load edge %d: %w", i, err)
		}
		e.Deleted = fe.Deleted
		edges[i] = e
	}

	bounds := geom.PointsBound(f.Points)
	if bounds.IsEmpty() {
		bounds = r2.RectFromPoints(r2.Point{}, r2.Point{X: 1, Y: 1})
	}
	env.Tree = quadtree.New[*graph.Edge](bounds.ExpandedByMargin(1),
		quadtree.WithMaxObjects(s.opts.QuadtreeCapacity),
		quadtree.WithMaxLevels(s.opts.QuadtreeLevels),
	)
	for _, e := range edges {
		env.Tree.Insert(e)
	}

	compEdges := f.ComponentEdges()
	var groups []*graph.Group
	for ci, comp := range f.Components {
		cv := make([]graph.VertexID, len(comp))
		for i, v := range comp {
			cv[i] = vids[v]
		}
		ce := make([]graph.EdgeID, len(compEdges[ci]))
		for i, ei := range compEdges[ci] {
			ce[i] = edges[ei].ID
		}
		d, err := env.Model.NewPartition(false, cv, ce)
		if err != nil {
			return fmt.Errorf("load component %d: %w", ci, err)
		}
		g := env.Model.NewGroup()
		if err := env.Model.Attach(g, d); err != nil {
			return fmt.Errorf("load component %d: %w", ci, err)
		}
		groups = append(groups, g)
	}
	for _, g := range groups {
		env.Rehull(g)
	}
	s.loaded = true
	logger.Info("Forest loaded.",
		"points", len(f.Points),
		"edges", len(f.Edges),
		"partitions", len(groups),
		"index_depth", env.Tree.Depth(),
	)
	return nil
}

// enqueue schedules op behind every earlier operation. op runs on the
// coordinator and the next one starts only when its future is terminal.
func (s *Session) enqueue(name string, op func() *pipeline.Future[struct{}]) *pipeline.Future[struct{}] {
	out := pipeline.NewFuture[struct{}](name)
	if !s.loop.Post(func() {
		s.queue = append(s.queue, pending{name: name, op: op, out: out})
		s.pump()
	}) {
		out.Reject(ErrClosed)
	}
	return out
}

func (s *Session) pump() {
	if s.busy || len(s.queue) == 0 {
		return
	}
	next := s.queue[0]
	s.queue = s.queue[1:]
	s.busy = true
	f := next.op()
	pipeline.Then(s.loop, f, func(_ struct{}, err error, st pipeline.Status) {
		s.busy = false
		if st == pipeline.Succeeded {
			next.out.Resolve(struct{}{})
		} else {
			next.out.Reject(err)
		}
		s.pump()
		s.wake()
	})
}

// execute runs c and records it in the history once it commits.
func (s *Session) execute(c command.Command) *pipeline.Future[struct{}] {
	logger := ctxlog.FromContext(s.ctx).With("command", c.Name())
	f := c.Execute()
	pipeline.Then(s.loop, f, func(_ struct{}, err error, st pipeline.Status) {
		switch {
		case st == pipeline.Succeeded:
			s.history.Push(c)
			logger.Debug("Command committed.", "undo_depth", s.history.Len())
		case errors.Is(err, command.ErrPrecondition):
			logger.Debug("Command skipped.", "reason", err)
		default:
			logger.Warn("Command reverted.", "error", err)
		}
	})
	return f
}

func (s *Session) run(name string, build func() (command.Command, error)) *pipeline.Future[struct{}] {
	return s.enqueue(name, func() *pipeline.Future[struct{}] {
		if !s.loaded {
			return pipeline.Rejected[struct{}](name, ErrNotLoaded)
		}
		c, err := build()
		if err != nil {
			return pipeline.Rejected[struct{}](name, err)
		}
		return s.execute(c)
	})
}

// DeleteEdge removes one edge, splitting its partition if needed.
func (s *Session) DeleteEdge(id graph.EdgeID) *pipeline.Future[struct{}] {
	return s.run("delete-edge", func() (command.Command, error) {
		if _, ok := s.env.Model.Edge(id); !ok {
			return nil, fmt.Errorf("%w: %d", ErrUnknownEdge, id)
		}
		return command.NewDeleteEdge(s.env, id), nil
	})
}

// Cut deletes every live edge the scribble touches. The deletions share
// one history entry.
func (s *Session) Cut(points []geom.Point) *pipeline.Future[struct{}] {
	return s.run("cut", func() (command.Command, error) {
		var ids []graph.EdgeID
		for _, e := range s.env.HitEdges(points) {
			if p, ok := s.env.Model.EdgeOwner(e.ID); ok && !p.IsAnnotationGraph() {
				ids = append(ids, e.ID)
			}
		}
		if len(ids) == 0 {
			return nil, fmt.Errorf("cut: %w: scribble hits no edge", command.ErrPrecondition)
		}
		return command.NewCut(s.env, ids), nil
	})
}

// Annotate labels what the scribble hits with the named type.
func (s *Session) Annotate(points []geom.Point, typeName string) *pipeline.Future[struct{}] {
	return s.run("annotate", func() (command.Command, error) {
		t, ok := s.env.Index.Type(typeName)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownType, typeName)
		}
		return command.NewAnnotate(s.env, points, t), nil
	})
}

// Deannotate removes every region the scribble hits.
func (s *Session) Deannotate(points []geom.Point) *pipeline.Future[struct{}] {
	return s.run("deannotate", func() (command.Command, error) {
		return command.NewDeannotate(s.env, points), nil
	})
}

// Gesture is one scribble from the input source.
type Gesture struct {
	Points []geom.Point
	Type   string
	Delete bool
}

// HandleGesture dispatches a scribble: with a type it annotates, or removes
// annotations when Delete is set; without a type a delete gesture cuts
// edges.
func (s *Session) HandleGesture(g Gesture) *pipeline.Future[struct{}] {
	switch {
	case g.Type != "" && g.Delete:
		return s.Deannotate(g.Points)
	case g.Type != "":
		return s.Annotate(g.Points, g.Type)
	case g.Delete:
		return s.Cut(g.Points)
	default:
		return pipeline.Rejected[struct{}]("gesture", fmt.Errorf("%w: %w", ErrEmptyGesture, command.ErrPrecondition))
	}
}

// Undo reverts the newest committed command.
func (s *Session) Undo() *pipeline.Future[struct{}] {
	return s.enqueue("undo", func() *pipeline.Future[struct{}] {
		c, err := s.history.Undo()
		if err != nil {
			return pipeline.Rejected[struct{}]("undo", err)
		}
		ctxlog.FromContext(s.ctx).Debug("Command undone.", "command", c.Name())
		return pipeline.Resolved("undo", struct{}{})
	})
}

// Redo re-applies the newest undone command.
func (s *Session) Redo() *pipeline.Future[struct{}] {
	return s.enqueue("redo", func() *pipeline.Future[struct{}] {
		c, err := s.history.Redo()
		if err != nil {
			return pipeline.Rejected[struct{}]("redo", err)
		}
		ctxlog.FromContext(s.ctx).Debug("Command redone.", "command", c.Name())
		return pipeline.Resolved("redo", struct{}{})
	})
}
