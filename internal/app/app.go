package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/lvoegtlin/open-gms-sub000/internal/config"
	"github.com/lvoegtlin/open-gms-sub000/internal/ctxlog"
	"github.com/lvoegtlin/open-gms-sub000/internal/forest"
	"github.com/lvoegtlin/open-gms-sub000/internal/notify"
	"github.com/lvoegtlin/open-gms-sub000/internal/session"
	"github.com/lvoegtlin/open-gms-sub000/internal/store"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle.
type App struct {
	logger *slog.Logger
	cfg    *config.Config

	// Set while a session is open. The health handler reads it from the
	// server goroutine.
	session    atomic.Pointer[session.Session]
	socket     *notify.SocketIO
	httpServer *http.Server
}

// New returns an App logging to outW with its own logger. It fails only on
// log settings the logger cannot honor.
func New(outW io.Writer, cfg *config.Config) (*App, error) {
	logger, err := newLogger(cfg.Log, outW)
	if err != nil {
		return nil, err
	}
	logger.Debug("Logger configured successfully.", "level", cfg.Log.Level, "format", cfg.Log.Format)
	return &App{
		logger: logger,
		cfg:    cfg,
	}, nil
}

// Context returns a context carrying the app logger derived from parent.
func (a *App) Context(parent context.Context) context.Context {
	return ctxlog.WithLogger(parent, a.logger)
}

// Build reads a point list, prunes its spanning tree and returns the forest.
func (a *App) Build(ctx context.Context, points io.Reader) (*forest.Forest, error) {
	ctx = a.Context(ctx)
	pts, err := store.ReadPoints(points)
	if err != nil {
		return nil, err
	}
	tree, err := forest.SpanningTree(pts)
	if err != nil {
		return nil, fmt.Errorf("spanning tree: %w", err)
	}
	f, err := forest.Build(ctx, pts, tree, a.cfg.Session.CutThreshold)
	if err != nil {
		return nil, err
	}
	a.logger.Info("Forest built.", "points", len(f.Points), "edges", len(f.Edges), "components", len(f.Components))
	return f, nil
}

// OpenSession starts a session over f. The renderer connection is dialled
// first when one is configured; a failed dial is fatal.
func (a *App) OpenSession(ctx context.Context, f *forest.Forest) (*session.Session, error) {
	if a.session.Load() != nil {
		return nil, errors.New("a session is already open")
	}
	ctx = a.Context(ctx)
	notifiers := notify.Multi{notify.Log{}}
	if r := a.cfg.Renderer; r != nil {
		sock, err := notify.DialSocketIO(ctx, notify.SocketIOOptions{
			URL:                r.URL,
			Namespace:          r.Namespace,
			InsecureSkipVerify: r.InsecureSkipVerify,
			ConnectTimeout:     r.ConnectTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("renderer: %w", err)
		}
		a.socket = sock
		notifiers = append(notifiers, sock)
	}

	s := session.New(ctx, session.Options{
		Settings:         a.cfg.Settings(),
		Workers:          a.cfg.Session.Workers,
		QuadtreeCapacity: a.cfg.Session.QuadtreeCapacity,
		QuadtreeLevels:   a.cfg.Session.QuadtreeLevels,
		Types:            a.cfg.Types,
		Notifier:         notifiers,
	})
	s.Start()
	a.session.Store(s)
	if err := s.Load(ctx, f); err != nil {
		return nil, errors.Join(err, a.Close(ctx))
	}
	if err := s.Wait(ctx); err != nil {
		return nil, errors.Join(err, a.Close(ctx))
	}
	return s, nil
}

// Close releases the session, the renderer connection and the health
// server, whichever are open.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.closeHealthCheckServer(ctx); err != nil {
		errs = append(errs, err)
	}
	if s := a.session.Swap(nil); s != nil {
		errs = append(errs, s.Close(ctx))
	}
	if a.socket != nil {
		errs = append(errs, a.socket.Close())
		a.socket = nil
	}
	return errors.Join(errs...)
}
