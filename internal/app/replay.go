package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/lvoegtlin/open-gms-sub000/internal/command"
	"github.com/lvoegtlin/open-gms-sub000/internal/forest"
	"github.com/lvoegtlin/open-gms-sub000/internal/session"
	"github.com/lvoegtlin/open-gms-sub000/internal/store"
)

// ReplayResult is what a gesture replay leaves behind.
type ReplayResult struct {
	Applied int
	Skipped int
	Failed  int
	Regions []store.Region
	Forest  *forest.Forest
	Stats   session.Stats
}

// Replay opens a session over f, feeds it every gesture in order and
// collects the final regions and page graph. Gestures that do nothing are
// counted as skipped; gestures whose command reverted count as failed and
// do not stop the replay.
func (a *App) Replay(ctx context.Context, f *forest.Forest, gestures []session.Gesture) (*ReplayResult, error) {
	ctx = a.Context(ctx)
	s, err := a.OpenSession(ctx, f)
	if err != nil {
		return nil, err
	}
	defer a.Close(ctx)

	res := &ReplayResult{}
	for i, g := range gestures {
		_, err := s.HandleGesture(g).Wait(ctx)
		switch {
		case err == nil:
			res.Applied++
		case errors.Is(err, command.ErrPrecondition):
			res.Skipped++
			a.logger.Debug("Gesture skipped.", "index", i, "reason", err)
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			res.Failed++
			a.logger.Warn("Gesture failed.", "index", i, "error", err)
		}
	}
	if err := s.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for hull jobs: %w", err)
	}

	if res.Regions, err = s.Regions(ctx); err != nil {
		return nil, err
	}
	if res.Forest, err = s.Snapshot(ctx); err != nil {
		return nil, err
	}
	if res.Stats, err = s.Stats(ctx); err != nil {
		return nil, err
	}
	a.logger.Info("Replay finished.",
		"applied", res.Applied,
		"skipped", res.Skipped,
		"failed", res.Failed,
		"regions", len(res.Regions),
	)
	return res, nil
}

// Stats loads f into a throwaway session and reports its shape.
func (a *App) Stats(ctx context.Context, f *forest.Forest) (session.Stats, error) {
	ctx = a.Context(ctx)
	s, err := a.OpenSession(ctx, f)
	if err != nil {
		return session.Stats{}, err
	}
	defer a.Close(ctx)
	return s.Stats(ctx)
}
