package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/lvoegtlin/open-gms-sub000/internal/config"
	"github.com/lvoegtlin/open-gms-sub000/internal/forest"
	"github.com/lvoegtlin/open-gms-sub000/internal/geom"
	"github.com/lvoegtlin/open-gms-sub000/internal/session"
	"github.com/lvoegtlin/open-gms-sub000/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupApp(t *testing.T) (*App, *testutil.SafeBuffer) {
	t.Helper()
	buf := &testutil.SafeBuffer{}
	cfg := config.Default()
	cfg.Log.Level = "debug"
	cfg.Session.Workers = 2
	a, err := New(buf, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Close(context.Background())) })
	return a, buf
}

func testCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func twoChains() *forest.Forest {
	f := &forest.Forest{Points: []geom.Point{
		geom.Pt(0, 0), geom.Pt(10, 0), geom.Pt(20, 0),
		geom.Pt(100, 0), geom.Pt(110, 0), geom.Pt(120, 0),
	}}
	for _, ab := range [][2]int{{0, 1}, {1, 2}, {3, 4}, {4, 5}} {
		f.Edges = append(f.Edges, forest.Edge{WeightedEdge: forest.WeightedEdge{A: ab[0], B: ab[1], Weight: 10}})
	}
	f.Recompute()
	return f
}

func vertical(x float32) []geom.Point {
	return []geom.Point{geom.Pt(x, -5), geom.Pt(x, 5)}
}

func TestBuild(t *testing.T) {
	a, logs := setupApp(t)
	f, err := a.Build(testCtx(t), strings.NewReader(`[[0,0],[1,0],[2,0],[3,0],[4,1],[50,50]]`))
	require.NoError(t, err)
	assert.Len(t, f.Points, 6)
	assert.Len(t, f.Edges, 5)
	testutil.RequireLogged(t, logs, "Forest built.")

	_, err = a.Build(testCtx(t), strings.NewReader(`nope`))
	assert.Error(t, err)
}

func TestReplay(t *testing.T) {
	a, logs := setupApp(t)
	res, err := a.Replay(testCtx(t), twoChains(), []session.Gesture{
		{Points: vertical(5), Delete: true},
		{Points: vertical(105), Type: "text"},
		{Points: vertical(60), Type: "text"},
		{Points: vertical(15), Type: "music"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Applied)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Regions, 1)
	assert.Equal(t, "text", res.Regions[0].Type)
	assert.True(t, res.Forest.Edges[0].Deleted)
	assert.Equal(t, 1, res.Stats.Regions)
	testutil.RequireLogged(t, logs, "Gesture failed.")
	testutil.RequireLogged(t, logs, "Replay finished.")
}

func TestStats(t *testing.T) {
	a, _ := setupApp(t)
	st, err := a.Stats(testCtx(t), twoChains())
	require.NoError(t, err)
	assert.Equal(t, 2, st.Groups)
	assert.Equal(t, 4, st.Edges)
}

func TestHealthCheck(t *testing.T) {
	a, _ := setupApp(t)
	addr, err := a.StartHealthCheckServer("127.0.0.1:0")
	require.NoError(t, err)
	url := "http://" + addr + "/health"

	resp, err := http.Get(url)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	_, err = a.OpenSession(testCtx(t), twoChains())
	require.NoError(t, err)
	_, err = a.OpenSession(testCtx(t), twoChains())
	assert.Error(t, err, "one session at a time")

	resp, err = http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var st session.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.Equal(t, 2, st.Partitions)
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name       string
		cfg        config.Log
		wantErr    string
		shown      string
		wantSource bool
	}{
		{name: "json warn", cfg: config.Log{Level: "warn", Format: "json"}, shown: `"msg":"shown"`},
		{name: "text offset", cfg: config.Log{Level: "warn+2", Format: "TEXT"}, shown: "msg=shown"},
		{name: "debug has source", cfg: config.Log{Level: "debug", Format: "json"}, shown: `"msg":"shown"`, wantSource: true},
		{name: "bad level", cfg: config.Log{Level: "loud", Format: "json"}, wantErr: `log level "loud"`},
		{name: "bad format", cfg: config.Log{Level: "info", Format: "xml"}, wantErr: `log format "xml"`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			buf := &testutil.SafeBuffer{}
			logger, err := newLogger(tc.cfg, buf)
			if tc.wantErr != "" {
				assert.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			logger.Info("hidden")
			if lv, _ := tc.cfg.SlogLevel(); lv > slog.LevelWarn {
				logger.Error("shown")
			} else {
				logger.Warn("shown")
			}
			if lv, _ := tc.cfg.SlogLevel(); lv > slog.LevelInfo {
				assert.NotContains(t, buf.String(), "hidden")
			}
			assert.Contains(t, buf.String(), tc.shown)
			if tc.wantSource {
				assert.Contains(t, buf.String(), `"source"`)
			} else {
				assert.NotContains(t, buf.String(), "source")
			}
		})
	}
}

func TestNewRejectsBadLogSettings(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Format = "xml"
	_, err := New(&testutil.SafeBuffer{}, cfg)
	assert.ErrorContains(t, err, "log format")
}
