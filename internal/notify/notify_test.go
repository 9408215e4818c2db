package notify

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/lvoegtlin/open-gms-sub000/internal/ctxlog"
	"github.com/lvoegtlin/open-gms-sub000/internal/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiFansOutInOrder(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	m := Multi{a, Discard{}, b}
	ev := Event{Kind: RegionChanged, Group: 3, Region: "region_x", Type: "text"}

	m.Notify(context.Background(), ev)
	m.Notify(context.Background(), Event{Kind: GroupRemoved, Group: 4})

	require.Len(t, a.Events(), 2)
	assert.Equal(t, a.Events(), b.Events())
	assert.Equal(t, 1, a.Count(RegionChanged))
	a.Reset()
	assert.Empty(t, a.Events())
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := ctxlog.WithLogger(context.Background(), logger)

	Log{}.Notify(ctx, Event{Kind: GroupChanged, Group: 7, Hull: geom.PointHull(geom.Pt(1, 2))})
	assert.Contains(t, buf.String(), "Region notification.")
	assert.Contains(t, buf.String(), "kind=group_changed")
	assert.Contains(t, buf.String(), "group=7")
}

func TestPayload(t *testing.T) {
	h := geom.LineHull(geom.Pt(0, 0), geom.Pt(3, 4))
	p := Payload(Event{Kind: GroupChanged, Group: 2, Hull: h})
	assert.Equal(t, "group_changed", p["kind"])
	assert.Equal(t, int64(2), p["group"])
	assert.Equal(t, [][2]float32{{0, 0}, {3, 4}}, p["hull"])
	assert.NotContains(t, p, "region")

	p = Payload(Event{Kind: RegionRemoved, Group: 2, Region: "region_1", Type: "text"})
	assert.Equal(t, "region_1", p["region"])
	assert.Equal(t, "text", p["type"])
}
