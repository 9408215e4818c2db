package store

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/lvoegtlin/open-gms-sub000/internal/forest"
	"github.com/lvoegtlin/open-gms-sub000/internal/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadPoints(t *testing.T) {
	pts, err := ReadPoints(strings.NewReader(`[[0, 0], [1.5, 2, 7], {"x": 3, "y": 4, "component": 9}]`))
	require.NoError(t, err)
	want := []geom.Point{
		geom.Pt(0, 0),
		{X: 1.5, Y: 2, Component: 7},
		{X: 3, Y: 4, Component: 9},
	}
	if diff := cmp.Diff(want, pts); diff != "" {
		t.Errorf("ReadPoints mismatch (-want +got):\n%s", diff)
	}

	for name, doc := range map[string]string{
		"object":             `{"x": 1}`,
		"one value":          `[[1]]`,
		"four values":        `[[1, 2, 3, 4]]`,
		"fractional comp":    `[[1, 2, 0.5]]`,
		"missing coordinate": `[{"x": 1}]`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ReadPoints(strings.NewReader(doc))
			assert.ErrorIs(t, err, ErrFormat)
		})
	}
}

func TestForestRoundTripKeepsCutEdges(t *testing.T) {
	f := &forest.Forest{
		Points: []geom.Point{
			{X: 0, Y: 0, Component: 1},
			{X: 1, Y: 0, Component: 1},
			{X: 10.25, Y: 0, Component: 2},
		},
		Edges: []forest.Edge{
			{WeightedEdge: forest.WeightedEdge{A: 0, B: 1, Weight: 1}},
			{WeightedEdge: forest.WeightedEdge{A: 1, B: 2, Weight: 9}, Deleted: true},
		},
	}
	f.Recompute()

	var buf bytes.Buffer
	require.NoError(t, SaveForest(&buf, f))
	assert.Contains(t, buf.String(), `"deleted": true`)

	got, err := LoadForest(&buf)
	require.NoError(t, err)
	if diff := cmp.Diff(f, got); diff != "" {
		t.Errorf("forest mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadForestRejectsBadEdges(t *testing.T) {
	for name, doc := range map[string]string{
		"out of range": `{"points": [[0,0]], "edges": [{"a": 0, "b": 4}]}`,
		"self loop":    `{"points": [[0,0],[1,1]], "edges": [{"a": 1, "b": 1}]}`,
		"not json":     `points`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := LoadForest(strings.NewReader(doc))
			assert.ErrorIs(t, err, ErrFormat)
		})
	}
}

func TestExportRegions(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportRegions(&buf, nil))
	assert.JSONEq(t, `[]`, buf.String())

	buf.Reset()
	require.NoError(t, ExportRegions(&buf, []Region{{
		ID: "region_01", Type: "text", Color: "#d62728", Group: 3,
		Hull: [][2]float32{{0, 0}, {1, 0}, {1, 1}},
	}}))
	assert.JSONEq(t, `[{"id":"region_01","type":"text","color":"#d62728","group":3,"hull":[[0,0],[1,0],[1,1]]}]`, buf.String())
}

func TestFileHelpers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.json")
	require.NoError(t, WriteFile(path, func(w io.Writer) error {
		_, err := w.Write([]byte(`[[3, 4]]`))
		return err
	}))
	pts, err := ReadFile(path, ReadPoints)
	require.NoError(t, err)
	assert.Equal(t, []geom.Point{geom.Pt(3, 4)}, pts)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.json"), ReadPoints)
	assert.Error(t, err)
}
