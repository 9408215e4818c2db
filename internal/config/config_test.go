package config

import (
	"context"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/lvoegtlin/open-gms-sub000/internal/annotation"
	"github.com/lvoegtlin/open-gms-sub000/internal/ctxlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
session {
  cut_threshold = 15
  workers       = 2
}

annotation "text" {
  color = "#d62728"
}

annotation "image" {
  color = [31, 119, 180]
}

annotation "margin" {
  color = [0, 0, 0, 128]
}

renderer {
  url             = "http://localhost:3000/socket.io/"
  namespace       = "/pages"
  connect_timeout = "2s"
}
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sample), "sample.hcl")
	require.NoError(t, err)

	want := Default()
	want.Session.CutThreshold = 15
	want.Session.Workers = 2
	want.Types = []annotation.Type{
		{Name: "text", Color: color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}},
		{Name: "image", Color: color.RGBA{R: 31, G: 119, B: 180, A: 0xff}},
		{Name: "margin", Color: color.RGBA{A: 128}},
	}
	want.Renderer = &Renderer{
		URL:            "http://localhost:3000/socket.io/",
		Namespace:      "/pages",
		ConnectTimeout: 2 * time.Second,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestParseEmptyKeepsDefaults(t *testing.T) {
	cfg, err := Parse(nil, "empty.hcl")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseRejects(t *testing.T) {
	cases := map[string]string{
		"bad hex":         `annotation "a" { color = "#12" }`,
		"channel range":   `annotation "a" { color = [1, 2, 300] }`,
		"channel count":   `annotation "a" { color = [1, 2] }`,
		"not a color":     `annotation "a" { color = true }`,
		"duplicate type":  "annotation \"a\" { color = \"#000000\" }\nannotation \"a\" { color = \"#ffffff\" }",
		"threshold range": `session { cut_threshold = 150 }`,
		"bad timeout":     "renderer {\n  url = \"x\"\n  connect_timeout = \"soon\"\n}",
		"syntax":          `session {`,
		"unknown block":   `bogus {}`,
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(src), name+".hcl")
			assert.Error(t, err)
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Session.Workers = 0
	cfg.Session.UndoDepth = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workers")
	assert.Contains(t, err.Error(), "undo_depth")
}

func TestValidateCutThresholdRange(t *testing.T) {
	tests := []struct {
		name    string
		value   float64
		wantErr bool
	}{
		{"zero", 0, true},
		{"default", 10, false},
		{"just below full", 99.5, false},
		// No share of removed edges can exceed 100%.
		{"full", 100, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			cfg.Session.CutThreshold = tc.value
			err := cfg.Validate()
			if tc.wantErr {
				assert.ErrorContains(t, err, "cut_threshold")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLogSettings(t *testing.T) {
	lv, err := Log{Level: "warn+2"}.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn+2, lv)

	cfg := Default()
	cfg.Log = Log{Level: "JSON", Format: "yaml"}
	err = cfg.Validate()
	assert.ErrorContains(t, err, `log level "JSON"`)
	assert.ErrorContains(t, err, `log format "yaml"`)

	cfg.Log = Log{Level: "DEBUG", Format: "JSON"}
	assert.NoError(t, cfg.Validate())
}

func TestLoadAppliesEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gms.hcl")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))
	t.Setenv("GMS_WORKERS", "8")
	t.Setenv("GMS_LOG_LEVEL", "debug")
	t.Setenv("GMS_RENDERER_URL", "http://renderer:3000/socket.io/")

	cfg, err := Load(ctxlog.Discard(context.Background()), path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Session.Workers)
	assert.Equal(t, 15.0, cfg.Session.CutThreshold)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "http://renderer:3000/socket.io/", cfg.Renderer.URL)
	assert.Equal(t, "/pages", cfg.Renderer.Namespace)
}

func TestLoadWithoutFile(t *testing.T) {
	t.Setenv("GMS_CUT_THRESHOLD", "0")
	_, err := Load(ctxlog.Discard(context.Background()), "")
	assert.ErrorContains(t, err, "cut_threshold")
}

func TestSettings(t *testing.T) {
	cfg := Default()
	cfg.Session.HullTightness = 9
	assert.Equal(t, 9, cfg.Settings().Tightness)
	assert.Equal(t, cfg.Session.UndoDepth, cfg.Settings().UndoDepth)
}
