package config

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/kelseyhightower/envconfig"
	"github.com/lvoegtlin/open-gms-sub000/internal/annotation"
	"github.com/lvoegtlin/open-gms-sub000/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// EnvPrefix prefixes every environment override, e.g. GMS_WORKERS.
const EnvPrefix = "gms"

// fileRoot decodes the top-level blocks of a session file.
type fileRoot struct {
	Session     *sessionBlock      `hcl:"session,block"`
	Annotations []*annotationBlock `hcl:"annotation,block"`
	Renderer    *rendererBlock     `hcl:"renderer,block"`
}

// sessionBlock uses pointers so that absent attributes keep their defaults.
type sessionBlock struct {
	CutThreshold      *float64 `hcl:"cut_threshold,optional"`
	HullTightness     *int     `hcl:"hull_tightness,optional"`
	SimplifyTolerance *float64 `hcl:"simplify_tolerance,optional"`
	QuadtreeCapacity  *int     `hcl:"quadtree_capacity,optional"`
	QuadtreeLevels    *int     `hcl:"quadtree_levels,optional"`
	UndoDepth         *int     `hcl:"undo_depth,optional"`
	Workers           *int     `hcl:"workers,optional"`
}

type annotationBlock struct {
	Name  string         `hcl:"name,label"`
	Color hcl.Expression `hcl:"color"`
}

type rendererBlock struct {
	URL                string `hcl:"url"`
	Namespace          string `hcl:"namespace,optional"`
	InsecureSkipVerify bool   `hcl:"insecure_skip_verify,optional"`
	ConnectTimeout     string `hcl:"connect_timeout,optional"`
}

// Load reads the HCL file at path on top of the defaults, then applies
// environment overrides and validates. An empty path skips the file.
func Load(ctx context.Context, path string) (*Config, error) {
	logger := ctxlog.FromContext(ctx)
	cfg := Default()
	if path != "" {
		src, diags := hclparse.NewParser().ParseHCLFile(path)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
		}
		if err := cfg.decode(src.Body); err != nil {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, err)
		}
		logger.Debug("Config file loaded.", "path", path, "types", len(cfg.Types))
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Parse decodes HCL source held in memory. filename only labels
// diagnostics. Environment overrides are not applied.
func Parse(src []byte, filename string) (*Config, error) {
	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, diags
	}
	cfg := Default()
	if err := cfg.decode(file.Body); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(body hcl.Body) error {
	var root fileRoot
	if diags := gohcl.DecodeBody(body, nil, &root); diags.HasErrors() {
		return diags
	}
	if b := root.Session; b != nil {
		c.Session.overlay(b.CutThreshold, b.HullTightness, b.SimplifyTolerance,
			b.QuadtreeCapacity, b.QuadtreeLevels, b.UndoDepth, b.Workers)
	}
	if len(root.Annotations) > 0 {
		c.Types = c.Types[:0:0]
		for _, a := range root.Annotations {
			rgba, err := decodeColor(a.Color)
			if err != nil {
				return fmt.Errorf("annotation %q: %w", a.Name, err)
			}
			c.Types = append(c.Types, annotation.Type{Name: a.Name, Color: rgba})
		}
	}
	if r := root.Renderer; r != nil {
		c.Renderer = &Renderer{URL: r.URL, Namespace: r.Namespace, InsecureSkipVerify: r.InsecureSkipVerify}
		if r.ConnectTimeout != "" {
			d, err := time.ParseDuration(r.ConnectTimeout)
			if err != nil {
				return fmt.Errorf("renderer connect_timeout: %w", err)
			}
			c.Renderer.ConnectTimeout = d
		}
	}
	return nil
}

// decodeColor accepts "#rrggbb", "#rrggbbaa" or a list of three or four
// channel values in [0, 255].
func decodeColor(expr hcl.Expression) (color.RGBA, error) {
	v, diags := expr.Value(nil)
	if diags.HasErrors() {
		return color.RGBA{}, diags
	}
	if v.IsNull() || !v.IsKnown() {
		return color.RGBA{}, errors.New("color is not set")
	}
	if v.Type() == cty.String {
		return parseHex(v.AsString())
	}

	list, err := convert.Convert(v, cty.List(cty.Number))
	if err != nil {
		return color.RGBA{}, fmt.Errorf("color must be a hex string or a list of numbers: %w", err)
	}
	var channels []uint8
	if err := gocty.FromCtyValue(list, &channels); err != nil {
		return color.RGBA{}, fmt.Errorf("color channels must be integers in [0, 255]: %w", err)
	}
	return fromChannels(channels)
}

func parseHex(s string) (color.RGBA, error) {
	h := strings.TrimPrefix(s, "#")
	if len(h) != 6 && len(h) != 8 {
		return color.RGBA{}, fmt.Errorf("color %q is not #rrggbb or #rrggbbaa", s)
	}
	var channels []uint8
	for i := 0; i < len(h); i += 2 {
		b, err := strconv.ParseUint(h[i:i+2], 16, 8)
		if err != nil {
			return color.RGBA{}, fmt.Errorf("color %q: %w", s, err)
		}
		channels = append(channels, uint8(b))
	}
	return fromChannels(channels)
}

func fromChannels(ch []uint8) (color.RGBA, error) {
	switch len(ch) {
	case 3:
		return color.RGBA{R: ch[0], G: ch[1], B: ch[2], A: 0xff}, nil
	case 4:
		return color.RGBA{R: ch[0], G: ch[1], B: ch[2], A: ch[3]}, nil
	default:
		return color.RGBA{}, fmt.Errorf("color needs 3 or 4 channels, got %d", len(ch))
	}
}

// envOverrides mirrors the settings that may come from the environment.
// Nil pointers mean the variable is unset.
type envOverrides struct {
	CutThreshold      *float64 `envconfig:"CUT_THRESHOLD"`
	HullTightness     *int     `envconfig:"HULL_TIGHTNESS"`
	SimplifyTolerance *float64 `envconfig:"SIMPLIFY_TOLERANCE"`
	QuadtreeCapacity  *int     `envconfig:"QUADTREE_CAPACITY"`
	QuadtreeLevels    *int     `envconfig:"QUADTREE_LEVELS"`
	UndoDepth         *int     `envconfig:"UNDO_DEPTH"`
	Workers           *int     `envconfig:"WORKERS"`
	LogLevel          string   `envconfig:"LOG_LEVEL"`
	LogFormat         string   `envconfig:"LOG_FORMAT"`
	RendererURL       string   `envconfig:"RENDERER_URL"`
}

// ApplyEnv overlays GMS_* environment variables.
func (c *Config) ApplyEnv() error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("environment overrides: %w", err)
	}
	c.Session.overlay(env.CutThreshold, env.HullTightness, env.SimplifyTolerance,
		env.QuadtreeCapacity, env.QuadtreeLevels, env.UndoDepth, env.Workers)
	if env.LogLevel != "" {
		c.Log.Level = env.LogLevel
	}
	if env.LogFormat != "" {
		c.Log.Format = env.LogFormat
	}
	if env.RendererURL != "" {
		if c.Renderer == nil {
			c.Renderer = &Renderer{}
		}
		c.Renderer.URL = env.RendererURL
	}
	return nil
}

func (s *Session) overlay(cut *float64, tightness *int, tolerance *float64, capacity, levels, undo, workers *int) {
	setFloat(&s.CutThreshold, cut)
	setInt(&s.HullTightness, tightness)
	setFloat(&s.SimplifyTolerance, tolerance)
	setInt(&s.QuadtreeCapacity, capacity)
	setInt(&s.QuadtreeLevels, levels)
	setInt(&s.UndoDepth, undo)
	setInt(&s.Workers, workers)
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}
