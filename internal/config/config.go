package config

import (
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"strings"
	"time"

	"github.com/lvoegtlin/open-gms-sub000/internal/annotation"
	"github.com/lvoegtlin/open-gms-sub000/internal/command"
	"github.com/lvoegtlin/open-gms-sub000/internal/forest"
	"github.com/lvoegtlin/open-gms-sub000/internal/geom"
	"github.com/lvoegtlin/open-gms-sub000/internal/pipeline"
	"github.com/lvoegtlin/open-gms-sub000/internal/quadtree"
)

// Config is the fully resolved configuration.
type Config struct {
	Session  Session
	Types    []annotation.Type
	Renderer *Renderer
	Log      Log
}

// Session holds the numeric knobs of a session.
type Session struct {
	CutThreshold      float64
	HullTightness     int
	SimplifyTolerance float64
	QuadtreeCapacity  int
	QuadtreeLevels    int
	UndoDepth         int
	Workers           int
}

// Renderer is the socket.io endpoint region updates are pushed to.
type Renderer struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
	ConnectTimeout     time.Duration
}

// Log formats understood by the app logger.
const (
	FormatText = "text"
	FormatJSON = "json"
)

type Log struct {
	Level  string
	Format string
}

// SlogLevel parses Level. Besides the four level names it accepts slog
// offsets such as "debug-4" or "warn+2".
func (l Log) SlogLevel() (slog.Level, error) {
	var lv slog.Level
	if err := lv.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log level %q: %w", l.Level, err)
	}
	return lv, nil
}

func (l Log) validate() error {
	var errs []error
	if _, err := l.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if f := strings.ToLower(l.Format); f != FormatText && f != FormatJSON {
		errs = append(errs, fmt.Errorf("log format %q: want %q or %q", l.Format, FormatText, FormatJSON))
	}
	return errors.Join(errs...)
}

// DefaultTypes are registered when the file names none.
func DefaultTypes() []annotation.Type {
	return []annotation.Type{
		{Name: "text", Color: color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}},
		{Name: "image", Color: color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}},
	}
}

// Default returns the configuration used without a file.
func Default() *Config {
	return &Config{
		Session: Session{
			CutThreshold:      forest.DefaultCutThreshold,
			HullTightness:     geom.DefaultTightness,
			SimplifyTolerance: geom.HullTolerance,
			QuadtreeCapacity:  quadtree.DefaultMaxObjects,
			QuadtreeLevels:    quadtree.DefaultMaxLevels,
			UndoDepth:         command.DefaultUndoDepth,
			Workers:           pipeline.DefaultWorkers,
		},
		Types: DefaultTypes(),
		Log:   Log{Level: "info", Format: FormatText},
	}
}

// Settings projects the knobs commands consult.
func (c *Config) Settings() command.Settings {
	return command.Settings{
		Tightness:         c.Session.HullTightness,
		SimplifyTolerance: c.Session.SimplifyTolerance,
		UndoDepth:         c.Session.UndoDepth,
	}
}

// Validate reports every out-of-range value at once.
func (c *Config) Validate() error {
	var errs []error
	s := c.Session
	if s.CutThreshold <= 0 || s.CutThreshold >= 100 {
		errs = append(errs, fmt.Errorf("cut_threshold must be in (0, 100), got %g", s.CutThreshold))
	}
	if s.HullTightness < 3 {
		errs = append(errs, fmt.Errorf("hull_tightness must be at least 3, got %d", s.HullTightness))
	}
	if s.SimplifyTolerance < 0 {
		errs = append(errs, fmt.Errorf("simplify_tolerance must not be negative, got %g", s.SimplifyTolerance))
	}
	if s.QuadtreeCapacity < 1 {
		errs = append(errs, fmt.Errorf("quadtree_capacity must be positive, got %d", s.QuadtreeCapacity))
	}
	if s.QuadtreeLevels < 1 {
		errs = append(errs, fmt.Errorf("quadtree_levels must be positive, got %d", s.QuadtreeLevels))
	}
	if s.UndoDepth < 1 {
		errs = append(errs, fmt.Errorf("undo_depth must be positive, got %d", s.UndoDepth))
	}
	if s.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", s.Workers))
	}
	seen := make(map[string]bool)
	for _, t := range c.Types {
		if t.Name == "" {
			errs = append(errs, errors.New("annotation type without a name"))
		}
		if seen[t.Name] {
			errs = append(errs, fmt.Errorf("annotation type %q declared twice", t.Name))
		}
		seen[t.Name] = true
	}
	if c.Renderer != nil && c.Renderer.URL == "" {
		errs = append(errs, errors.New("renderer block needs a url"))
	}
	if err := c.Log.validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
