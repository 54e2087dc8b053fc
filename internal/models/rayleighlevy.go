package models

import (
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"github.com/MJE43/galaxy-fractals/internal/render"
	"github.com/MJE43/galaxy-fractals/internal/scripting"
)

const rayleighLevyMaxPoints = 50_000_000

// RayleighLevyConfig parameterises Mandelbrot's random-walk model.
type RayleighLevyConfig struct {
	// L0 is the characteristic length below which steps never occur.
	L0 float64
	// Df is the fractal dimension, the slope of the step-length density.
	Df float64
	// Walks start uniformly inside [-Box, Box]².
	Box float64
	// Candidate step lengths are drawn from [MinLength, MaxLength).
	MinLength float64
	MaxLength float64
	Steps     int
	Walks     int
	// Budget caps rejection-sampling draws per step.
	Budget int

	// BallScale multiplies each position's weight into a marker area;
	// StartBall is the marker area of each walk's first position.
	BallScale float64
	StartBall float64
}

// DefaultRayleighLevyConfig returns l0 = 5, Df = 1, five walks of 100 steps in
// a box of half-side 40.
func DefaultRayleighLevyConfig() RayleighLevyConfig {
	return RayleighLevyConfig{
		L0:        5,
		Df:        1,
		Box:       40,
		MinLength: 0.001,
		MaxLength: 40,
		Steps:     100,
		Walks:     5,
		Budget:    DefaultSampleBudget,
		BallScale: 1,
		StartBall: 10,
	}
}

// Validate checks the configuration.
func (c RayleighLevyConfig) Validate() error {
	switch {
	case !(c.L0 > 0):
		return fmt.Errorf("%w: rayleigh-levy l0 must be positive, got %v", ErrInvalidConfig, c.L0)
	case !(c.Df > 0):
		return fmt.Errorf("%w: rayleigh-levy Df must be positive, got %v", ErrInvalidConfig, c.Df)
	case !(c.Box > 0):
		return fmt.Errorf("%w: rayleigh-levy box must be positive, got %v", ErrInvalidConfig, c.Box)
	case c.MinLength < 0 || !(c.MaxLength > c.MinLength):
		return fmt.Errorf("%w: rayleigh-levy length range [%v, %v) is empty", ErrInvalidConfig, c.MinLength, c.MaxLength)
	case c.Steps < 0:
		return fmt.Errorf("%w: rayleigh-levy steps must be non-negative, got %d", ErrInvalidConfig, c.Steps)
	case c.Walks < 0:
		return fmt.Errorf("%w: rayleigh-levy walks must be non-negative, got %d", ErrInvalidConfig, c.Walks)
	case c.Budget <= 0:
		return fmt.Errorf("%w: rayleigh-levy budget must be positive, got %d", ErrInvalidConfig, c.Budget)
	case c.BallScale < 0 || c.StartBall < 0:
		return fmt.Errorf("%w: rayleigh-levy marker sizes must be non-negative", ErrInvalidConfig)
	}

	if (float64(c.Steps)+1)*math.Max(float64(c.Walks), 1) > rayleighLevyMaxPoints {
		return fmt.Errorf("%w: rayleigh-levy (steps+1)*walks = %d*%d exceeds %d points",
			ErrInvalidConfig, c.Steps+1, c.Walks, rayleighLevyMaxPoints)
	}
	return nil
}

// Walk is one Rayleigh-Lévy random walk.
type Walk struct {
	// Points holds the start and every position reached; Weight decreases
	// linearly from 1 at the start to 0 after the last step.
	Points []Point
	// Truncated is set when a step could not be sampled within the budget.
	Truncated bool
	Attempts  int
}

// RayleighLevyWalk draws one walk: a uniform start in the box, then Steps
// steps whose lengths follow density and whose directions are uniform. When
// the sampler exhausts its budget the walk ends early and is marked
// Truncated.
func RayleighLevyWalk(cfg RayleighLevyConfig, density Density, rng *rand.Rand) (Walk, error) {
	if err := cfg.Validate(); err != nil {
		return Walk{}, err
	}

	x := -cfg.Box + 2*cfg.Box*rng.Float64()
	y := -cfg.Box + 2*cfg.Box*rng.Float64()

	walk := Walk{Points: make([]Point, 0, cfg.Steps+1)}
	walk.Points = append(walk.Points, Point{X: x, Y: y, Weight: 1})

	for step := 0; step < cfg.Steps; step++ {
		sample, err := SampleFromPDF(rng, cfg.MinLength, cfg.MaxLength, density, 1, cfg.Budget)
		walk.Attempts += sample.Attempts
		if err != nil {
			return walk, err
		}
		if sample.Exhausted {
			walk.Truncated = true
			break
		}

		l := sample.Values[0]
		angle := 2 * math.Pi * rng.Float64()
		x, y = x+math.Cos(angle)*l, y+math.Sin(angle)*l

		walk.Points = append(walk.Points, Point{
			X:      x,
			Y:      y,
			Weight: 1 - float64(step+1)/float64(cfg.Steps),
		})
	}

	return walk, nil
}

// RayleighLevyWalks draws cfg.Walks independent walks from the same source.
func RayleighLevyWalks(cfg RayleighLevyConfig, density Density, rng *rand.Rand) ([]Walk, error) {
	walks := make([]Walk, 0, cfg.Walks)
	for i := 0; i < cfg.Walks; i++ {
		w, err := RayleighLevyWalk(cfg, density, rng)
		if err != nil {
			return walks, fmt.Errorf("walk %d: %w", i, err)
		}
		walks = append(walks, w)
	}
	return walks, nil
}

// RayleighLevyModel adapts RayleighLevyWalks to the model registry.
type RayleighLevyModel struct{}

// Spec returns metadata about the Rayleigh-Lévy model.
func (m *RayleighLevyModel) Spec() ModelSpec {
	return ModelSpec{
		ID:          "rayleigh-levy",
		Name:        "Rayleigh-Lévy random walk",
		Description: "Random walks with power-law distributed step lengths",
	}
}

// Config builds a RayleighLevyConfig from params. max_length defaults to the
// box size.
func (m *RayleighLevyModel) Config(params map[string]any) (RayleighLevyConfig, error) {
	cfg := DefaultRayleighLevyConfig()

	var err error
	if cfg.L0, err = floatParam(params, "l0", cfg.L0); err != nil {
		return cfg, err
	}
	if cfg.Df, err = floatParam(params, "df", cfg.Df); err != nil {
		return cfg, err
	}
	if cfg.Box, err = floatParam(params, "box", cfg.Box); err != nil {
		return cfg, err
	}
	if cfg.MinLength, err = floatParam(params, "min_length", cfg.MinLength); err != nil {
		return cfg, err
	}
	if cfg.MaxLength, err = floatParam(params, "max_length", cfg.Box); err != nil {
		return cfg, err
	}
	if cfg.Steps, err = intParam(params, "steps", cfg.Steps); err != nil {
		return cfg, err
	}
	if cfg.Walks, err = intParam(params, "walks", cfg.Walks); err != nil {
		return cfg, err
	}
	if cfg.Budget, err = intParam(params, "budget", cfg.Budget); err != nil {
		return cfg, err
	}
	if cfg.BallScale, err = floatParam(params, "ball_scale", cfg.BallScale); err != nil {
		return cfg, err
	}
	if cfg.StartBall, err = floatParam(params, "start_ball", cfg.StartBall); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

// Density returns the step-length density for params: the power law, or the
// density() function of the script named by density_script (a file path) or
// given inline as density_source.
func (m *RayleighLevyModel) Density(cfg RayleighLevyConfig, params map[string]any) (Density, error) {
	source, err := stringParam(params, "density_source", "")
	if err != nil {
		return nil, err
	}

	path, err := stringParam(params, "density_script", "")
	if err != nil {
		return nil, err
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read density script: %w", err)
		}
		source = string(data)
	}

	if source == "" {
		return PowerLawDensity(cfg.L0, cfg.Df), nil
	}

	d, err := scripting.NewDensity(source, map[string]any{
		"l0":  cfg.L0,
		"Df":  cfg.Df,
		"box": cfg.Box,
	})
	if err != nil {
		return nil, fmt.Errorf("load density script: %w", err)
	}
	return d, nil
}

// Generate draws the walks, one layer per walk.
func (m *RayleighLevyModel) Generate(rng *rand.Rand, params map[string]any) (*Result, error) {
	cfg, err := m.Config(params)
	if err != nil {
		return nil, err
	}

	density, err := m.Density(cfg, params)
	if err != nil {
		return nil, err
	}

	walks, err := RayleighLevyWalks(cfg, density, rng)
	if err != nil {
		return nil, err
	}

	res := &Result{Model: m.Spec().ID, Layers: make([]Layer, len(walks))}
	for i, w := range walks {
		res.Layers[i] = Layer{
			Label:  fmt.Sprintf("walk %d", i),
			Level:  i,
			Points: w.Points,
		}
		res.Attempts += w.Attempts
		res.Truncated = res.Truncated || w.Truncated
	}

	if d, ok := density.(*scripting.Density); ok {
		for _, entry := range d.GetLogs() {
			res.Logs = append(res.Logs, entry.Message)
		}
	}

	return res, nil
}

// Plot draws each walk in the next colour of the cycle with markers shrinking
// along the walk.
func (m *RayleighLevyModel) Plot(res *Result, params map[string]any) (*render.Plot, error) {
	cfg, err := m.Config(params)
	if err != nil {
		return nil, err
	}

	plot := render.NewPlot()
	for i, layer := range res.Layers {
		c := render.Cycle(i)
		markers := make([]render.Marker, len(layer.Points))
		for j, p := range layer.Points {
			area := p.Weight * cfg.BallScale
			if j == 0 {
				area = cfg.StartBall
			}
			markers[j] = render.Marker{X: p.X, Y: p.Y, Area: area, Color: c}
		}
		plot.AddLayer(render.Layer{Label: layer.Label, Markers: markers})
	}

	return plot, nil
}

// FileName embeds l0 and Df (as integers), the step and walk counts and the
// seed. A scripted density adds its script name.
func (m *RayleighLevyModel) FileName(params map[string]any, seed uint64) (string, error) {
	cfg, err := m.Config(params)
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("rayleigh_levy_fractal_l0_%s_Df_%s_n_steps_%d_n_walks_%d_seed_%d",
		whole(cfg.L0), whole(cfg.Df), cfg.Steps, cfg.Walks, seed)

	path, err := stringParam(params, "density_script", "")
	if err != nil {
		return "", err
	}
	if path != "" {
		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		return name + "_density_" + base, nil
	}

	src, err := stringParam(params, "density_source", "")
	if err != nil {
		return "", err
	}
	if src != "" {
		name += "_density_inline"
	}

	return name, nil
}
