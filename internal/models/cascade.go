package models

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/MJE43/galaxy-fractals/internal/render"
)

const (
	cascadeMaxSteps          = 12 // 4^13 points
	cascadeDefaultSteps      = 8
	cascadeDefaultThreshold  = 1e-5
	cascadeDefaultLogFloor   = -5
	cascadeDefaultMarkerArea = 2
	cascadeDefaultColormap   = "Greys"
)

// CascadeConfig parameterises the multiplicative cascade.
type CascadeConfig struct {
	// The square [LMin, LMax]² whose corners seed the process.
	LMin, LMax float64
	// Probs are the four per-quadrant factors p1..p4.
	Probs [4]float64
	Steps int
	// Probabilities at or below LogThreshold are drawn with LogFloor
	// instead of their base-10 logarithm.
	LogThreshold float64
	LogFloor     float64
	MarkerArea   float64
	// Colormap names the render colormap for the log-probabilities.
	Colormap string
}

// DefaultCascadeConfig returns the multifractal setup: a 10×10 square, factors
// 1, 0.75, 0.5, 0.25 and eight steps.
func DefaultCascadeConfig() CascadeConfig {
	return CascadeConfig{
		LMin:         0,
		LMax:         10,
		Probs:        [4]float64{1, 0.75, 0.5, 0.25},
		Steps:        cascadeDefaultSteps,
		LogThreshold: cascadeDefaultThreshold,
		LogFloor:     cascadeDefaultLogFloor,
		MarkerArea:   cascadeDefaultMarkerArea,
		Colormap:     cascadeDefaultColormap,
	}
}

// Validate checks the configuration.
func (c CascadeConfig) Validate() error {
	if !(c.LMax > c.LMin) {
		return fmt.Errorf("%w: cascade lmax %v must exceed lmin %v", ErrInvalidConfig, c.LMax, c.LMin)
	}
	if c.Steps < 0 || c.Steps > cascadeMaxSteps {
		return fmt.Errorf("%w: cascade steps must be between 0 and %d, got %d", ErrInvalidConfig, cascadeMaxSteps, c.Steps)
	}
	for i, p := range c.Probs {
		if p < 0 || p > 1 || math.IsNaN(p) {
			return fmt.Errorf("%w: cascade p%d must be in [0, 1], got %v", ErrInvalidConfig, i+1, p)
		}
	}
	if c.LogThreshold < 0 {
		return fmt.Errorf("%w: cascade log threshold must be non-negative, got %v", ErrInvalidConfig, c.LogThreshold)
	}
	if _, err := render.ColormapByName(c.Colormap); err != nil {
		return fmt.Errorf("%w: cascade %v", ErrInvalidConfig, err)
	}
	return nil
}

// Cascade runs the multiplicative process. Every step replaces each point by
// four children at the corners of a cell half the previous size; the factors
// p1..p4 are shuffled per parent, multiplied by the parent's probability and
// handed to the children in shuffled order. The result has 4^(Steps+1)
// points and each probability is a product of Steps+1 factors.
func Cascade(cfg CascadeConfig, rng *rand.Rand) ([]Point, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	lo, hi := cfg.LMin, cfg.LMax
	points := []Point{
		{X: lo, Y: lo, Weight: cfg.Probs[0]},
		{X: hi, Y: lo, Weight: cfg.Probs[1]},
		{X: lo, Y: hi, Weight: cfg.Probs[2]},
		{X: hi, Y: hi, Weight: cfg.Probs[3]},
	}

	side := hi - lo
	for step := 0; step < cfg.Steps; step++ {
		delta := math.Ldexp(side, -(step + 1))
		next := make([]Point, 0, 4*len(points))

		for _, p := range points {
			perm := rng.Perm(4)
			x1, x2 := p.X, p.X+delta
			y1, y2 := p.Y, p.Y+delta

			next = append(next,
				Point{X: x1, Y: y1, Weight: cfg.Probs[perm[0]] * p.Weight},
				Point{X: x2, Y: y1, Weight: cfg.Probs[perm[1]] * p.Weight},
				Point{X: x1, Y: y2, Weight: cfg.Probs[perm[2]] * p.Weight},
				Point{X: x2, Y: y2, Weight: cfg.Probs[perm[3]] * p.Weight},
			)
		}

		points = next
	}

	return points, nil
}

// LogProbability maps p to log10(p), or to floor when p <= threshold. It never
// takes the logarithm of a non-positive value as long as threshold >= 0.
func LogProbability(p, threshold, floor float64) float64 {
	if p <= threshold || p <= 0 {
		return floor
	}
	return math.Log10(p)
}

// CascadeModel adapts Cascade to the model registry.
type CascadeModel struct{}

// Spec returns metadata about the cascade model.
func (m *CascadeModel) Spec() ModelSpec {
	return ModelSpec{
		ID:          "cascade",
		Name:        "Multiplicative cascade",
		Description: "Multiplicative random process on a recursively subdivided square",
	}
}

// Config builds a CascadeConfig from params, starting from the defaults.
func (m *CascadeModel) Config(params map[string]any) (CascadeConfig, error) {
	cfg := DefaultCascadeConfig()

	var err error
	if cfg.LMin, err = floatParam(params, "lmin", cfg.LMin); err != nil {
		return cfg, err
	}
	if cfg.LMax, err = floatParam(params, "lmax", cfg.LMax); err != nil {
		return cfg, err
	}
	for i := range cfg.Probs {
		if cfg.Probs[i], err = floatParam(params, fmt.Sprintf("p%d", i+1), cfg.Probs[i]); err != nil {
			return cfg, err
		}
	}
	if cfg.Steps, err = intParam(params, "steps", cfg.Steps); err != nil {
		return cfg, err
	}
	if cfg.LogThreshold, err = floatParam(params, "log_threshold", cfg.LogThreshold); err != nil {
		return cfg, err
	}
	if cfg.LogFloor, err = floatParam(params, "log_floor", cfg.LogFloor); err != nil {
		return cfg, err
	}
	if cfg.MarkerArea, err = floatParam(params, "marker_area", cfg.MarkerArea); err != nil {
		return cfg, err
	}
	if cfg.Colormap, err = stringParam(params, "cmap", cfg.Colormap); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

// Generate runs the cascade and returns a single layer.
func (m *CascadeModel) Generate(rng *rand.Rand, params map[string]any) (*Result, error) {
	cfg, err := m.Config(params)
	if err != nil {
		return nil, err
	}

	points, err := Cascade(cfg, rng)
	if err != nil {
		return nil, err
	}

	return &Result{
		Model: m.Spec().ID,
		Layers: []Layer{{
			Label:  fmt.Sprintf("step %d", cfg.Steps),
			Level:  cfg.Steps,
			Points: points,
		}},
	}, nil
}

// Plot colours every point by its log-probability on the configured
// colormap, Greys by default.
func (m *CascadeModel) Plot(res *Result, params map[string]any) (*render.Plot, error) {
	cfg, err := m.Config(params)
	if err != nil {
		return nil, err
	}
	cmap, err := render.ColormapByName(cfg.Colormap)
	if err != nil {
		return nil, err
	}

	plot := render.NewPlot()
	for _, layer := range res.Layers {
		logs := make([]float64, len(layer.Points))
		for i, p := range layer.Points {
			logs[i] = LogProbability(p.Weight, cfg.LogThreshold, cfg.LogFloor)
		}
		shades := render.Normalize(logs)

		markers := make([]render.Marker, len(layer.Points))
		for i, p := range layer.Points {
			markers[i] = render.Marker{
				X:     p.X,
				Y:     p.Y,
				Area:  cfg.MarkerArea,
				Color: cmap(shades[i]),
			}
		}
		plot.AddLayer(render.Layer{Label: layer.Label, Markers: markers})
	}

	return plot, nil
}

// FileName embeds the step count, the four factors and the seed.
func (m *CascadeModel) FileName(params map[string]any, seed uint64) (string, error) {
	cfg, err := m.Config(params)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("multiplicative_levels_%d_probs_%s_%s_%s_%s_seed_%d",
		cfg.Steps,
		fixed(cfg.Probs[0], 2), fixed(cfg.Probs[1], 2), fixed(cfg.Probs[2], 2), fixed(cfg.Probs[3], 2),
		seed,
	), nil
}
