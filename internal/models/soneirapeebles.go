package models

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/MJE43/galaxy-fractals/internal/render"
)

const soneiraPeeblesMaxPoints = 50_000_000

// SoneiraPeeblesConfig parameterises the hierarchical clustering model.
type SoneiraPeeblesConfig struct {
	// R0 is the radius of the root disk.
	R0 float64
	// Eta is the number of children per point, or their mean when EtaRandom.
	Eta int
	// Lambda divides the radius at each level.
	Lambda    float64
	Levels    int
	EtaRandom bool

	// Rendering.
	ShowScatter bool
	ShowCircles bool
	MarkerArea  float64 // root marker area; level k uses MarkerArea·(R_k/R0)²
	Alpha       float64
	CircleAlpha float64
	Colors      []string
}

// DefaultSoneiraPeeblesConfig returns five levels of five children with the
// radius halved at each level.
func DefaultSoneiraPeeblesConfig() SoneiraPeeblesConfig {
	return SoneiraPeeblesConfig{
		R0:          1000,
		Eta:         5,
		Lambda:      2,
		Levels:      5,
		EtaRandom:   false,
		ShowScatter: true,
		ShowCircles: false,
		MarkerArea:  100,
		Alpha:       0.5,
		CircleAlpha: 0.3,
		Colors:      []string{"cyan", "r", "b", "g", "purple", "m", "k"},
	}
}

// Validate checks the configuration, including that the expected point count
// stays bounded.
func (c SoneiraPeeblesConfig) Validate() error {
	switch {
	case !(c.R0 > 0):
		return fmt.Errorf("%w: soneira-peebles R0 must be positive, got %v", ErrInvalidConfig, c.R0)
	case !(c.Lambda > 1):
		return fmt.Errorf("%w: soneira-peebles lambda must exceed 1, got %v", ErrInvalidConfig, c.Lambda)
	case c.Eta < 0:
		return fmt.Errorf("%w: soneira-peebles eta must be non-negative, got %d", ErrInvalidConfig, c.Eta)
	case c.Levels < 0:
		return fmt.Errorf("%w: soneira-peebles levels must be non-negative, got %d", ErrInvalidConfig, c.Levels)
	case c.Alpha < 0 || c.Alpha > 1 || c.CircleAlpha < 0 || c.CircleAlpha > 1:
		return fmt.Errorf("%w: soneira-peebles alpha must be in [0, 1]", ErrInvalidConfig)
	case len(c.Colors) == 0:
		return fmt.Errorf("%w: soneira-peebles needs at least one color", ErrInvalidConfig)
	}

	if float64(c.Levels)*math.Log(math.Max(float64(c.Eta), 1)) > math.Log(soneiraPeeblesMaxPoints) {
		return fmt.Errorf("%w: soneira-peebles eta^levels = %d^%d exceeds %d points",
			ErrInvalidConfig, c.Eta, c.Levels, soneiraPeeblesMaxPoints)
	}

	for _, name := range c.Colors {
		if _, err := render.Named(name); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	return nil
}

// RadiusAt returns R0 / Lambda^level.
func (c SoneiraPeeblesConfig) RadiusAt(level int) float64 {
	return c.R0 / math.Pow(c.Lambda, float64(level))
}

// SoneiraPeebles builds the hierarchy. Level 0 is the root at the origin with
// radius R0. Each point of level k-1 receives Eta children (a Poisson(Eta)
// number when EtaRandom) spread uniformly over the disk of radius R_{k-1}
// around it; level k has radius R_k = R0 / Lambda^k. Each layer's Parents
// indexes the previous layer.
func SoneiraPeebles(cfg SoneiraPeeblesConfig, rng *rand.Rand) ([]Layer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	levels := make([]Layer, 0, cfg.Levels+1)
	levels = append(levels, Layer{
		Label:  "level 0",
		Level:  0,
		Radius: cfg.R0,
		Points: []Point{{X: 0, Y: 0}},
	})

	for k := 1; k <= cfg.Levels; k++ {
		parents := levels[k-1]
		rParent := parents.Radius

		layer := Layer{
			Label:  fmt.Sprintf("level %d", k),
			Level:  k,
			Radius: cfg.RadiusAt(k),
		}

		for pi, parent := range parents.Points {
			n := cfg.Eta
			if cfg.EtaRandom {
				n = Poisson(rng, float64(cfg.Eta))
			}
			for i := 0; i < n; i++ {
				theta := 2 * math.Pi * rng.Float64()
				rho := rParent * math.Sqrt(rng.Float64())
				layer.Points = append(layer.Points, Point{
					X: parent.X + rho*math.Cos(theta),
					Y: parent.Y + rho*math.Sin(theta),
				})
				layer.Parents = append(layer.Parents, pi)
			}
		}

		levels = append(levels, layer)
	}

	return levels, nil
}

// SoneiraPeeblesModel adapts SoneiraPeebles to the model registry.
type SoneiraPeeblesModel struct{}

// Spec returns metadata about the Soneira-Peebles model.
func (m *SoneiraPeeblesModel) Spec() ModelSpec {
	return ModelSpec{
		ID:          "soneira-peebles",
		Name:        "Soneira-Peebles hierarchy",
		Description: "Hierarchical clustering with children scattered in shrinking disks",
	}
}

// Config builds a SoneiraPeeblesConfig from params.
func (m *SoneiraPeeblesModel) Config(params map[string]any) (SoneiraPeeblesConfig, error) {
	cfg := DefaultSoneiraPeeblesConfig()

	var err error
	if cfg.R0, err = floatParam(params, "r0", cfg.R0); err != nil {
		return cfg, err
	}
	if cfg.Eta, err = intParam(params, "eta", cfg.Eta); err != nil {
		return cfg, err
	}
	if cfg.Lambda, err = floatParam(params, "lambda", cfg.Lambda); err != nil {
		return cfg, err
	}
	if cfg.Levels, err = intParam(params, "levels", cfg.Levels); err != nil {
		return cfg, err
	}
	if cfg.EtaRandom, err = boolParam(params, "eta_random", cfg.EtaRandom); err != nil {
		return cfg, err
	}
	if cfg.ShowScatter, err = boolParam(params, "show_scatter", cfg.ShowScatter); err != nil {
		return cfg, err
	}
	if cfg.ShowCircles, err = boolParam(params, "show_circles", cfg.ShowCircles); err != nil {
		return cfg, err
	}
	if cfg.MarkerArea, err = floatParam(params, "marker_area", cfg.MarkerArea); err != nil {
		return cfg, err
	}
	if cfg.Alpha, err = floatParam(params, "alpha", cfg.Alpha); err != nil {
		return cfg, err
	}
	if cfg.CircleAlpha, err = floatParam(params, "circle_alpha", cfg.CircleAlpha); err != nil {
		return cfg, err
	}
	if cfg.Colors, err = stringsParam(params, "colors", cfg.Colors); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

// Generate builds the hierarchy, one layer per level.
func (m *SoneiraPeeblesModel) Generate(rng *rand.Rand, params map[string]any) (*Result, error) {
	cfg, err := m.Config(params)
	if err != nil {
		return nil, err
	}

	levels, err := SoneiraPeebles(cfg, rng)
	if err != nil {
		return nil, err
	}

	return &Result{Model: m.Spec().ID, Layers: levels}, nil
}

// Plot draws each level in its own colour. Circles, when enabled, show the
// disk of radius R_k around every point of level k and fix the view to
// ±(R0 + R0/Lambda).
func (m *SoneiraPeeblesModel) Plot(res *Result, params map[string]any) (*render.Plot, error) {
	cfg, err := m.Config(params)
	if err != nil {
		return nil, err
	}

	plot := render.NewPlot()

	for _, layer := range res.Layers {
		base, err := render.Named(cfg.Colors[layer.Level%len(cfg.Colors)])
		if err != nil {
			return nil, err
		}

		if cfg.ShowCircles {
			alpha := cfg.CircleAlpha
			if layer.Level == 0 {
				alpha = 0.1
			}
			circles := make([]render.Marker, len(layer.Points))
			for i, p := range layer.Points {
				circles[i] = render.Marker{X: p.X, Y: p.Y, DataRadius: layer.Radius, Color: render.WithAlpha(base, alpha)}
			}
			plot.AddLayer(render.Layer{Label: layer.Label + " disks", Markers: circles})
		}

		if cfg.ShowScatter {
			area := cfg.MarkerArea * math.Pow(layer.Radius/cfg.R0, 2)
			markers := make([]render.Marker, len(layer.Points))
			for i, p := range layer.Points {
				markers[i] = render.Marker{X: p.X, Y: p.Y, Area: area, Color: render.WithAlpha(base, cfg.Alpha)}
			}
			plot.AddLayer(render.Layer{Label: layer.Label, Markers: markers})
		}
	}

	if cfg.ShowCircles {
		dim := cfg.R0 + cfg.R0/cfg.Lambda
		plot.View = &render.Rect{MinX: -dim, MinY: -dim, MaxX: dim, MaxY: dim}
	}

	return plot, nil
}

// FileName embeds levels, eta, lambda, the seed and the branching toggle.
func (m *SoneiraPeeblesModel) FileName(params map[string]any, seed uint64) (string, error) {
	cfg, err := m.Config(params)
	if err != nil {
		return "", err
	}

	random := 0
	if cfg.EtaRandom {
		random = 1
	}

	return fmt.Sprintf("soneirapeebles_levels_%d_eta_%d_lambda_%s_seed_%d_eta_random_%d",
		cfg.Levels, cfg.Eta, plain(cfg.Lambda), seed, random), nil
}
