package models

import (
	"math/rand/v2"
	"sort"

	"github.com/MJE43/galaxy-fractals/internal/render"
)

// Model is a fractal point process that can be generated, plotted and named.
type Model interface {
	// Spec returns metadata about the model
	Spec() ModelSpec

	// Generate draws one point set from rng using the given parameters
	Generate(rng *rand.Rand, params map[string]any) (*Result, error)

	// Plot turns a generated point set into a figure
	Plot(res *Result, params map[string]any) (*render.Plot, error)

	// FileName returns the output name (without extension) for a run
	FileName(params map[string]any, seed uint64) (string, error)
}

// ModelSpec describes a registered model
type ModelSpec struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Point is a 2D coordinate with an auxiliary scalar used for rendering only:
// a probability (cascade) or a ball-size weight (random walk).
type Point struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Weight float64 `json:"weight"`
}

// Layer is one group of points: the whole cascade, one walk, or one level of
// a hierarchy.
type Layer struct {
	Label  string  `json:"label"`
	Level  int     `json:"level"`
	Radius float64 `json:"radius,omitempty"`
	Points []Point `json:"points"`
	// Parents holds, for each point, the index of its parent in the
	// previous layer. Only hierarchical models fill it.
	Parents []int `json:"parents,omitempty"`
}

// Result is the outcome of one generation pass.
type Result struct {
	Model string `json:"model"`
	// Seed is filled in by the caller that owns the random source.
	Seed   uint64  `json:"seed"`
	Layers []Layer `json:"layers"`
	// Truncated reports that a sampling budget ran out and some layers are
	// shorter than requested.
	Truncated bool `json:"truncated,omitempty"`
	// Attempts counts rejection-sampling draws, when the model samples.
	Attempts int `json:"attempts,omitempty"`
	// Logs holds output a scripted component wrote with log or console.log.
	Logs []string `json:"logs,omitempty"`
}

// PointCount returns the number of points over all layers.
func (r *Result) PointCount() int {
	n := 0
	for _, l := range r.Layers {
		n += len(l.Points)
	}
	return n
}

// ModelRegistry holds all available models
var ModelRegistry = make(map[string]Model)

// RegisterModel adds a model to the registry
func RegisterModel(m Model) {
	ModelRegistry[m.Spec().ID] = m
}

// GetModel retrieves a model by ID
func GetModel(id string) (Model, bool) {
	m, exists := ModelRegistry[id]
	return m, exists
}

// ListModels returns all registered model specs sorted by ID
func ListModels() []ModelSpec {
	specs := make([]ModelSpec, 0, len(ModelRegistry))
	for _, m := range ModelRegistry {
		specs = append(specs, m.Spec())
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].ID < specs[j].ID })
	return specs
}

func init() {
	RegisterModel(&CascadeModel{})
	RegisterModel(&RayleighLevyModel{})
	RegisterModel(&SoneiraPeeblesModel{})
}
