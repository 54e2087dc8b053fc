package models

import (
	"math"
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, 0x9e3779b97f4a7c15))
}

func TestCascadePointCount(t *testing.T) {
	for steps := 0; steps <= 5; steps++ {
		cfg := DefaultCascadeConfig()
		cfg.Steps = steps

		points, err := Cascade(cfg, testRand(1))
		require.NoError(t, err)
		assert.Len(t, points, 1<<(2*(steps+1)), "steps=%d", steps)
	}
}

func TestCascadeZeroStepsReturnsSeeds(t *testing.T) {
	cfg := DefaultCascadeConfig()
	cfg.Steps = 0

	points, err := Cascade(cfg, testRand(7))
	require.NoError(t, err)

	assert.Equal(t, []Point{
		{X: 0, Y: 0, Weight: 1},
		{X: 10, Y: 0, Weight: 0.75},
		{X: 0, Y: 10, Weight: 0.5},
		{X: 10, Y: 10, Weight: 0.25},
	}, points)
}

func TestCascadeWeightsArePairwiseProducts(t *testing.T) {
	cfg := DefaultCascadeConfig()
	cfg.Probs = [4]float64{1.0 / 2, 1.0 / 3, 1.0 / 5, 1.0 / 7}
	cfg.Steps = 1

	points, err := Cascade(cfg, testRand(3))
	require.NoError(t, err)

	// Whatever the permutation, each parent hands out every factor once.
	var want []float64
	for _, a := range cfg.Probs {
		for _, b := range cfg.Probs {
			want = append(want, a*b)
		}
	}
	got := make([]float64, len(points))
	for i, p := range points {
		got[i] = p.Weight
	}
	sort.Float64s(want)
	sort.Float64s(got)

	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-15)
	}
}

func TestCascadeWeightsFactorIntoStepPlusOneFactors(t *testing.T) {
	cfg := DefaultCascadeConfig()
	cfg.Probs = [4]float64{1.0 / 2, 1.0 / 3, 1.0 / 5, 1.0 / 7}
	cfg.Steps = 3

	points, err := Cascade(cfg, testRand(5))
	require.NoError(t, err)
	require.Len(t, points, 256)

	primes := []int{2, 3, 5, 7}
	inverse := make([]int, len(points))
	for i, p := range points {
		n := int(math.Round(1 / p.Weight))
		require.InDelta(t, 1/float64(n), p.Weight, 1e-15)
		inverse[i] = n

		factors := 0
		for _, q := range primes {
			for n%q == 0 {
				n /= q
				factors++
			}
		}
		assert.Equal(t, 1, n, "point %d has a factor outside p1..p4", i)
		assert.Equal(t, cfg.Steps+1, factors, "point %d", i)
	}

	gcd := func(a, b int) int {
		for b != 0 {
			a, b = b, a%b
		}
		return a
	}

	// Siblings share their parent's product and split p1..p4 between them.
	for i := 0; i < len(inverse); i += 4 {
		group := inverse[i : i+4]
		g := group[0]
		for _, n := range group[1:] {
			g = gcd(g, n)
		}
		ratios := make([]int, 4)
		for j, n := range group {
			ratios[j] = n / g
		}
		sort.Ints(ratios)
		assert.Equal(t, primes, ratios, "siblings %d..%d", i, i+3)
	}
}

func TestCascadeTotalWeight(t *testing.T) {
	cfg := DefaultCascadeConfig()
	cfg.Steps = 4

	points, err := Cascade(cfg, testRand(11))
	require.NoError(t, err)

	sum := 0.0
	for _, p := range points {
		sum += p.Weight
	}
	// (1 + 0.75 + 0.5 + 0.25)^(steps+1)
	assert.InDelta(t, math.Pow(2.5, 5), sum, 1e-9)
}

func TestCascadeCellSpacing(t *testing.T) {
	cfg := DefaultCascadeConfig()
	cfg.Steps = 3

	points, err := Cascade(cfg, testRand(5))
	require.NoError(t, err)

	grid := 10.0 / 8
	for _, p := range points {
		assert.InDelta(t, 0, math.Remainder(p.X, grid), 1e-9)
		assert.InDelta(t, 0, math.Remainder(p.Y, grid), 1e-9)
	}
}

func TestCascadeDeterministic(t *testing.T) {
	cfg := DefaultCascadeConfig()
	cfg.Steps = 3

	a, err := Cascade(cfg, testRand(42))
	require.NoError(t, err)
	b, err := Cascade(cfg, testRand(42))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCascadeValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*CascadeConfig)
	}{
		{"empty square", func(c *CascadeConfig) { c.LMax = c.LMin }},
		{"negative steps", func(c *CascadeConfig) { c.Steps = -1 }},
		{"too many steps", func(c *CascadeConfig) { c.Steps = cascadeMaxSteps + 1 }},
		{"probability above one", func(c *CascadeConfig) { c.Probs[2] = 1.5 }},
		{"negative probability", func(c *CascadeConfig) { c.Probs[0] = -0.1 }},
		{"NaN probability", func(c *CascadeConfig) { c.Probs[3] = math.NaN() }},
		{"unknown colormap", func(c *CascadeConfig) { c.Colormap = "viridis-ish" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultCascadeConfig()
			tt.modify(&cfg)
			_, err := Cascade(cfg, testRand(1))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLogProbability(t *testing.T) {
	tests := []struct {
		p    float64
		want float64
	}{
		{1, 0},
		{0.01, -2},
		{1e-5, -5},
		{1e-9, -5},
		{0, -5},
		{-1, -5},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, LogProbability(tt.p, 1e-5, -5), 1e-12, "p=%v", tt.p)
	}
}

func TestCascadeModelPlotShadesByProbability(t *testing.T) {
	m := &CascadeModel{}
	params := map[string]any{"steps": 0}

	res, err := m.Generate(testRand(1), params)
	require.NoError(t, err)
	require.Len(t, res.Layers, 1)
	assert.Equal(t, 4, res.PointCount())

	plot, err := m.Plot(res, params)
	require.NoError(t, err)
	require.Len(t, plot.Layers, 1)

	markers := plot.Layers[0].Markers
	require.Len(t, markers, 4)
	// Probability 1 is the darkest point, 0.25 the lightest.
	assert.Less(t, markers[0].Color.R, markers[3].Color.R)
	assert.Equal(t, uint8(0), markers[0].Color.R)
	assert.Equal(t, uint8(255), markers[3].Color.R)
}

func TestCascadeModelPlotColormap(t *testing.T) {
	m := &CascadeModel{}
	params := map[string]any{"steps": 0, "cmap": "Greys_r"}

	res, err := m.Generate(testRand(1), params)
	require.NoError(t, err)

	plot, err := m.Plot(res, params)
	require.NoError(t, err)

	markers := plot.Layers[0].Markers
	require.Len(t, markers, 4)
	assert.Equal(t, uint8(255), markers[0].Color.R)
	assert.Equal(t, uint8(0), markers[3].Color.R)

	_, err = m.Config(map[string]any{"cmap": "nope"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestCascadeFileName(t *testing.T) {
	m := &CascadeModel{}

	name, err := m.FileName(nil, 3)
	require.NoError(t, err)
	assert.Equal(t, "multiplicative_levels_8_probs_1.00_0.75_0.50_0.25_seed_3", name)

	name, err = m.FileName(map[string]any{"steps": 2.0, "p2": "0.333"}, 0)
	require.NoError(t, err)
	assert.Equal(t, "multiplicative_levels_2_probs_1.00_0.33_0.50_0.25_seed_0", name)

	_, err = m.FileName(map[string]any{"steps": 2.5}, 0)
	assert.ErrorIs(t, err, ErrInvalidParam)
}
