package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MJE43/galaxy-fractals/internal/engine"
)

func TestSoneiraPeeblesCounts(t *testing.T) {
	cfg := DefaultSoneiraPeeblesConfig()
	cfg.Levels = 4
	cfg.Eta = 3

	levels, err := SoneiraPeebles(cfg, testRand(1))
	require.NoError(t, err)
	require.Len(t, levels, 5)

	want := 1
	for k, layer := range levels {
		assert.Equal(t, k, layer.Level)
		assert.Len(t, layer.Points, want, "level %d", k)
		want *= cfg.Eta
	}
}

func TestSoneiraPeeblesRootOnly(t *testing.T) {
	cfg := DefaultSoneiraPeeblesConfig()
	cfg.Levels = 0

	levels, err := SoneiraPeebles(cfg, testRand(2))
	require.NoError(t, err)
	require.Len(t, levels, 1)
	assert.Equal(t, []Point{{X: 0, Y: 0}}, levels[0].Points)
	assert.Equal(t, cfg.R0, levels[0].Radius)
	assert.Empty(t, levels[0].Parents)
}

func TestSoneiraPeeblesRadii(t *testing.T) {
	cfg := DefaultSoneiraPeeblesConfig()
	cfg.Lambda = 1.7

	levels, err := SoneiraPeebles(cfg, testRand(3))
	require.NoError(t, err)
	for k, layer := range levels {
		assert.InDelta(t, cfg.R0/math.Pow(cfg.Lambda, float64(k)), layer.Radius, 1e-9)
	}
}

func TestSoneiraPeeblesChildrenInsideParentDisk(t *testing.T) {
	cfg := DefaultSoneiraPeeblesConfig()
	cfg.Levels = 4

	levels, err := SoneiraPeebles(cfg, testRand(4))
	require.NoError(t, err)

	for k := 1; k < len(levels); k++ {
		layer, parents := levels[k], levels[k-1]
		require.Len(t, layer.Parents, len(layer.Points))
		for i, p := range layer.Points {
			parent := parents.Points[layer.Parents[i]]
			assert.LessOrEqual(t, math.Hypot(p.X-parent.X, p.Y-parent.Y), parents.Radius+1e-9)
		}
	}
}

func TestSoneiraPeeblesZeroEta(t *testing.T) {
	cfg := DefaultSoneiraPeeblesConfig()
	cfg.Eta = 0

	levels, err := SoneiraPeebles(cfg, testRand(5))
	require.NoError(t, err)
	require.Len(t, levels, cfg.Levels+1)
	for _, layer := range levels[1:] {
		assert.Empty(t, layer.Points)
	}
}

func TestSoneiraPeeblesRandomBranching(t *testing.T) {
	cfg := DefaultSoneiraPeeblesConfig()
	cfg.Levels = 1
	cfg.Eta = 4
	cfg.EtaRandom = true

	total := 0
	const runs = 2000
	rng := testRand(6)
	for i := 0; i < runs; i++ {
		levels, err := SoneiraPeebles(cfg, rng)
		require.NoError(t, err)
		total += len(levels[1].Points)
	}
	assert.InDelta(t, 4.0, float64(total)/runs, 0.2)
}

func TestSoneiraPeeblesDeterministicWithStream(t *testing.T) {
	cfg := DefaultSoneiraPeeblesConfig()
	cfg.Levels = 3

	a, err := SoneiraPeebles(cfg, engine.NewRand(engine.KindHMAC, "soneira-peebles", 7))
	require.NoError(t, err)
	b, err := SoneiraPeebles(cfg, engine.NewRand(engine.KindHMAC, "soneira-peebles", 7))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := SoneiraPeebles(cfg, engine.NewRand(engine.KindHMAC, "soneira-peebles", 8))
	require.NoError(t, err)
	assert.NotEqual(t, a[1].Points, c[1].Points)
}

func TestSoneiraPeeblesValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*SoneiraPeeblesConfig)
	}{
		{"zero radius", func(c *SoneiraPeeblesConfig) { c.R0 = 0 }},
		{"zero lambda", func(c *SoneiraPeeblesConfig) { c.Lambda = 0 }},
		{"lambda one", func(c *SoneiraPeeblesConfig) { c.Lambda = 1 }},
		{"shrinking lambda", func(c *SoneiraPeeblesConfig) { c.Lambda = 0.5 }},
		{"negative eta", func(c *SoneiraPeeblesConfig) { c.Eta = -1 }},
		{"negative levels", func(c *SoneiraPeeblesConfig) { c.Levels = -1 }},
		{"too many points", func(c *SoneiraPeeblesConfig) { c.Eta, c.Levels = 10, 9 }},
		{"alpha above one", func(c *SoneiraPeeblesConfig) { c.Alpha = 2 }},
		{"no colors", func(c *SoneiraPeeblesConfig) { c.Colors = nil }},
		{"unknown color", func(c *SoneiraPeeblesConfig) { c.Colors = []string{"r", "chartreuse-ish"} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultSoneiraPeeblesConfig()
			tt.modify(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestPoisson(t *testing.T) {
	rng := testRand(9)
	assert.Zero(t, Poisson(rng, 0))
	assert.Zero(t, Poisson(rng, -3))
	assert.Zero(t, Poisson(rng, math.NaN()))

	for _, mean := range []float64{0.5, 5, 1200} {
		const n = 400
		sum := 0
		for i := 0; i < n; i++ {
			sum += Poisson(rng, mean)
		}
		got := float64(sum) / n
		// Five standard errors of the sample mean.
		assert.InDelta(t, mean, got, 5*math.Sqrt(mean/n), "mean %v", mean)
	}
}

func TestSoneiraPeeblesModelPlot(t *testing.T) {
	m := &SoneiraPeeblesModel{}
	params := map[string]any{"levels": 2, "eta": 2, "show_circles": 1}

	res, err := m.Generate(testRand(10), params)
	require.NoError(t, err)
	assert.Equal(t, 7, res.PointCount())

	plot, err := m.Plot(res, params)
	require.NoError(t, err)
	// One disk layer and one scatter layer per level.
	require.Len(t, plot.Layers, 6)
	require.NotNil(t, plot.View)
	assert.Equal(t, -1500.0, plot.View.MinX)
	assert.Equal(t, 1500.0, plot.View.MaxY)

	disks, scatter := plot.Layers[2], plot.Layers[3]
	assert.Equal(t, 500.0, disks.Markers[0].DataRadius)
	assert.InDelta(t, 25, scatter.Markers[0].Area, 1e-9)
	assert.Equal(t, uint8(255), scatter.Markers[0].Color.R)
	assert.Equal(t, uint8(128), scatter.Markers[0].Color.A)

	params["show_scatter"] = false
	params["show_circles"] = false
	plot, err = m.Plot(res, params)
	require.NoError(t, err)
	assert.Empty(t, plot.Layers)
	assert.Nil(t, plot.View)
}

func TestSoneiraPeeblesFileName(t *testing.T) {
	m := &SoneiraPeeblesModel{}

	name, err := m.FileName(nil, 4)
	require.NoError(t, err)
	assert.Equal(t, "soneirapeebles_levels_5_eta_5_lambda_2_seed_4_eta_random_0", name)

	name, err = m.FileName(map[string]any{"lambda": 1.5, "eta_random": true, "levels": 3}, 0)
	require.NoError(t, err)
	assert.Equal(t, "soneirapeebles_levels_3_eta_5_lambda_1.5_seed_0_eta_random_1", name)
}
