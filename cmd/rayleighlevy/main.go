// Command rayleighlevy renders Rayleigh-Lévy random walks with power-law step
// lengths.
package main

import "github.com/MJE43/galaxy-fractals/internal/app"

const (
	l0     = 5.0
	df     = 1.0
	box    = 40.0
	xmin   = 0.001
	nSteps = 100
	nWalks = 5
)

func main() {
	app.Main(app.Defaults{
		Model: "rayleigh-levy",
		Params: map[string]any{
			"l0":         l0,
			"df":         df,
			"box":        box,
			"min_length": xmin,
			"max_length": box,
			"steps":      nSteps,
			"walks":      nWalks,
		},
		Seeds: []uint64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
	})
}
