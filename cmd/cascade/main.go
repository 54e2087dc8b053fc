// Command cascade renders multiplicative cascade point sets.
package main

import "github.com/MJE43/galaxy-fractals/internal/app"

const (
	lmin  = 0.0
	lmax  = 10.0
	steps = 8
	cmap  = "Greys"
)

var probs = [4]float64{1, 0.75, 0.5, 0.25}

func main() {
	app.Main(app.Defaults{
		Model: "cascade",
		Params: map[string]any{
			"lmin":  lmin,
			"lmax":  lmax,
			"p1":    probs[0],
			"p2":    probs[1],
			"p3":    probs[2],
			"p4":    probs[3],
			"steps": steps,
			"cmap":  cmap,
		},
		Seeds: []uint64{0},
	})
}
