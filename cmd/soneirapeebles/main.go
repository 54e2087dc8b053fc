// Command soneirapeebles renders Soneira-Peebles hierarchical clusterings.
package main

import "github.com/MJE43/galaxy-fractals/internal/app"

const (
	lambda      = 2.0
	levels      = 5
	r0          = 1000.0
	eta         = 5
	etaRandom   = false
	showScatter = true
	showCircles = false
)

func main() {
	app.Main(app.Defaults{
		Model: "soneira-peebles",
		Params: map[string]any{
			"lambda":       lambda,
			"levels":       levels,
			"r0":           r0,
			"eta":          eta,
			"eta_random":   etaRandom,
			"show_scatter": showScatter,
			"show_circles": showCircles,
		},
		Seeds: []uint64{0, 1, 2, 3, 4},
	})
}
