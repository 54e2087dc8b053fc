package models

import (
	"math"
	"math/rand/v2"
)

// poissonChunk keeps exp(-mean) well above the float64 underflow limit.
const poissonChunk = 500.0

// Poisson draws from a Poisson distribution with the given mean using Knuth's
// multiplication method. Large means are split into chunks whose draws add
// up, since a sum of independent Poisson variables is Poisson.
func Poisson(rng *rand.Rand, mean float64) int {
	if !(mean > 0) {
		return 0
	}

	n := 0
	for mean > poissonChunk {
		n += knuthPoisson(rng, poissonChunk)
		mean -= poissonChunk
	}
	return n + knuthPoisson(rng, mean)
}

func knuthPoisson(rng *rand.Rand, mean float64) int {
	limit := math.Exp(-mean)
	k := 0
	p := rng.Float64()
	for p > limit {
		k++
		p *= rng.Float64()
	}
	return k
}
