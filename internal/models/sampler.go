package models

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// DefaultSampleBudget is the number of candidate draws SampleFromPDF makes
// before giving up.
const DefaultSampleBudget = 1_000_000

// Density is an unnormalised, non-negative probability density.
type Density interface {
	At(l float64) (float64, error)
}

// DensityFunc adapts a plain function to Density.
type DensityFunc func(l float64) float64

// At calls f(l).
func (f DensityFunc) At(l float64) (float64, error) {
	return f(l), nil
}

// PowerLawDensity is the Rayleigh-Lévy step-length density
//
//	p(l) = df · (l0/l)^(df+1) / l0   for l >= l0
//	p(l) = 0                          for l <  l0
//
// so that P(>l) = (l0/l)^df. Larger df gives sparser point sets.
func PowerLawDensity(l0, df float64) DensityFunc {
	return func(l float64) float64 {
		if l < l0 {
			return 0
		}
		return df * math.Pow(l0/l, df+1) / l0
	}
}

// SampleResult is the outcome of a rejection-sampling run.
type SampleResult struct {
	Values   []float64
	Attempts int
	// Exhausted is set when the budget ran out before len(Values) reached
	// the requested size.
	Exhausted bool
}

// SampleFromPDF draws size samples from density restricted to [lo, hi) by
// rejection: a candidate x ~ U(lo, hi) is kept when u ~ U(0, 1) satisfies
// u <= density(x). The density needs no normalisation; values above 1 are
// always accepted. At most budget candidates are drawn (a non-positive
// budget means DefaultSampleBudget). A negative or NaN density value stops
// sampling with ErrNegativeDensity.
func SampleFromPDF(rng *rand.Rand, lo, hi float64, density Density, size, budget int) (SampleResult, error) {
	if size < 0 {
		size = 0
	}
	if budget <= 0 {
		budget = DefaultSampleBudget
	}

	res := SampleResult{Values: make([]float64, 0, size)}

	for len(res.Values) < size && res.Attempts < budget {
		x := lo + (hi-lo)*rng.Float64()

		prob, err := density.At(x)
		if err != nil {
			return res, fmt.Errorf("density(%v): %w", x, err)
		}
		if prob < 0 || math.IsNaN(prob) {
			return res, fmt.Errorf("%w: density(%v) = %v", ErrNegativeDensity, x, prob)
		}

		if rng.Float64() <= prob {
			res.Values = append(res.Values, x)
		}
		res.Attempts++
	}

	res.Exhausted = len(res.Values) < size
	return res, nil
}
