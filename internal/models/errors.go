package models

import "errors"

var (
	// ErrNegativeDensity means a density function returned a negative
	// value. It is a broken precondition on the density and ends the run.
	ErrNegativeDensity = errors.New("density must be non-negative")
	ErrInvalidParam    = errors.New("invalid parameter")
	ErrInvalidConfig   = errors.New("invalid configuration")
)
