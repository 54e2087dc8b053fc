package scan

import "errors"

var (
	ErrModelNotFound = errors.New("model not found")
	ErrNoSeeds       = errors.New("no seeds given")
	ErrTimeout       = errors.New("run timed out")
)
