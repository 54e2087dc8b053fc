// Package store keeps an optional catalog of generated images in SQLite.
package store

import (
	"errors"
	"time"
)

// ErrRunNotFound is returned by GetRun for an unknown ID.
var ErrRunNotFound = errors.New("run not found")

// DB represents the database interface
type DB interface {
	Close() error
	Migrate() error
	SaveRun(run *Run) error
	GetRun(id string) (*Run, error)
	ListRuns(query RunsQuery) (*RunsList, error)
}

// Run is one generated image: the model, seed and parameters that produced
// it and where it was written.
type Run struct {
	ID            string    `json:"id" db:"id"`
	Model         string    `json:"model" db:"model"`
	Seed          uint64    `json:"seed" db:"seed"`
	ParamsJSON    string    `json:"params_json" db:"params_json"`
	PointCount    int       `json:"point_count" db:"point_count"`
	Truncated     bool      `json:"truncated" db:"truncated"`
	OutputPath    string    `json:"output_path" db:"output_path"`
	RandKind      string    `json:"rand_kind" db:"rand_kind"`
	EngineVersion string    `json:"engine_version" db:"engine_version"`
	DurationMs    int64     `json:"duration_ms" db:"duration_ms"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// RunsQuery represents query parameters for listing runs
type RunsQuery struct {
	Model   string `json:"model,omitempty"`
	Page    int    `json:"page"`
	PerPage int    `json:"perPage"`
}

// RunsList represents a page of runs, newest first
type RunsList struct {
	Runs       []Run `json:"runs"`
	TotalCount int   `json:"totalCount"`
	Page       int   `json:"page"`
	PerPage    int   `json:"perPage"`
	TotalPages int   `json:"totalPages"`
}
