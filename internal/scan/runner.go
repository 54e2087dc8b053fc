// Package scan runs a model over a batch of seeds, one image per seed.
package scan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/MJE43/galaxy-fractals/internal/engine"
	"github.com/MJE43/galaxy-fractals/internal/models"
	"github.com/MJE43/galaxy-fractals/internal/render"
	"github.com/MJE43/galaxy-fractals/internal/store"
)

// Request describes a batch of runs of one model.
type Request struct {
	Model     string         `json:"model"`
	Params    map[string]any `json:"params"`
	Seeds     []uint64       `json:"seeds"`
	OutputDir string         `json:"output_dir"`
	Format    string         `json:"format"`
	RandKind  engine.Kind    `json:"rand_kind"`
	TimeoutMs int            `json:"timeout_ms,omitempty"`
	// Workers overrides the runner's worker count; 1 runs seeds in order.
	Workers int `json:"workers,omitempty"`
}

// RunResult is the outcome of one seed.
type RunResult struct {
	Seed       uint64 `json:"seed"`
	Path       string `json:"path,omitempty"`
	Points     int    `json:"points"`
	Layers     int    `json:"layers"`
	Truncated  bool   `json:"truncated,omitempty"`
	Attempts   int    `json:"attempts,omitempty"`
	DurationMs int64  `json:"duration_ms"`
	RunID      string `json:"run_id,omitempty"`
	Error      string `json:"error,omitempty"`

	err error
}

// Summary contains aggregate statistics
type Summary struct {
	Runs          int     `json:"runs"`
	Failed        int     `json:"failed"`
	MinPoints     int     `json:"min_points"`
	MaxPoints     int     `json:"max_points"`
	MeanPoints    float64 `json:"mean_points"`
	TruncatedRuns int     `json:"truncated_runs"`
	TimedOut      bool    `json:"timed_out,omitempty"`
}

// Result contains every run of a batch sorted by seed.
type Result struct {
	Runs          []RunResult `json:"runs"`
	Summary       Summary     `json:"summary"`
	EngineVersion string      `json:"engine_version"`
	Echo          Request     `json:"echo"`
}

// Runner executes batches on a worker pool.
type Runner struct {
	workerCount int
	logger      *log.Logger
	store       store.DB
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the runner's logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithStore records every successful run in db.
func WithStore(db store.DB) Option {
	return func(r *Runner) { r.store = db }
}

// WithWorkers sets the default worker count.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workerCount = n
		}
	}
}

// NewRunner creates a runner with one worker per CPU.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		workerCount: runtime.GOMAXPROCS(0),
		logger:      log.New(os.Stdout, "[SCAN] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type job struct {
	seed uint64
}

// Run generates, plots and saves one image per seed. The returned Result is
// non-nil whenever the request itself was valid; per-seed failures are
// combined into the error. A negative density stops the whole batch.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	model, exists := models.GetModel(req.Model)
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, req.Model)
	}
	if len(req.Seeds) == 0 {
		return nil, ErrNoSeeds
	}

	ext, err := render.NormalizeFormat(req.Format)
	if err != nil {
		return nil, err
	}
	if req.RandKind == "" {
		req.RandKind = engine.KindHMAC
	}
	if _, err := engine.ParseKind(string(req.RandKind)); err != nil {
		return nil, err
	}
	// Bad parameters fail once here rather than once per seed.
	if _, err := model.FileName(req.Params, 0); err != nil {
		return nil, err
	}

	params := req.Params
	if params == nil {
		params = map[string]any{}
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode params: %w", err)
	}

	if req.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(req.TimeoutMs)*time.Millisecond)
		defer cancel()
	}
	ctx, abort := context.WithCancel(ctx)
	defer abort()

	workers := r.workerCount
	if req.Workers > 0 {
		workers = req.Workers
	}
	if workers > len(req.Seeds) {
		workers = len(req.Seeds)
	}

	r.logger.Printf("run_started model=%s seeds=%d workers=%d format=%s rng=%s out=%s",
		req.Model, len(req.Seeds), workers, ext, req.RandKind, req.OutputDir)
	started := time.Now()

	jobs := make(chan job, workers*2)
	results := make(chan RunResult, workers*2)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		w := &worker{
			id:         i,
			model:      model,
			req:        req,
			ext:        ext,
			paramsJSON: string(paramsJSON),
			store:      r.store,
			logger:     r.logger,
			abort:      abort,
		}
		wg.Add(1)
		go w.run(ctx, jobs, results, &wg)
	}

	go func() {
		defer close(jobs)
		for _, seed := range req.Seeds {
			select {
			case jobs <- job{seed: seed}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	runs := make([]RunResult, 0, len(req.Seeds))
	var errs error
	for res := range results {
		if res.err != nil {
			errs = multierr.Append(errs, fmt.Errorf("seed %d: %w", res.Seed, res.err))
		}
		runs = append(runs, res)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Seed < runs[j].Seed })

	timedOut := errors.Is(ctx.Err(), context.DeadlineExceeded)
	if timedOut {
		errs = multierr.Append(errs, ErrTimeout)
	}

	result := &Result{
		Runs:          runs,
		Summary:       summarize(runs, timedOut),
		EngineVersion: engine.EngineVersion,
		Echo:          req,
	}

	r.logger.Printf("run_completed model=%s runs=%d failed=%d truncated=%d timed_out=%t duration_ms=%d",
		req.Model, result.Summary.Runs, result.Summary.Failed, result.Summary.TruncatedRuns,
		timedOut, time.Since(started).Milliseconds())

	return result, errs
}

type worker struct {
	id         int
	model      models.Model
	req        Request
	ext        string
	paramsJSON string
	store      store.DB
	logger     *log.Logger
	abort      context.CancelFunc
}

func (w *worker) run(ctx context.Context, jobs <-chan job, results chan<- RunResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		select {
		case j, ok := <-jobs:
			if !ok {
				return
			}
			if ctx.Err() != nil {
				return
			}

			res := w.process(j.seed)
			if errors.Is(res.err, models.ErrNegativeDensity) {
				w.abort()
			}
			results <- res

		case <-ctx.Done():
			return
		}
	}
}

// process is one self-contained run: fresh random source, generate, plot,
// save and record.
func (w *worker) process(seed uint64) RunResult {
	start := time.Now()
	out := RunResult{Seed: seed}
	fail := func(err error) RunResult {
		out.err = err
		out.Error = err.Error()
		out.DurationMs = time.Since(start).Milliseconds()
		w.logger.Printf("seed_failed model=%s seed=%d worker=%d err=%v", w.req.Model, seed, w.id, err)
		return out
	}

	rng := engine.NewRand(w.req.RandKind, w.req.Model, seed)

	res, err := w.model.Generate(rng, w.req.Params)
	if err != nil {
		return fail(fmt.Errorf("generate: %w", err))
	}
	res.Seed = seed
	for _, msg := range res.Logs {
		w.logger.Printf("script_log model=%s seed=%d msg=%q", w.req.Model, seed, msg)
	}
	out.Points = res.PointCount()
	out.Layers = len(res.Layers)
	out.Truncated = res.Truncated
	out.Attempts = res.Attempts

	plot, err := w.model.Plot(res, w.req.Params)
	if err != nil {
		return fail(fmt.Errorf("plot: %w", err))
	}

	name, err := w.model.FileName(w.req.Params, seed)
	if err != nil {
		return fail(fmt.Errorf("file name: %w", err))
	}
	out.Path = filepath.Join(w.req.OutputDir, name+w.ext)

	if err := plot.Save(out.Path); err != nil {
		return fail(fmt.Errorf("save: %w", err))
	}
	out.DurationMs = time.Since(start).Milliseconds()

	if w.store != nil {
		run := &store.Run{
			Model:         w.req.Model,
			Seed:          seed,
			ParamsJSON:    w.paramsJSON,
			PointCount:    out.Points,
			Truncated:     out.Truncated,
			OutputPath:    out.Path,
			RandKind:      string(w.req.RandKind),
			EngineVersion: engine.EngineVersion,
			DurationMs:    out.DurationMs,
		}
		if err := w.store.SaveRun(run); err != nil {
			return fail(fmt.Errorf("record run: %w", err))
		}
		out.RunID = run.ID
	}

	if out.Truncated {
		w.logger.Printf("seed_truncated model=%s seed=%d attempts=%d points=%d", w.req.Model, seed, out.Attempts, out.Points)
	}
	w.logger.Printf("seed_completed model=%s seed=%d points=%d path=%s duration_ms=%d",
		w.req.Model, seed, out.Points, out.Path, out.DurationMs)

	return out
}

// summarize computes aggregate statistics over successful runs.
func summarize(runs []RunResult, timedOut bool) Summary {
	summary := Summary{TimedOut: timedOut}

	total := 0
	for _, r := range runs {
		if r.err != nil {
			summary.Failed++
			continue
		}
		if summary.Runs == 0 || r.Points < summary.MinPoints {
			summary.MinPoints = r.Points
		}
		if r.Points > summary.MaxPoints {
			summary.MaxPoints = r.Points
		}
		if r.Truncated {
			summary.TruncatedRuns++
		}
		total += r.Points
		summary.Runs++
	}

	if summary.Runs > 0 {
		summary.MeanPoints = float64(total) / float64(summary.Runs)
	}
	return summary
}
