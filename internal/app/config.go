// Package app is the command-line glue shared by the cmd/ entry points.
package app

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/MJE43/galaxy-fractals/internal/engine"
)

const maxSeeds = 1_000_000

// Defaults are the in-source settings of one entry point.
type Defaults struct {
	Model  string
	Params map[string]any
	Seeds  []uint64
}

// Config is a fully resolved invocation.
type Config struct {
	Model     string
	Params    map[string]any
	Seeds     []uint64
	OutputDir string
	Format    string
	RandKind  engine.Kind
	DBPath    string
	Workers   int
	TimeoutMs int
	ListRuns  bool
	Quiet     bool
}

// paramFlag collects repeated -set key=value overrides.
type paramFlag map[string]any

func (p paramFlag) String() string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, p[k])
	}
	return strings.Join(parts, ",")
}

func (p paramFlag) Set(v string) error {
	key, value, ok := strings.Cut(v, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return fmt.Errorf("want key=value, got %q", v)
	}
	p[key] = strings.TrimSpace(value)
	return nil
}

// ParseFlags resolves args against defaults. Precedence, lowest first: the
// in-source defaults, the -params JSON file, then -set overrides.
func ParseFlags(name string, defaults Defaults, args []string, stderr io.Writer) (Config, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)

	cfg := Config{Model: defaults.Model}

	var (
		paramsPath string
		seeds      string
		rng        string
		overrides  = paramFlag{}
	)
	fs.StringVar(&paramsPath, "params", "", "JSON file with model parameters")
	fs.Var(overrides, "set", "override one parameter, key=value (repeatable)")
	fs.StringVar(&seeds, "seeds", FormatSeeds(defaults.Seeds), `seeds to run, e.g. "0,1,2" or "0-9"`)
	fs.StringVar(&cfg.OutputDir, "out", "Plots", "output directory")
	fs.StringVar(&cfg.Format, "format", "png", "image format: png, jpg, gif or svg")
	fs.StringVar(&rng, "rng", string(engine.KindHMAC), "random source: hmac or pcg")
	fs.StringVar(&cfg.DBPath, "db", "", "record runs in this SQLite database")
	fs.IntVar(&cfg.Workers, "workers", 0, "parallel workers (0 = one per CPU, 1 = sequential)")
	fs.IntVar(&cfg.TimeoutMs, "timeout", 0, "batch timeout in milliseconds (0 = none)")
	fs.BoolVar(&cfg.ListRuns, "list-runs", false, "list runs recorded in -db and exit")
	fs.BoolVar(&cfg.Quiet, "q", false, "suppress progress logging")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if fs.NArg() > 0 {
		return cfg, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	var err error
	if cfg.RandKind, err = engine.ParseKind(rng); err != nil {
		return cfg, err
	}
	if cfg.Seeds, err = ParseSeeds(seeds); err != nil {
		return cfg, err
	}
	if cfg.ListRuns && cfg.DBPath == "" {
		return cfg, fmt.Errorf("-list-runs needs -db")
	}

	cfg.Params = make(map[string]any, len(defaults.Params))
	for k, v := range defaults.Params {
		cfg.Params[k] = v
	}
	if paramsPath != "" {
		fromFile, err := LoadParams(paramsPath)
		if err != nil {
			return cfg, err
		}
		for k, v := range fromFile {
			cfg.Params[k] = v
		}
	}
	for k, v := range overrides {
		cfg.Params[k] = v
	}

	return cfg, nil
}

// LoadParams reads a JSON object of parameters. Numbers are kept as
// json.Number so integers stay exact.
func LoadParams(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read params: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var params map[string]any
	if err := dec.Decode(&params); err != nil {
		return nil, fmt.Errorf("parse params %s: %w", path, err)
	}
	return params, nil
}

// ParseSeeds accepts a comma separated list of seeds and inclusive ranges:
// "3", "0,1,2", "0-9", "0-4,10".
func ParseSeeds(s string) ([]uint64, error) {
	var seeds []uint64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		lo, hi, isRange := strings.Cut(part, "-")
		start, err := strconv.ParseUint(strings.TrimSpace(lo), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid seed %q", part)
		}
		end := start
		if isRange {
			if end, err = strconv.ParseUint(strings.TrimSpace(hi), 10, 64); err != nil {
				return nil, fmt.Errorf("invalid seed range %q", part)
			}
			if end < start {
				return nil, fmt.Errorf("invalid seed range %q: end before start", part)
			}
		}
		if end-start >= maxSeeds || uint64(len(seeds))+end-start >= maxSeeds {
			return nil, fmt.Errorf("too many seeds in %q (max %d)", s, maxSeeds)
		}

		for seed := start; ; seed++ {
			seeds = append(seeds, seed)
			if seed == end {
				break
			}
		}
	}

	if len(seeds) == 0 {
		return nil, fmt.Errorf("no seeds in %q", s)
	}
	return seeds, nil
}

// FormatSeeds renders seeds compactly, collapsing consecutive runs into ranges.
func FormatSeeds(seeds []uint64) string {
	var parts []string
	for i := 0; i < len(seeds); {
		j := i
		for j+1 < len(seeds) && seeds[j+1] == seeds[j]+1 {
			j++
		}
		if j > i {
			parts = append(parts, fmt.Sprintf("%d-%d", seeds[i], seeds[j]))
		} else {
			parts = append(parts, strconv.FormatUint(seeds[i], 10))
		}
		i = j + 1
	}
	return strings.Join(parts, ",")
}
