package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/MJE43/galaxy-fractals/internal/models"
	"github.com/MJE43/galaxy-fractals/internal/scan"
	"github.com/MJE43/galaxy-fractals/internal/store"
)

// Run executes cfg: it opens the run catalog when DBPath is set, then either
// lists recorded runs to out or renders one image per seed.
func Run(ctx context.Context, cfg Config, logger *log.Logger, out io.Writer) (*scan.Result, error) {
	var db store.DB
	if cfg.DBPath != "" {
		sqlite, err := store.NewSQLiteDB(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		defer sqlite.Close()

		if err := sqlite.Migrate(); err != nil {
			return nil, err
		}
		db = sqlite
	}

	if cfg.ListRuns {
		return nil, listRuns(db, cfg.Model, out)
	}

	scanLogger := log.New(logger.Writer(), "[SCAN] ", logger.Flags())
	opts := []scan.Option{scan.WithLogger(scanLogger)}
	if db != nil {
		opts = append(opts, scan.WithStore(db))
	}
	runner := scan.NewRunner(opts...)

	return runner.Run(ctx, scan.Request{
		Model:     cfg.Model,
		Params:    cfg.Params,
		Seeds:     cfg.Seeds,
		OutputDir: cfg.OutputDir,
		Format:    cfg.Format,
		RandKind:  cfg.RandKind,
		TimeoutMs: cfg.TimeoutMs,
		Workers:   cfg.Workers,
	})
}

func listRuns(db store.DB, model string, out io.Writer) error {
	list, err := db.ListRuns(store.RunsQuery{Model: model, PerPage: 1000})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(list)
}

// Main is the body of every cmd/ entry point.
func Main(defaults Defaults) {
	cfg, err := ParseFlags(os.Args[0], defaults, os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logOut := io.Writer(os.Stdout)
	if cfg.Quiet {
		logOut = io.Discard
	}
	logger := log.New(logOut, "[APP] ", log.LstdFlags)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if m, ok := models.GetModel(cfg.Model); ok {
		logger.Printf("Starting %s (Go %s) seeds=%s", m.Spec().Name, runtime.Version(), FormatSeeds(cfg.Seeds))
	}

	result, err := Run(ctx, cfg, logger, os.Stdout)
	if err != nil {
		stop()
		log.Fatalf("[APP] %v", err)
	}
	if result == nil {
		return
	}

	s := result.Summary
	logger.Printf("Wrote %d images to %s (points min=%d max=%d mean=%.1f, truncated=%d)",
		s.Runs, cfg.OutputDir, s.MinPoints, s.MaxPoints, s.MeanPoints, s.TruncatedRuns)
}
