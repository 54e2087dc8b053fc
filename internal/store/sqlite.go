package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	defaultPerPage = 50
	busyRetries    = 5
	busyBackoff    = 20 * time.Millisecond
)

// SQLiteDB implements the DB interface using SQLite
type SQLiteDB struct {
	db *sql.DB
}

// NewSQLiteDB creates a new SQLite database connection
func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Each connection to :memory: is a separate database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=1000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return &SQLiteDB{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// Migrate applies the embedded goose migrations.
func (s *SQLiteDB) Migrate() error {
	fsys, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, s.db, fsys)
	if err != nil {
		return fmt.Errorf("migration setup failed: %w", err)
	}

	if _, err := provider.Up(context.Background()); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// SaveRun inserts run, assigning an ID and creation time when unset. Busy
// database errors are retried with exponential backoff.
func (s *SQLiteDB) SaveRun(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.ParamsJSON == "" {
		run.ParamsJSON = "{}"
	}

	query := `INSERT INTO runs (
		id, model, seed, params_json, point_count, truncated,
		output_path, rand_kind, engine_version, duration_ms, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	truncated := 0
	if run.Truncated {
		truncated = 1
	}

	backoff := retry.WithMaxRetries(busyRetries, retry.NewExponential(busyBackoff))
	return retry.Do(context.Background(), backoff, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, query,
			run.ID, run.Model, int64(run.Seed), run.ParamsJSON, run.PointCount, truncated,
			run.OutputPath, run.RandKind, run.EngineVersion, run.DurationMs, run.CreatedAt,
		)
		if isBusy(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// isBusy reports whether err is SQLITE_BUSY or SQLITE_LOCKED, including
// their extended codes.
func isBusy(err error) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	code := serr.Code() & 0xff
	return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
}

const runColumns = `id, model, seed, params_json, point_count, truncated,
	output_path, rand_kind, engine_version, duration_ms, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var seed int64
	var truncated int
	err := row.Scan(
		&run.ID, &run.Model, &seed, &run.ParamsJSON, &run.PointCount, &truncated,
		&run.OutputPath, &run.RandKind, &run.EngineVersion, &run.DurationMs, &run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	run.Seed = uint64(seed)
	run.Truncated = truncated == 1
	return &run, nil
}

// GetRun retrieves a run by ID
func (s *SQLiteDB) GetRun(id string) (*Run, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns retrieves runs with pagination and filtering
func (s *SQLiteDB) ListRuns(query RunsQuery) (*RunsList, error) {
	whereClause := ""
	args := []any{}

	if query.Model != "" {
		whereClause = "WHERE model = ?"
		args = append(args, query.Model)
	}

	var totalCount int
	err := s.db.QueryRow("SELECT COUNT(*) FROM runs "+whereClause, args...).Scan(&totalCount)
	if err != nil {
		return nil, fmt.Errorf("failed to get total count: %w", err)
	}

	if query.PerPage <= 0 {
		query.PerPage = defaultPerPage
	}
	if query.Page <= 0 {
		query.Page = 1
	}

	totalPages := (totalCount + query.PerPage - 1) / query.PerPage
	offset := (query.Page - 1) * query.PerPage

	mainQuery := `SELECT ` + runColumns + `
		FROM runs ` + whereClause + `
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`
	args = append(args, query.PerPage, offset)

	rows, err := s.db.Query(mainQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return &RunsList{
		Runs:       runs,
		TotalCount: totalCount,
		Page:       query.Page,
		PerPage:    query.PerPage,
		TotalPages: totalPages,
	}, nil
}
