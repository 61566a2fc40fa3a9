// Package results persists benchmark outcomes to a local SQLite database.
//
// Each benchmark run is one benchmark row; individual query executions are
// recorded as paired start/end events, and resource samples land in the
// metric table. Durations are derived from the event pairs at read time.
package results

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // Register sqlite driver with database/sql
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Event types for the event table.
const (
	EventStart = "start"
	EventEnd   = "end"
)

// Benchmark is one row of the benchmark table.
type Benchmark struct {
	ID         int64
	Suite      string
	DB         string
	Operation  string
	StartedAt  time.Time
	FinishedAt *time.Time
	Notes      string
}

// QueryDuration is one query execution derived from a start/end event pair.
type QueryDuration struct {
	Name    string
	Started time.Time
	Elapsed time.Duration
}

// Store wraps the results database.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// slogGooseLogger adapts slog.Logger to goose.Logger interface
type slogGooseLogger struct {
	log *slog.Logger
}

func (l *slogGooseLogger) Fatalf(format string, v ...any) {
	l.log.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l *slogGooseLogger) Printf(format string, v ...any) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// Open opens (or creates) the results database at path and runs pending
// migrations.
func Open(ctx context.Context, log *slog.Logger, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open results database: %w", err)
	}

	// SQLite handles one writer at a time.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping results database: %w", err)
	}

	goose.SetLogger(&slogGooseLogger{log: log})
	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("sqlite3"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run results migrations: %w", err)
	}

	log.Debug("results database opened", "path", path)

	return &Store{db: db, log: log}, nil
}

// InsertBenchmark records the start of a benchmark run and returns its id.
func (s *Store) InsertBenchmark(ctx context.Context, suite, db, operation string, startedAt time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO benchmark (suite, db, operation, started_at) VALUES (?, ?, ?, ?)`,
		suite, db, operation, startedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("failed to insert benchmark: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to insert benchmark: %w", err)
	}
	return id, nil
}

// FinishBenchmark marks a benchmark run as completed.
func (s *Store) FinishBenchmark(ctx context.Context, id int64, finishedAt time.Time, notes string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE benchmark SET finished_at = ?, notes = ? WHERE id = ?`,
		finishedAt.UTC().Format(time.RFC3339Nano), notes, id)
	if err != nil {
		return fmt.Errorf("failed to finish benchmark %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to finish benchmark %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("benchmark %d does not exist", id)
	}
	return nil
}

// InsertEvent records one start or end event for a benchmark.
func (s *Store) InsertEvent(ctx context.Context, benchmarkID int64, at time.Time, name, typ string) error {
	if typ != EventStart && typ != EventEnd {
		return fmt.Errorf("invalid event type %q", typ)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO event (benchmark_id, time, name, type) VALUES (?, ?, ?, ?)`,
		benchmarkID, at.UTC().Format(time.RFC3339Nano), name, typ)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// InsertMetric records one resource sample for a benchmark.
func (s *Store) InsertMetric(ctx context.Context, benchmarkID int64, at time.Time, cpuPercent, memMB, diskMB float64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO metric (benchmark_id, time, cpu_percent, mem_mb, disk_mb) VALUES (?, ?, ?, ?, ?)`,
		benchmarkID, at.UTC().Format(time.RFC3339Nano), cpuPercent, memMB, diskMB)
	if err != nil {
		return fmt.Errorf("failed to insert metric: %w", err)
	}
	return nil
}

// ListBenchmarks returns all benchmark rows, newest first.
func (s *Store) ListBenchmarks(ctx context.Context) ([]Benchmark, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, suite, db, operation, started_at, finished_at, notes FROM benchmark ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list benchmarks: %w", err)
	}
	defer rows.Close()

	var benchmarks []Benchmark
	for rows.Next() {
		var (
			b          Benchmark
			startedAt  string
			finishedAt sql.NullString
			notes      sql.NullString
		)
		if err := rows.Scan(&b.ID, &b.Suite, &b.DB, &b.Operation, &startedAt, &finishedAt, &notes); err != nil {
			return nil, fmt.Errorf("failed to scan benchmark: %w", err)
		}
		if b.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("failed to parse benchmark %d started_at: %w", b.ID, err)
		}
		if finishedAt.Valid {
			t, err := time.Parse(time.RFC3339Nano, finishedAt.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse benchmark %d finished_at: %w", b.ID, err)
			}
			b.FinishedAt = &t
		}
		b.Notes = notes.String
		benchmarks = append(benchmarks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list benchmarks: %w", err)
	}
	return benchmarks, nil
}

// QueryDurations derives per-query elapsed times from paired start/end
// events, in start order. Events whose end is missing (crashed run) are
// skipped.
func (s *Store) QueryDurations(ctx context.Context, benchmarkID int64) ([]QueryDuration, error) {
	// Insert order is authoritative, timestamps from a fake clock can tie.
	rows, err := s.db.QueryContext(ctx,
		`SELECT time, name, type FROM event WHERE benchmark_id = ? ORDER BY rowid`, benchmarkID)
	if err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}
	defer rows.Close()

	var durations []QueryDuration
	open := make(map[string]time.Time)
	for rows.Next() {
		var (
			at        string
			name, typ string
		)
		if err := rows.Scan(&at, &name, &typ); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		t, err := time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("failed to parse event time: %w", err)
		}
		switch typ {
		case EventStart:
			open[name] = t
		case EventEnd:
			started, ok := open[name]
			if !ok {
				return nil, fmt.Errorf("event %q ended without starting", name)
			}
			delete(open, name)
			durations = append(durations, QueryDuration{Name: name, Started: started, Elapsed: t.Sub(started)})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}
	return durations, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
