// Package postgres connects to PostgreSQL through a pgx connection pool.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wlaur/olap-benchmarks/pkg/catalog"
	"github.com/wlaur/olap-benchmarks/pkg/engine"
)

// Config holds the PostgreSQL connection settings.
type Config struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
	SSLMode  string
}

// ConnString renders the config as a pgx connection string.
func (c Config) ConnString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Username, c.Password, c.Host, c.Port, c.Database, sslMode)
}

// DB is a pooled PostgreSQL connection implementing engine.Engine.
// TimescaleDB reuses it with a different engine name.
type DB struct {
	name catalog.Engine
	pool *pgxpool.Pool
	log  *slog.Logger
}

// New opens a connection pool and verifies it with a ping.
func New(ctx context.Context, log *slog.Logger, cfg Config) (*DB, error) {
	return open(ctx, log, cfg, catalog.EnginePostgres)
}

// NewTimescale opens a pool against a TimescaleDB server. The wire protocol
// is identical, only the reported engine name differs.
func NewTimescale(ctx context.Context, log *slog.Logger, cfg Config) (*DB, error) {
	return open(ctx, log, cfg, catalog.EngineTimescaleDB)
}

func open(ctx context.Context, log *slog.Logger, cfg Config, name catalog.Engine) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s config: %w", name, err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s pool: %w", name, err)
	}

	log.Debug("pool initialized", "engine", name, "host", cfg.Host, "port", cfg.Port, "database", cfg.Database)

	return &DB{name: name, pool: pool, log: log}, nil
}

func (d *DB) Name() catalog.Engine {
	return d.name
}

// Pool exposes the underlying pgx pool.
func (d *DB) Pool() *pgxpool.Pool {
	return d.pool
}

func (d *DB) Fetch(ctx context.Context, query string) (*engine.Result, error) {
	rows, err := d.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s query failed: %w", d.name, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	result := &engine.Result{Columns: make([]string, len(fields))}
	for i, f := range fields {
		result.Columns[i] = f.Name
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("%s scan failed: %w", d.name, err)
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s query failed: %w", d.name, err)
	}
	return result, nil
}

func (d *DB) Exec(ctx context.Context, stmt string) error {
	if _, err := d.pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("%s exec failed: %w", d.name, err)
	}
	return nil
}

func (d *DB) ExecScript(ctx context.Context, script string) error {
	for _, stmt := range engine.SplitStatements(script) {
		if err := d.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Insert bulk-loads rows with the COPY protocol.
func (d *DB) Insert(ctx context.Context, table string, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}

	n, err := d.pool.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("%s copy failed: %w", d.name, err)
	}
	if n != int64(len(rows)) {
		return fmt.Errorf("%s copy wrote %d of %d rows", d.name, n, len(rows))
	}

	d.log.Debug("inserted rows", "engine", d.name, "table", table, "rows", n)
	return nil
}

func (d *DB) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

func (d *DB) Close() error {
	d.pool.Close()
	return nil
}
