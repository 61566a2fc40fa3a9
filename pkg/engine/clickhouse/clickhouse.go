// Package clickhouse connects to ClickHouse over the native protocol.
package clickhouse

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/wlaur/olap-benchmarks/pkg/catalog"
	"github.com/wlaur/olap-benchmarks/pkg/engine"
)

const DefaultDatabase = "default"

// Config holds the ClickHouse connection settings.
type Config struct {
	Addr     string
	Database string
	Username string
	Password string
	Secure   bool
}

// ContextWithSyncInsert returns a context configured for synchronous
// inserts. Benchmarks read back data immediately after populating, so every
// insert goes through this.
func ContextWithSyncInsert(ctx context.Context) context.Context {
	return clickhouse.Context(ctx, clickhouse.WithSettings(clickhouse.Settings{
		"async_insert":                  0,
		"wait_for_async_insert":         1,
		"insert_deduplicate":            0, // Disable deduplication to avoid silent drops
		"select_sequential_consistency": 1, // Ensure reads see latest writes in replicated setups
	}))
}

// DB is a live ClickHouse connection implementing engine.Engine.
type DB struct {
	conn driver.Conn
	log  *slog.Logger
}

// New opens a ClickHouse connection. The connection is lazy; readiness is
// checked through Ping so callers can retry against a booting server.
func New(ctx context.Context, log *slog.Logger, cfg Config) (*DB, error) {
	options := &clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 300,
		},
		DialTimeout: 5 * time.Second,
	}

	// TLS for ClickHouse Cloud (port 9440)
	if cfg.Secure {
		options.TLS = &tls.Config{}
	}

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open ClickHouse connection: %w", err)
	}

	log.Debug("ClickHouse connection initialized", "addr", cfg.Addr, "database", cfg.Database, "secure", cfg.Secure)

	return &DB{conn: conn, log: log}, nil
}

func (d *DB) Name() catalog.Engine {
	return catalog.EngineClickHouse
}

func (d *DB) Fetch(ctx context.Context, query string) (*engine.Result, error) {
	rows, err := d.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("clickhouse query failed: %w", err)
	}
	defer rows.Close()

	types := rows.ColumnTypes()
	result := &engine.Result{Columns: rows.Columns()}

	for rows.Next() {
		dest := make([]any, len(types))
		for i, ct := range types {
			dest[i] = reflect.New(ct.ScanType()).Interface()
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("clickhouse scan failed: %w", err)
		}
		values := make([]any, len(dest))
		for i, v := range dest {
			values[i] = reflect.ValueOf(v).Elem().Interface()
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("clickhouse query failed: %w", err)
	}
	return result, nil
}

func (d *DB) Exec(ctx context.Context, stmt string) error {
	if err := d.conn.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("clickhouse exec failed: %w", err)
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

// Insert loads rows through a prepared batch over the native protocol.
func (d *DB) Insert(ctx context.Context, table string, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}

	ctx = ContextWithSyncInsert(ctx)
	query := fmt.Sprintf("INSERT INTO %s (%s)", table, strings.Join(columns, ", "))

	batch, err := d.conn.PrepareBatch(ctx, query)
	if err != nil {
		return fmt.Errorf("clickhouse insert failed: %w", err)
	}
	for _, row := range rows {
		if err := batch.Append(row...); err != nil {
			return fmt.Errorf("clickhouse insert failed: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("clickhouse insert failed: %w", err)
	}

	d.log.Debug("inserted rows", "engine", d.Name(), "table", table, "rows", len(rows))
	return nil
}

func (d *DB) Ping(ctx context.Context) error {
	return d.conn.Ping(ctx)
}

func (d *DB) Close() error {
	return d.conn.Close()
}
