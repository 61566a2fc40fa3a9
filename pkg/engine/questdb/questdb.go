// Package questdb connects to QuestDB, using the ILP sender for ingestion
// into tables with a designated timestamp and the pgwire endpoint for
// queries. Tables without a designated timestamp cannot take ILP lines, so
// their inserts go over pgwire as batched INSERTs instead.
package questdb

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	qdb "github.com/questdb/go-questdb-client/v3"

	"github.com/wlaur/olap-benchmarks/pkg/catalog"
	"github.com/wlaur/olap-benchmarks/pkg/engine"
)

// Config holds the QuestDB connection settings. IngestConf is a QuestDB
// sender configuration string such as "http::addr=localhost:9000;",
// QueryURL is a pgwire connection string against port 8812.
type Config struct {
	IngestConf string
	QueryURL   string
}

// DB is a live QuestDB connection implementing engine.Engine.
type DB struct {
	sender qdb.LineSender
	pool   *pgxpool.Pool
	log    *slog.Logger

	mu   sync.Mutex
	meta map[string]tableMeta
}

// New opens the ILP sender and the pgwire query pool.
func New(ctx context.Context, log *slog.Logger, cfg Config) (*DB, error) {
	sender, err := qdb.LineSenderFromConf(ctx, cfg.IngestConf)
	if err != nil {
		return nil, fmt.Errorf("failed to create QuestDB sender: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.QueryURL)
	if err != nil {
		sender.Close(ctx)
		return nil, fmt.Errorf("failed to create QuestDB query pool: %w", err)
	}

	log.Debug("QuestDB connection initialized", "ingest", cfg.IngestConf)

	return &DB{sender: sender, pool: pool, log: log, meta: make(map[string]tableMeta)}, nil
}

func (d *DB) Name() catalog.Engine {
	return catalog.EngineQuestDB
}

func (d *DB) Fetch(ctx context.Context, query string) (*engine.Result, error) {
	rows, err := d.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("questdb query failed: %w", err)
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
			return nil, fmt.Errorf("questdb scan failed: %w", err)
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("questdb query failed: %w", err)
	}
	return result, nil
}

func (d *DB) Exec(ctx context.Context, stmt string) error {
	if _, err := d.pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("questdb exec failed: %w", err)
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

// tableMeta describes what an insert needs to know about a table: which
// columns are SYMBOL-typed (ILP requires those to be written as tags, not
// string fields) and which column, if any, is the designated timestamp.
type tableMeta struct {
	symbols    map[string]bool
	designated string
}

// parseTableMeta reads a SHOW COLUMNS result. The designated timestamp is
// reported per column as a boolean flag.
func parseTableMeta(result *engine.Result) tableMeta {
	idx := make(map[string]int, len(result.Columns))
	for i, col := range result.Columns {
		idx[col] = i
	}

	meta := tableMeta{symbols: make(map[string]bool)}
	for _, row := range result.Rows {
		name, _ := row[idx["column"]].(string)
		if typ, _ := row[idx["type"]].(string); typ == "SYMBOL" {
			meta.symbols[name] = true
		}
		if i, ok := idx["designated"]; ok {
			if designated, _ := row[i].(bool); designated {
				meta.designated = name
			}
		}
	}
	return meta
}

func (d *DB) tableMeta(ctx context.Context, table string) (tableMeta, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if meta, ok := d.meta[table]; ok {
		return meta, nil
	}

	result, err := d.Fetch(ctx, fmt.Sprintf("SHOW COLUMNS FROM %s", table))
	if err != nil {
		return tableMeta{}, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}

	meta := parseTableMeta(result)
	d.meta[table] = meta
	return meta, nil
}

// Insert loads rows into a table. Tables with a designated timestamp are
// streamed over ILP, with the designated column carried as the line
// timestamp; tables without one go over pgwire.
func (d *DB) Insert(ctx context.Context, table string, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}

	meta, err := d.tableMeta(ctx, table)
	if err != nil {
		return err
	}
	if meta.designated == "" {
		return d.insertPGWire(ctx, table, columns, rows)
	}

	for _, row := range rows {
		line := d.sender.Table(table)

		// ILP mandates symbols before any other column.
		for i, value := range row {
			if s, ok := value.(string); ok && meta.symbols[columns[i]] {
				line = line.Symbol(columns[i], s)
			}
		}

		var ts time.Time
		var hasTS bool
		for i, value := range row {
			col := columns[i]
			if meta.symbols[col] {
				continue
			}
			switch v := value.(type) {
			case nil:
				continue
			case time.Time:
				if col == meta.designated {
					ts, hasTS = v, true
				} else {
					line = line.TimestampColumn(col, v)
				}
			case string:
				line = line.StringColumn(col, v)
			case bool:
				line = line.BoolColumn(col, v)
			case int:
				line = line.Int64Column(col, int64(v))
			case int16:
				line = line.Int64Column(col, int64(v))
			case int32:
				line = line.Int64Column(col, int64(v))
			case int64:
				line = line.Int64Column(col, v)
			case float32:
				line = line.Float64Column(col, float64(v))
			case float64:
				line = line.Float64Column(col, v)
			default:
				return fmt.Errorf("questdb insert: unsupported value type %T for column %s", value, col)
			}
		}

		var err error
		if hasTS {
			err = line.At(ctx, ts)
		} else {
			err = line.AtNow(ctx)
		}
		if err != nil {
			return fmt.Errorf("questdb insert failed: %w", err)
		}
	}

	if err := d.sender.Flush(ctx); err != nil {
		return fmt.Errorf("questdb flush failed: %w", err)
	}

	d.log.Debug("inserted rows", "engine", d.Name(), "table", table, "rows", len(rows))
	return nil
}

func (d *DB) insertPGWire(ctx context.Context, table string, columns []string, rows [][]any) error {
	placeholders := make([]string, len(columns))
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(query, row...)
	}
	if err := d.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("questdb insert failed: %w", err)
	}

	d.log.Debug("inserted rows", "engine", d.Name(), "table", table, "rows", len(rows))
	return nil
}

func (d *DB) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

func (d *DB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := d.sender.Close(ctx)
	d.pool.Close()
	return err
}
