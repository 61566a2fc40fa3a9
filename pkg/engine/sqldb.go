package engine

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wlaur/olap-benchmarks/pkg/catalog"
)

// SQLDB implements Engine on top of a database/sql handle. DuckDB and
// MonetDB expose their Go clients as database/sql drivers only, so both
// connectors wrap this.
type SQLDB struct {
	name catalog.Engine
	db   *sql.DB
	log  *slog.Logger
}

// NewSQLDB wraps an open database handle.
func NewSQLDB(name catalog.Engine, db *sql.DB, log *slog.Logger) *SQLDB {
	return &SQLDB{name: name, db: db, log: log}
}

func (s *SQLDB) Name() catalog.Engine {
	return s.name
}

func (s *SQLDB) Fetch(ctx context.Context, query string) (*Result, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s query failed: %w", s.name, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%s query failed: %w", s.name, err)
	}

	result := &Result{Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("%s scan failed: %w", s.name, err)
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s query failed: %w", s.name, err)
	}
	return result, nil
}

func (s *SQLDB) Exec(ctx context.Context, stmt string) error {
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("%s exec failed: %w", s.name, err)
	}
	return nil
}

func (s *SQLDB) ExecScript(ctx context.Context, script string) error {
	for _, stmt := range SplitStatements(script) {
		if err := s.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Insert loads rows through a prepared statement inside one transaction.
func (s *SQLDB) Insert(ctx context.Context, table string, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}

	placeholders := make([]string, len(columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s insert failed: %w", s.name, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("%s insert failed: %w", s.name, err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("%s insert failed: %w", s.name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s insert failed: %w", s.name, err)
	}

	s.log.Debug("inserted rows", "engine", s.name, "table", table, "rows", len(rows))
	return nil
}

func (s *SQLDB) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLDB) Close() error {
	return s.db.Close()
}
