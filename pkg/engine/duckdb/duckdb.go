// Package duckdb runs an in-process DuckDB database.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/marcboeker/go-duckdb/v2" // Register duckdb driver with database/sql

	"github.com/wlaur/olap-benchmarks/pkg/catalog"
	"github.com/wlaur/olap-benchmarks/pkg/engine"
)

// New opens a DuckDB database at the given path. An empty path gives an
// in-memory database.
func New(ctx context.Context, log *slog.Logger, path string) (*engine.SQLDB, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB database: %w", err)
	}

	log.Debug("DuckDB database opened", "path", path)

	return engine.NewSQLDB(catalog.EngineDuckDB, db, log), nil
}
