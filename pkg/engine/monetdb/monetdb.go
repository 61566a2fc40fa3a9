// Package monetdb connects to a MonetDB server over MAPI.
package monetdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/MonetDB/MonetDB-Go/v2" // Register monetdb driver with database/sql

	"github.com/wlaur/olap-benchmarks/pkg/catalog"
	"github.com/wlaur/olap-benchmarks/pkg/engine"
)

// Config holds the MonetDB connection settings.
type Config struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
}

// DSN renders the config in the driver's user:pass@host:port/db form.
func (c Config) DSN() string {
	return fmt.Sprintf("%s:%s@%s:%s/%s", c.Username, c.Password, c.Host, c.Port, c.Database)
}

// New opens a MonetDB connection. The connection is lazy; readiness is
// checked through Ping so callers can retry against a booting server.
func New(ctx context.Context, log *slog.Logger, cfg Config) (*engine.SQLDB, error) {
	db, err := sql.Open("monetdb", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open MonetDB connection: %w", err)
	}

	log.Debug("MonetDB connection initialized", "host", cfg.Host, "port", cfg.Port, "database", cfg.Database)

	return engine.NewSQLDB(catalog.EngineMonetDB, db, log), nil
}
