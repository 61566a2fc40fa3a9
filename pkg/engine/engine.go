// Package engine defines the database connector interface shared by all
// benchmarked engines, plus helpers the connectors have in common: SQL
// script splitting, readiness polling, and a database/sql-backed
// implementation for engines without a native Go client API.
package engine

import (
	"context"

	"github.com/wlaur/olap-benchmarks/pkg/catalog"
)

// Result holds a fetched result set with untyped cells. Benchmarks only
// count rows and spot-check values, so there is no typed scanning layer.
type Result struct {
	Columns []string
	Rows    [][]any
}

// Len returns the number of rows.
func (r *Result) Len() int {
	return len(r.Rows)
}

// Engine is a live connection to one database engine.
type Engine interface {
	// Name identifies the dialect this connection speaks.
	Name() catalog.Engine

	// Fetch executes a query and materializes the full result set.
	Fetch(ctx context.Context, query string) (*Result, error)

	// Exec executes a single statement without reading results.
	Exec(ctx context.Context, stmt string) error

	// ExecScript executes a multi-statement SQL script, one statement at a
	// time. Comment-only statements are skipped.
	ExecScript(ctx context.Context, script string) error

	// Insert bulk-loads rows into a table using the fastest native path the
	// engine offers.
	Insert(ctx context.Context, table string, columns []string, rows [][]any) error

	// Ping verifies the connection is alive and the engine accepts queries.
	Ping(ctx context.Context) error

	Close() error
}
