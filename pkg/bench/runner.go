// Package bench drives benchmark runs: it provisions schemas, loads
// generated data, executes the suite's queries in manifest order, and
// records timings to the results store.
package bench

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/wlaur/olap-benchmarks/pkg/bench/metrics"
	"github.com/wlaur/olap-benchmarks/pkg/catalog"
	"github.com/wlaur/olap-benchmarks/pkg/engine"
	"github.com/wlaur/olap-benchmarks/pkg/results"
)

// DefaultSeed is the seed used when the caller does not pick one.
const DefaultSeed = 1

// RunnerConfig configures a Runner. Store may be nil, in which case
// timings are only exported as metrics and logs.
type RunnerConfig struct {
	Log     *slog.Logger
	Clock   clockwork.Clock
	Catalog *catalog.Catalog
	Store   *results.Store
	Engine  engine.Engine
	Suite   string
	Seed    uint64
}

// Runner executes one suite against one engine.
type Runner struct {
	log   *slog.Logger
	clock clockwork.Clock
	cat   *catalog.Catalog
	store *results.Store
	eng   engine.Engine
	suite string
	seed  uint64
}

// NewRunner validates the config and builds a runner.
func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if cfg.Log == nil {
		return nil, errors.New("log is required")
	}
	if cfg.Catalog == nil {
		return nil, errors.New("catalog is required")
	}
	if cfg.Engine == nil {
		return nil, errors.New("engine is required")
	}
	if cfg.Suite == "" {
		return nil, errors.New("suite is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Seed == 0 {
		cfg.Seed = DefaultSeed
	}

	return &Runner{
		log:   cfg.Log.With("run_id", uuid.NewString(), "suite", cfg.Suite, "engine", cfg.Engine.Name()),
		clock: cfg.Clock,
		cat:   cfg.Catalog,
		store: cfg.Store,
		eng:   cfg.Engine,
		suite: cfg.Suite,
		seed:  cfg.Seed,
	}, nil
}

// Populate applies the engine's schema for the suite and bulk-loads the
// generated data set. Safe to run repeatedly, the schemas drop and recreate
// their tables.
func (r *Runner) Populate(ctx context.Context) error {
	name := r.eng.Name()

	schema, err := r.cat.SchemaFor(r.suite, name)
	if err != nil {
		return fmt.Errorf("engine %s does not support suite %s: %w", name, r.suite, err)
	}

	r.log.Info("applying schema")
	if err := r.eng.ExecScript(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	tables, err := GenerateData(r.suite, r.seed)
	if err != nil {
		return err
	}

	benchID, err := r.startBenchmark(ctx, "populate")
	if err != nil {
		return err
	}

	for _, table := range tables {
		rows := table.Rows
		if name == catalog.EngineClickHouse {
			// The ClickHouse schemas use non-Nullable columns, absent
			// values load as zero strings.
			rows = replaceNils(rows)
		}

		if err := r.recordEvent(ctx, benchID, table.Name, results.EventStart); err != nil {
			return err
		}
		if err := r.eng.Insert(ctx, table.Name, table.Columns, rows); err != nil {
			return fmt.Errorf("failed to populate %s: %w", table.Name, err)
		}
		if err := r.recordEvent(ctx, benchID, table.Name, results.EventEnd); err != nil {
			return err
		}

		metrics.PopulateRowsTotal.WithLabelValues(r.suite, string(name), table.Name).Add(float64(len(rows)))
		r.log.Info("populated table", "table", table.Name, "rows", len(rows))
	}

	return r.finishBenchmark(ctx, benchID, "")
}

// Run executes every manifest query in order. Queries the engine has no
// variant for are skipped rather than failing the run; a query that errors
// aborts it.
func (r *Runner) Run(ctx context.Context) error {
	name := r.eng.Name()

	queries, err := r.cat.Queries(r.suite)
	if err != nil {
		return err
	}

	benchID, err := r.startBenchmark(ctx, "benchmark")
	if err != nil {
		return err
	}

	var executed, skipped int
	for _, q := range queries {
		sql, err := r.cat.Resolve(r.suite, q.ID, name)
		if errors.Is(err, catalog.ErrNotFound) {
			r.log.Debug("skipping query without variant", "query", q.ID)
			skipped++
			continue
		}
		if err != nil {
			return err
		}

		for i := 0; i < q.Iterations; i++ {
			elapsed, rows, err := r.runOnce(ctx, benchID, q.ID, sql)
			if err != nil {
				metrics.QueriesTotal.WithLabelValues(r.suite, string(name), "error").Inc()
				return fmt.Errorf("query %s failed: %w", q.ID, err)
			}

			metrics.QueriesTotal.WithLabelValues(r.suite, string(name), "success").Inc()
			metrics.QueryDuration.WithLabelValues(r.suite, string(name)).Observe(elapsed.Seconds())
			r.log.Info("query completed", "query", q.ID, "iteration", i+1, "rows", rows, "elapsed", elapsed)
		}
		executed++
	}

	r.log.Info("run completed", "executed", executed, "skipped", skipped)
	return r.finishBenchmark(ctx, benchID, fmt.Sprintf("executed=%d skipped=%d", executed, skipped))
}

func (r *Runner) runOnce(ctx context.Context, benchID int64, queryID, sql string) (time.Duration, int, error) {
	if err := r.recordEvent(ctx, benchID, queryID, results.EventStart); err != nil {
		return 0, 0, err
	}

	start := r.clock.Now()
	result, err := r.eng.Fetch(ctx, sql)
	elapsed := r.clock.Since(start)
	if err != nil {
		return 0, 0, err
	}

	if err := r.recordEvent(ctx, benchID, queryID, results.EventEnd); err != nil {
		return 0, 0, err
	}
	return elapsed, result.Len(), nil
}

func (r *Runner) startBenchmark(ctx context.Context, operation string) (int64, error) {
	if r.store == nil {
		return 0, nil
	}
	id, err := r.store.InsertBenchmark(ctx, r.suite, string(r.eng.Name()), operation, r.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to record benchmark: %w", err)
	}
	return id, nil
}

func (r *Runner) finishBenchmark(ctx context.Context, id int64, notes string) error {
	if r.store == nil {
		return nil
	}
	return r.store.FinishBenchmark(ctx, id, r.clock.Now(), notes)
}

func (r *Runner) recordEvent(ctx context.Context, id int64, name, typ string) error {
	if r.store == nil {
		return nil
	}
	return r.store.InsertEvent(ctx, id, r.clock.Now(), name, typ)
}

func replaceNils(rows [][]any) [][]any {
	out := make([][]any, len(rows))
	for i, row := range rows {
		out[i] = make([]any, len(row))
		for j, v := range row {
			if v == nil {
				out[i][j] = ""
			} else {
				out[i][j] = v
			}
		}
	}
	return out
}

// RunAll populates and runs the suite on every engine concurrently. The
// catalog is read-only after load, so sharing it across goroutines is safe;
// each engine gets its own runner.
func RunAll(ctx context.Context, cfg RunnerConfig, engines []engine.Engine) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, eng := range engines {
		eng := eng
		g.Go(func() error {
			engineCfg := cfg
			engineCfg.Engine = eng

			runner, err := NewRunner(engineCfg)
			if err != nil {
				return err
			}
			if err := runner.Populate(ctx); err != nil {
				return err
			}
			return runner.Run(ctx)
		})
	}

	return g.Wait()
}
