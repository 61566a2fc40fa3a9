package duckdb_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wlaur/olap-benchmarks/pkg/bench"
	"github.com/wlaur/olap-benchmarks/pkg/catalog"
	"github.com/wlaur/olap-benchmarks/pkg/engine"
	"github.com/wlaur/olap-benchmarks/pkg/engine/duckdb"
	"github.com/wlaur/olap-benchmarks/pkg/engine/enginetesting"
	"github.com/wlaur/olap-benchmarks/pkg/logger"
	"github.com/wlaur/olap-benchmarks/suites"
)

func newEngine(t *testing.T) *engine.SQLDB {
	t.Helper()

	// Empty path gives a fresh in-memory database per test.
	db, err := duckdb.New(t.Context(), logger.NewTest(), "")
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})
	return db
}

// populateSuite loads the generated data set for a suite and returns it for
// computing expectations.
func populateSuite(t *testing.T, eng engine.Engine, suite string) []bench.Table {
	t.Helper()

	cat, err := catalog.Load(suites.FS)
	require.NoError(t, err)

	runner, err := bench.NewRunner(bench.RunnerConfig{
		Log:     logger.NewTest(),
		Catalog: cat,
		Engine:  eng,
		Suite:   suite,
	})
	require.NoError(t, err)
	require.NoError(t, runner.Populate(t.Context()))

	tables, err := bench.GenerateData(suite, bench.DefaultSeed)
	require.NoError(t, err)
	return tables
}

func TestOLAP_DuckDB_WaitUntilReady(t *testing.T) {
	db := newEngine(t)
	require.NoError(t, engine.WaitUntilReady(t.Context(), logger.NewTest(), db, 30*time.Second))
}

func TestOLAP_DuckDB_SchemaIdempotent(t *testing.T) {
	db := newEngine(t)

	cat, err := catalog.Load(suites.FS)
	require.NoError(t, err)
	schema, err := cat.SchemaFor("rtabench", catalog.EngineDuckDB)
	require.NoError(t, err)

	require.NoError(t, db.ExecScript(t.Context(), schema))
	require.NoError(t, db.ExecScript(t.Context(), schema))

	result, err := db.Fetch(t.Context(), "SELECT count(*) FROM order_events")
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	require.Zero(t, enginetesting.AsInt64(t, result.Rows[0][0]))
}

func TestOLAP_DuckDB_Query0001MatchesGeneratedData(t *testing.T) {
	db := newEngine(t)
	tables := populateSuite(t, db, "rtabench")

	cat, err := catalog.Load(suites.FS)
	require.NoError(t, err)
	sql, err := cat.Resolve("rtabench", "0001", catalog.EngineDuckDB)
	require.NoError(t, err)

	result, err := db.Fetch(t.Context(), sql)
	require.NoError(t, err)

	var total int64
	for _, row := range result.Rows {
		total += enginetesting.AsInt64(t, row[1])
	}
	require.Equal(t, enginetesting.ExpectedDepartedBerlinApril(t, tables), total)
}

func TestOLAP_DuckDB_BackupProcessorNullAndEmptyAreDistinct(t *testing.T) {
	db := newEngine(t)
	tables := populateSuite(t, db, "rtabench")

	wantNils, wantEmpties := enginetesting.BackupProcessorCounts(t, tables)
	require.Positive(t, wantNils)
	require.Positive(t, wantEmpties)

	result, err := db.Fetch(t.Context(), `
		SELECT
			count(*) FILTER (WHERE backup_processor IS NULL) AS nulls,
			count(*) FILTER (WHERE backup_processor = '') AS empties
		FROM order_events`)
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	require.Equal(t, wantNils, enginetesting.AsInt64(t, result.Rows[0][0]))
	require.Equal(t, wantEmpties, enginetesting.AsInt64(t, result.Rows[0][1]))
}

// Every suite in the corpus ships a DuckDB schema, so the whole catalog can
// be executed in-process without a container.
func TestOLAP_DuckDB_AllSuitesExecute(t *testing.T) {
	cat, err := catalog.Load(suites.FS)
	require.NoError(t, err)

	for _, suite := range cat.Suites() {
		t.Run(suite, func(t *testing.T) {
			db := newEngine(t)
			populateSuite(t, db, suite)

			queries, err := cat.Queries(suite)
			require.NoError(t, err)

			for _, q := range queries {
				sql, err := cat.Resolve(suite, q.ID, catalog.EngineDuckDB)
				if q.Skipped(catalog.EngineDuckDB) {
					require.ErrorIs(t, err, catalog.ErrNotFound, "query %s", q.ID)
					continue
				}
				require.NoError(t, err, "query %s", q.ID)
				_, err = db.Fetch(t.Context(), sql)
				require.NoError(t, err, "query %s", q.ID)
			}
		})
	}
}
