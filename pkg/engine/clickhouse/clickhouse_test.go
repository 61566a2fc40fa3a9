package clickhouse_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wlaur/olap-benchmarks/pkg/bench"
	"github.com/wlaur/olap-benchmarks/pkg/catalog"
	"github.com/wlaur/olap-benchmarks/pkg/engine"
	"github.com/wlaur/olap-benchmarks/pkg/engine/clickhouse"
	"github.com/wlaur/olap-benchmarks/pkg/engine/enginetesting"
	"github.com/wlaur/olap-benchmarks/pkg/logger"
	"github.com/wlaur/olap-benchmarks/suites"
)

var testDB *enginetesting.ClickHouseDB

func TestMain(m *testing.M) {
	ctx := context.Background()
	log := logger.NewTest()

	var err error
	testDB, err = enginetesting.NewClickHouseDB(ctx, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start ClickHouse container: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	testDB.Close()
	os.Exit(code)
}

func newEngine(t *testing.T) *clickhouse.DB {
	t.Helper()

	db, err := clickhouse.New(t.Context(), logger.NewTest(), clickhouse.Config{
		Addr:     testDB.Addr,
		Database: testDB.Database,
		Username: testDB.Username,
		Password: testDB.Password,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})
	return db
}

func populateRTABench(t *testing.T, eng engine.Engine) []bench.Table {
	t.Helper()

	cat, err := catalog.Load(suites.FS)
	require.NoError(t, err)

	runner, err := bench.NewRunner(bench.RunnerConfig{
		Log:     logger.NewTest(),
		Catalog: cat,
		Engine:  eng,
		Suite:   "rtabench",
	})
	require.NoError(t, err)
	require.NoError(t, runner.Populate(t.Context()))

	tables, err := bench.GenerateData("rtabench", bench.DefaultSeed)
	require.NoError(t, err)
	return tables
}

func TestOLAP_ClickHouse_WaitUntilReady(t *testing.T) {
	db := newEngine(t)
	require.NoError(t, engine.WaitUntilReady(t.Context(), logger.NewTest(), db, 30*time.Second))
}

func TestOLAP_ClickHouse_SchemaIdempotent(t *testing.T) {
	db := newEngine(t)

	cat, err := catalog.Load(suites.FS)
	require.NoError(t, err)
	schema, err := cat.SchemaFor("rtabench", catalog.EngineClickHouse)
	require.NoError(t, err)

	require.NoError(t, db.ExecScript(t.Context(), schema))
	require.NoError(t, db.ExecScript(t.Context(), schema))

	result, err := db.Fetch(t.Context(), "SELECT count(*) FROM order_events")
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	require.Zero(t, enginetesting.AsInt64(t, result.Rows[0][0]))
}

func TestOLAP_ClickHouse_Query0001MatchesGeneratedData(t *testing.T) {
	db := newEngine(t)
	tables := populateRTABench(t, db)

	cat, err := catalog.Load(suites.FS)
	require.NoError(t, err)
	sql, err := cat.Resolve("rtabench", "0001", catalog.EngineClickHouse)
	require.NoError(t, err)

	result, err := db.Fetch(t.Context(), sql)
	require.NoError(t, err)

	var total int64
	for _, row := range result.Rows {
		total += enginetesting.AsInt64(t, row[1])
	}
	require.Equal(t, enginetesting.ExpectedDepartedBerlinApril(t, tables), total)
}

// The ClickHouse schema uses non-Nullable String for backup_processor, so
// NULL cells arrive as empty strings. The empty-string count therefore
// covers both variants the generator emits.
func TestOLAP_ClickHouse_BackupProcessorCollapsesNullToEmpty(t *testing.T) {
	db := newEngine(t)
	tables := populateRTABench(t, db)

	wantNils, wantEmpties := enginetesting.BackupProcessorCounts(t, tables)
	require.Positive(t, wantNils)
	require.Positive(t, wantEmpties)

	result, err := db.Fetch(t.Context(),
		"SELECT count(*) FROM order_events WHERE backup_processor = ''")
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	require.Equal(t, wantNils+wantEmpties, enginetesting.AsInt64(t, result.Rows[0][0]))
}

func TestOLAP_ClickHouse_AllQueriesExecute(t *testing.T) {
	db := newEngine(t)
	populateRTABench(t, db)

	cat, err := catalog.Load(suites.FS)
	require.NoError(t, err)
	queries, err := cat.Queries("rtabench")
	require.NoError(t, err)

	for _, q := range queries {
		sql, err := cat.Resolve("rtabench", q.ID, catalog.EngineClickHouse)
		require.NoError(t, err, "query %s", q.ID)
		_, err = db.Fetch(t.Context(), sql)
		require.NoError(t, err, "query %s", q.ID)
	}
}
