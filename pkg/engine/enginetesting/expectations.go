package enginetesting

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wlaur/olap-benchmarks/pkg/bench"
)

// orderEvents returns the generated order_events table and a column index.
func orderEvents(t *testing.T, tables []bench.Table) (bench.Table, map[string]int) {
	t.Helper()

	for _, table := range tables {
		if table.Name != "order_events" {
			continue
		}
		cols := make(map[string]int, len(table.Columns))
		for i, name := range table.Columns {
			cols[name] = i
		}
		return table, cols
	}
	require.FailNow(t, "generated data has no order_events table")
	return bench.Table{}, nil
}

// ExpectedDepartedBerlinApril counts generated Departed events from the
// Berlin terminal in April 2024. Every engine's count query for that
// scenario must agree with it.
func ExpectedDepartedBerlinApril(t *testing.T, tables []bench.Table) int64 {
	t.Helper()

	events, cols := orderEvents(t, tables)
	from := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	var count int64
	for _, row := range events.Rows {
		if row[cols["event_type"]] != "Departed" {
			continue
		}
		payload, _ := row[cols["event_payload"]].(string)
		if !strings.Contains(payload, `"terminal": "Berlin"`) {
			continue
		}
		at, _ := row[cols["event_created"]].(time.Time)
		if at.Before(from) || !at.Before(to) {
			continue
		}
		count++
	}
	return count
}

// BackupProcessorCounts tallies generated events with a NULL and with an
// empty backup_processor.
func BackupProcessorCounts(t *testing.T, tables []bench.Table) (nils, empties int64) {
	t.Helper()

	events, cols := orderEvents(t, tables)
	for _, row := range events.Rows {
		switch v := row[cols["backup_processor"]].(type) {
		case nil:
			nils++
		case string:
			if v == "" {
				empties++
			}
		}
	}
	return nils, empties
}

// AsInt64 converts a fetched cell to int64. Engines disagree on the Go type
// of count aggregates.
func AsInt64(t *testing.T, v any) int64 {
	t.Helper()

	switch n := v.(type) {
	case int64:
		return n
	case uint64:
		return int64(n)
	case int32:
		return int64(n)
	case int:
		return int64(n)
	default:
		require.FailNow(t, "unexpected numeric type", "%T", v)
		return 0
	}
}
