package questdb

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wlaur/olap-benchmarks/pkg/engine"
)

func showColumnsResult(rows [][]any) *engine.Result {
	return &engine.Result{
		Columns: []string{
			"column", "type", "indexed", "indexBlockCapacity",
			"symbolCached", "symbolCapacity", "designated", "upsertKey",
		},
		Rows: rows,
	}
}

func TestOLAP_QuestDB_ParseTableMetaDesignated(t *testing.T) {
	t.Parallel()

	meta := parseTableMeta(showColumnsResult([][]any{
		{"order_id", "INT", false, 256, false, 0, false, false},
		{"event_created", "TIMESTAMP", false, 256, false, 0, true, false},
		{"event_type", "SYMBOL", false, 256, true, 256, false, false},
		{"event_payload", "STRING", false, 256, false, 0, false, false},
	}))

	require.Equal(t, "event_created", meta.designated)
	require.True(t, meta.symbols["event_type"])
	require.False(t, meta.symbols["event_payload"])
	require.False(t, meta.symbols["event_created"])
}

func TestOLAP_QuestDB_ParseTableMetaNoDesignated(t *testing.T) {
	t.Parallel()

	// A dimension table like customers carries timestamp columns without
	// any of them being designated. Inserts must not promote one.
	meta := parseTableMeta(showColumnsResult([][]any{
		{"customer_id", "INT", false, 256, false, 0, false, false},
		{"name", "STRING", false, 256, false, 0, false, false},
		{"birthday", "TIMESTAMP", false, 256, false, 0, false, false},
		{"country", "SYMBOL", false, 256, true, 256, false, false},
	}))

	require.Empty(t, meta.designated)
	require.True(t, meta.symbols["country"])
}
