package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOLAP_SplitStatements(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		script string
		want   []string
	}{
		{
			name:   "single statement",
			script: "SELECT 1;",
			want:   []string{"SELECT 1"},
		},
		{
			name:   "multiple statements",
			script: "DROP TABLE IF EXISTS t;\nCREATE TABLE t (id INT);\n",
			want:   []string{"DROP TABLE IF EXISTS t", "CREATE TABLE t (id INT)"},
		},
		{
			name:   "trailing whitespace only",
			script: "SELECT 1;\n\n  \n",
			want:   []string{"SELECT 1"},
		},
		{
			name:   "comment-only statement skipped",
			script: "-- header comment\n;\nSELECT 1;\n-- trailing comment\n",
			want:   []string{"SELECT 1"},
		},
		{
			name:   "inline comment kept with statement",
			script: "-- schema\nCREATE TABLE t (\n    id INT -- key\n);",
			want:   []string{"-- schema\nCREATE TABLE t (\n    id INT -- key\n)"},
		},
		{
			name:   "empty script",
			script: "",
			want:   nil,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, SplitStatements(tt.script))
		})
	}
}
