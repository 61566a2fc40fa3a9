package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "olapbench_build_info",
			Help: "Build information of the OLAP benchmark harness",
		},
		[]string{"version", "commit", "date"},
	)

	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "olapbench_queries_total",
			Help: "Total number of benchmark query executions",
		},
		[]string{"suite", "engine", "status"},
	)

	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "olapbench_query_duration_seconds",
			Help:    "Duration of benchmark query executions",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 16), // 0.001s to ~32s
		},
		[]string{"suite", "engine"},
	)

	PopulateRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "olapbench_populate_rows_total",
			Help: "Total number of rows loaded into engines during populate",
		},
		[]string{"suite", "engine", "table"},
	)
)
