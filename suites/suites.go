// Package suites embeds the benchmark SQL corpus: per-suite query files with
// engine dialect variants and per-engine schema DDL.
package suites

import "embed"

//go:embed rtabench time_series kaggle_airbnb
var FS embed.FS
