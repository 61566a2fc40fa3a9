package server

import (
	"errors"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/wlaur/olap-benchmarks/pkg/catalog"
	"github.com/wlaur/olap-benchmarks/pkg/results"
)

// VersionInfo contains build-time version information.
type VersionInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Config holds the HTTP server configuration. Store may be nil when the
// server only exposes the catalog. A zero RateLimit falls back to 100
// requests per minute per IP with a burst of 20.
type Config struct {
	ListenAddr        string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	VersionInfo       VersionInfo
	Logger            *slog.Logger
	Catalog           *catalog.Catalog
	Store             *results.Store
	RateLimit         rate.Limit
	RateLimitBurst    int
}

func (cfg *Config) Validate() error {
	if cfg.ListenAddr == "" {
		return errors.New("listen addr is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Catalog == nil {
		return errors.New("catalog is required")
	}
	return nil
}
