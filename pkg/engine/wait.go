package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wlaur/olap-benchmarks/pkg/retry"
)

// WaitUntilReady polls the engine until it answers a ping or the timeout
// elapses. Freshly started containers accept TCP connections before they
// accept queries, so this runs right after connecting and before any schema
// work.
func WaitUntilReady(ctx context.Context, log *slog.Logger, e Engine, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cfg := retry.Config{
		MaxAttempts: 60,
		BaseBackoff: 250 * time.Millisecond,
		MaxBackoff:  2 * time.Second,
	}

	log.Debug("waiting for engine", "engine", e.Name())

	err := retry.Do(ctx, cfg, func() error {
		return e.Ping(ctx)
	})
	if err != nil {
		return fmt.Errorf("engine %s not ready after %s: %w", e.Name(), timeout, err)
	}

	log.Debug("engine ready", "engine", e.Name())
	return nil
}
