// Package enginetesting starts throwaway database containers for engine
// integration tests.
package enginetesting

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/docker/go-connections/nat"
	tcch "github.com/testcontainers/testcontainers-go/modules/clickhouse"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

const startAttempts = 3

// PostgresDB is a running PostgreSQL test container.
type PostgresDB struct {
	log       *slog.Logger
	container *tcpostgres.PostgresContainer

	Host     string
	Port     string
	Database string
	Username string
	Password string
}

// NewPostgresDB starts a PostgreSQL container. Container starts are retried,
// the docker daemon occasionally fails transiently under parallel test load.
func NewPostgresDB(ctx context.Context, log *slog.Logger) (*PostgresDB, error) {
	const (
		database = "test"
		username = "test"
		password = "test"
	)

	var container *tcpostgres.PostgresContainer
	var lastErr error
	for attempt := 1; attempt <= startAttempts; attempt++ {
		var err error
		container, err = tcpostgres.Run(ctx,
			"postgres:16-alpine",
			tcpostgres.WithDatabase(database),
			tcpostgres.WithUsername(username),
			tcpostgres.WithPassword(password),
			tcpostgres.BasicWaitStrategies(),
		)
		if err != nil {
			lastErr = err
			if isRetryableContainerStartErr(err) && attempt < startAttempts {
				time.Sleep(time.Duration(attempt) * 750 * time.Millisecond)
				continue
			}
			return nil, fmt.Errorf("failed to start PostgreSQL container after retries: %w", lastErr)
		}
		break
	}
	if container == nil {
		return nil, fmt.Errorf("failed to start PostgreSQL container after retries: %w", lastErr)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get PostgreSQL container host: %w", err)
	}
	mappedPort, err := container.MappedPort(ctx, nat.Port("5432/tcp"))
	if err != nil {
		return nil, fmt.Errorf("failed to get PostgreSQL container port: %w", err)
	}

	return &PostgresDB{
		log:       log,
		container: container,
		Host:      host,
		Port:      mappedPort.Port(),
		Database:  database,
		Username:  username,
		Password:  password,
	}, nil
}

func (db *PostgresDB) Close() {
	terminateCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.container.Terminate(terminateCtx); err != nil {
		db.log.Error("failed to terminate PostgreSQL container", "error", err)
	}
}

// ClickHouseDB is a running ClickHouse test container.
type ClickHouseDB struct {
	log       *slog.Logger
	container *tcch.ClickHouseContainer

	Addr     string
	Database string
	Username string
	Password string
}

// NewClickHouseDB starts a ClickHouse container.
func NewClickHouseDB(ctx context.Context, log *slog.Logger) (*ClickHouseDB, error) {
	const (
		database = "test"
		username = "default"
		password = "password"
	)

	var container *tcch.ClickHouseContainer
	var lastErr error
	for attempt := 1; attempt <= startAttempts; attempt++ {
		var err error
		container, err = tcch.Run(ctx,
			"clickhouse/clickhouse-server:latest",
			tcch.WithDatabase(database),
			tcch.WithUsername(username),
			tcch.WithPassword(password),
		)
		if err != nil {
			lastErr = err
			if isRetryableContainerStartErr(err) && attempt < startAttempts {
				time.Sleep(time.Duration(attempt) * 750 * time.Millisecond)
				continue
			}
			return nil, fmt.Errorf("failed to start ClickHouse container after retries: %w", lastErr)
		}
		break
	}
	if container == nil {
		return nil, fmt.Errorf("failed to start ClickHouse container after retries: %w", lastErr)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get ClickHouse container host: %w", err)
	}
	mappedPort, err := container.MappedPort(ctx, nat.Port("9000/tcp"))
	if err != nil {
		return nil, fmt.Errorf("failed to get ClickHouse container port: %w", err)
	}

	return &ClickHouseDB{
		log:       log,
		container: container,
		Addr:      fmt.Sprintf("%s:%s", host, mappedPort.Port()),
		Database:  database,
		Username:  username,
		Password:  password,
	}, nil
}

func (db *ClickHouseDB) Close() {
	terminateCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.container.Terminate(terminateCtx); err != nil {
		db.log.Error("failed to terminate ClickHouse container", "error", err)
	}
}

func isRetryableContainerStartErr(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "wait until ready") ||
		strings.Contains(s, "mapped port") ||
		strings.Contains(s, "timeout") ||
		strings.Contains(s, "context deadline exceeded") ||
		strings.Contains(s, "/containers/") && strings.Contains(s, "json") ||
		strings.Contains(s, "Get \"http://%2Fvar%2Frun%2Fdocker.sock")
}
