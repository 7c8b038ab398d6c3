// Package testutil holds the shared test helpers of the warehouse services:
// a throwaway PostgreSQL, the in-memory event publisher, sqlmock setup and
// stock/location fixtures.
package testutil

import (
	"context"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	postgresImage  = "postgres:15-alpine"
	startupTimeout = time.Minute
)

// PostgresContainer is a disposable PostgreSQL for integration tests.
type PostgresContainer struct {
	*postgres.PostgresContainer
	DSN string
}

// PostgresOption adjusts the container before it starts.
type PostgresOption func(*postgresSettings)

type postgresSettings struct {
	image    string
	database string
	user     string
	password string
}

// WithDatabaseName overrides the database name (wms_test by default).
func WithDatabaseName(name string) PostgresOption {
	return func(s *postgresSettings) { s.database = name }
}

// WithImage overrides the postgres image.
func WithImage(image string) PostgresOption {
	return func(s *postgresSettings) { s.image = image }
}

// StartPostgres runs a PostgreSQL container and waits until it accepts
// connections. The server logs readiness twice: once for the init run and
// once after the restart.
func StartPostgres(ctx context.Context, opts ...PostgresOption) (*PostgresContainer, error) {
	s := postgresSettings{image: postgresImage, database: "wms_test", user: "wms", password: "wms"}
	for _, opt := range opts {
		opt(&s)
	}

	c, err := postgres.RunContainer(ctx,
		testcontainers.WithImage(s.image),
		postgres.WithDatabase(s.database),
		postgres.WithUsername(s.user),
		postgres.WithPassword(s.password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(startupTimeout),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("start postgres container: %w", err)
	}

	dsn, err := c.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, fmt.Errorf("postgres connection string: %w", err)
	}
	return &PostgresContainer{PostgresContainer: c, DSN: dsn}, nil
}
