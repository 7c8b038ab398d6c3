package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/craftandculture/Craft-Culture-sub006/pkg/database"
	"github.com/craftandculture/Craft-Culture-sub006/pkg/logger"
)

var (
	// Global test container (shared across all integration tests)
	globalContainer *PostgresContainer
	containerOnce   sync.Once
	containerErr    error
)

// IntegrationSuite provides a base for integration tests with real PostgreSQL
type IntegrationSuite struct {
	Container *PostgresContainer
	DB        *database.DB
	Fixtures  *FixtureFactory
	Logger    *logger.Logger
}

// NewIntegrationSuite starts (or reuses) the shared container and applies schema.
//
// Usage:
//
//	func TestIntegration(t *testing.T) {
//	    testutil.SkipIfShort(t)
//	    suite, err := testutil.NewIntegrationSuite(ctx, repository.Schema)
//	    require.NoError(t, err)
//	    defer suite.Cleanup()
//	}
func NewIntegrationSuite(ctx context.Context, schema string) (*IntegrationSuite, error) {
	containerOnce.Do(func() {
		globalContainer, containerErr = StartPostgres(ctx)
	})
	if containerErr != nil {
		return nil, containerErr
	}

	log := logger.Nop()
	db, err := database.NewWithDSN(globalContainer.DSN, log)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx, schema); err != nil {
		db.Close()
		return nil, err
	}

	return &IntegrationSuite{
		Container: globalContainer,
		DB:        db,
		Fixtures:  NewFixtureFactory(),
		Logger:    log,
	}, nil
}

// Truncate empties the given tables between tests.
func (s *IntegrationSuite) Truncate(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	_, err := s.DB.ExecContext(ctx, fmt.Sprintf("TRUNCATE %s CASCADE", strings.Join(tables, ", ")))
	return err
}

// Cleanup closes the suite's connection. The container stays up for other tests.
func (s *IntegrationSuite) Cleanup() error {
	return s.DB.Close()
}

// TerminateContainer stops the shared container, typically from TestMain.
func TerminateContainer(ctx context.Context) {
	if globalContainer != nil {
		_ = globalContainer.Terminate(ctx)
	}
}
