package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"

	"github.com/scrilab/artale-auth/internal/database"
)

// IndexEnsurer is a document store repository that owns its indexes.
type IndexEnsurer interface {
	EnsureIndexes(ctx context.Context) error
}

// RunMigrations applies the embedded SQL migrations for driver (postgres or mysql).
// Returns nil if there are no migrations to apply.
func RunMigrations(logger *slog.Logger, driver, connectionString string) error {
	logger.Info("running database migrations", slog.String("driver", driver))

	m, err := database.NewMigrate(driver, connectionString)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer closeMigrate(m, logger)

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("migrations completed successfully")
	return nil
}

// RunMongoIndexes creates the collection indexes of every MongoDB repository.
// Index creation is idempotent so the command can run on every deploy.
func RunMongoIndexes(ctx context.Context, logger *slog.Logger, repositories map[string]IndexEnsurer) error {
	logger.Info("ensuring mongodb indexes", slog.Int("collections", len(repositories)))

	for name, repository := range repositories {
		if err := repository.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("failed to ensure %s indexes: %w", name, err)
		}
		logger.Debug("indexes ensured", slog.String("collection", name))
	}

	logger.Info("mongodb indexes completed successfully")
	return nil
}
