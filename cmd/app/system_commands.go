package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/scrilab/artale-auth/cmd/app/commands"
	"github.com/scrilab/artale-auth/internal/app"
	"github.com/scrilab/artale-auth/internal/config"
	"github.com/scrilab/artale-auth/internal/database"
)

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "server",
			Usage: "Start the HTTP server",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunServer(ctx, version)
			},
		},
		{
			Name:  "migrate",
			Usage: "Run database migrations (SQL schema or MongoDB indexes)",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				if database.IsSQLDriver(cfg.DBDriver) {
					return commands.RunMigrations(container.Logger(), cfg.DBDriver, cfg.DBConnectionString)
				}
				if cfg.DBDriver != database.DriverMongoDB {
					return fmt.Errorf("unsupported database driver: %s", cfg.DBDriver)
				}

				repositories, err := mongoIndexEnsurers(container)
				if err != nil {
					return err
				}
				return commands.RunMongoIndexes(ctx, container.Logger(), repositories)
			},
		},
		{
			Name:  "sweep-sessions",
			Usage: "Delete expired sessions once",
			Flags: []cli.Flag{formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				authUseCase, err := container.AuthUseCase()
				if err != nil {
					return err
				}

				return commands.RunSweepSessions(
					ctx,
					authUseCase,
					container.Logger(),
					commands.DefaultIO().Writer,
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "hash-admin-key",
			Usage: "Generate an admin API key or hash an existing one for ADMIN_API_KEY_HASH",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "key",
					Aliases: []string{"k"},
					Usage:   "Admin key to hash (omit to generate a new one)",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())
				defer func() { _ = container.Shutdown(ctx) }()

				adminKeyService, err := container.AdminKeyService()
				if err != nil {
					return err
				}

				return commands.RunHashAdminKey(
					adminKeyService,
					commands.DefaultIO().Writer,
					cmd.String("key"),
					cmd.String("format"),
				)
			},
		},
	}
}

// mongoIndexEnsurers collects the MongoDB repositories that own indexes.
func mongoIndexEnsurers(container *app.Container) (map[string]commands.IndexEnsurer, error) {
	repositories := make(map[string]commands.IndexEnsurer)

	licenseRepository, err := container.LicenseRepository()
	if err != nil {
		return nil, err
	}
	attemptRepository, err := container.AttemptRepository()
	if err != nil {
		return nil, err
	}
	sessionRepository, err := container.SessionRepository()
	if err != nil {
		return nil, err
	}

	for name, repository := range map[string]any{
		"licenses":      licenseRepository,
		"auth_attempts": attemptRepository,
		"sessions":      sessionRepository,
	} {
		if ensurer, ok := repository.(commands.IndexEnsurer); ok {
			repositories[name] = ensurer
		}
	}
	return repositories, nil
}
