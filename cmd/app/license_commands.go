package main

import (
	"context"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/scrilab/artale-auth/cmd/app/commands"
	"github.com/scrilab/artale-auth/internal/app"
	"github.com/scrilab/artale-auth/internal/config"
	licenseUseCase "github.com/scrilab/artale-auth/internal/license/usecase"
)

func getLicenseCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "create-license",
			Usage: "Issue a new license, or renew an existing one with --key",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "name",
					Aliases:  []string{"n"},
					Required: true,
					Usage:    "Customer name",
				},
				&cli.StringFlag{
					Name:    "key",
					Aliases: []string{"k"},
					Usage:   "Existing license key to renew (omit to generate a new one)",
				},
				&cli.StringFlag{
					Name:    "plan",
					Aliases: []string{"p"},
					Usage:   "Plan label, e.g. monthly or lifetime",
				},
				&cli.StringFlag{
					Name:  "permissions",
					Value: "script_access",
					Usage: "Comma separated permissions (script_access, config_modify)",
				},
				&cli.IntFlag{
					Name:  "days",
					Value: 0,
					Usage: "Days until the license expires (0 never expires)",
				},
				&cli.StringFlag{
					Name:  "reference",
					Usage: "Ticket or order reference",
				},
				&cli.StringFlag{
					Name:  "note",
					Usage: "Free-form administrative note",
				},
				formatFlag(),
			},
			Action: withLicenseUseCase(func(ctx context.Context, cmd *cli.Command, deps licenseDeps) error {
				return commands.RunCreateLicense(ctx, deps.useCase, deps.container.Logger(), deps.writer,
					commands.CreateLicenseParams{
						LicenseKey:  cmd.String("key"),
						Name:        cmd.String("name"),
						Plan:        cmd.String("plan"),
						Permissions: cmd.String("permissions"),
						Days:        int(cmd.Int("days")),
						Reference:   cmd.String("reference"),
						Note:        cmd.String("note"),
						Format:      cmd.String("format"),
					},
				)
			}),
		},
		{
			Name:  "deactivate-license",
			Usage: "Deactivate a license and revoke its sessions (refund, chargeback)",
			Flags: append(identityFlags(),
				&cli.StringFlag{
					Name:     "reason",
					Aliases:  []string{"r"},
					Required: true,
					Usage:    "Why the license is deactivated",
				},
				formatFlag(),
			),
			Action: withLicenseUseCase(func(ctx context.Context, cmd *cli.Command, deps licenseDeps) error {
				return commands.RunDeactivateLicense(
					ctx,
					deps.useCase,
					deps.container.Logger(),
					deps.writer,
					cmd.String("key"),
					cmd.String("digest"),
					cmd.String("reason"),
					cmd.String("format"),
				)
			}),
		},
		{
			Name:  "reactivate-license",
			Usage: "Mark a deactivated license active again",
			Flags: append(identityFlags(), formatFlag()),
			Action: withLicenseUseCase(func(ctx context.Context, cmd *cli.Command, deps licenseDeps) error {
				return commands.RunReactivateLicense(
					ctx,
					deps.useCase,
					deps.container.Logger(),
					deps.writer,
					cmd.String("key"),
					cmd.String("digest"),
					cmd.String("format"),
				)
			}),
		},
		{
			Name:  "show-license",
			Usage: "Show one license",
			Flags: append(identityFlags(), formatFlag()),
			Action: withLicenseUseCase(func(ctx context.Context, cmd *cli.Command, deps licenseDeps) error {
				return commands.RunShowLicense(
					ctx,
					deps.useCase,
					deps.writer,
					cmd.String("key"),
					cmd.String("digest"),
					cmd.String("format"),
				)
			}),
		},
		{
			Name:  "list-licenses",
			Usage: "List licenses, newest first",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "offset",
					Value: 0,
					Usage: "Number of licenses to skip",
				},
				&cli.IntFlag{
					Name:  "limit",
					Value: 50,
					Usage: "Maximum number of licenses to show (1-100)",
				},
				formatFlag(),
			},
			Action: withLicenseUseCase(func(ctx context.Context, cmd *cli.Command, deps licenseDeps) error {
				return commands.RunListLicenses(
					ctx,
					deps.useCase,
					deps.writer,
					int(cmd.Int("offset")),
					int(cmd.Int("limit")),
					cmd.String("format"),
				)
			}),
		},
	}
}

type licenseDeps struct {
	container *app.Container
	useCase   licenseUseCase.LicenseUseCase
	writer    io.Writer
}

// withLicenseUseCase loads the configuration, builds the container and hands
// the license use case to action. The container is shut down afterwards.
func withLicenseUseCase(
	action func(ctx context.Context, cmd *cli.Command, deps licenseDeps) error,
) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		container := app.NewContainer(config.Load())
		defer func() { _ = container.Shutdown(ctx) }()

		useCase, err := container.LicenseUseCase()
		if err != nil {
			return err
		}

		return action(ctx, cmd, licenseDeps{
			container: container,
			useCase:   useCase,
			writer:    commands.DefaultIO().Writer,
		})
	}
}
