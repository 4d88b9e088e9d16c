package main

import (
	"github.com/urfave/cli/v3"
)

func getCommands(version string) []*cli.Command {
	cmds := []*cli.Command{}
	cmds = append(cmds, getSystemCommands(version)...)
	cmds = append(cmds, getLicenseCommands()...)
	return cmds
}

// formatFlag is the shared text/json output switch.
func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   "text",
		Usage:   "Output format: 'text' or 'json'",
	}
}

// identityFlags address a license by plain key or by digest.
func identityFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "key",
			Aliases: []string{"k"},
			Usage:   "License key as presented by the customer",
		},
		&cli.StringFlag{
			Name:    "digest",
			Aliases: []string{"d"},
			Usage:   "SHA-256 hex digest of the license key",
		},
	}
}
