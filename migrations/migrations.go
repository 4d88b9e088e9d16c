// Package migrations embeds the SQL schema migrations for the supported SQL drivers.
package migrations

import "embed"

// FS holds the migration files under postgresql/ and mysql/.
//
//go:embed postgresql/*.sql mysql/*.sql
var FS embed.FS
