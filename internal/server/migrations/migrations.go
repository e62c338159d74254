// Package migrations embeds the goose schema migrations, one directory per
// SQL dialect. Both directories describe the same five tables.
package migrations

import "embed"

//go:embed postgres/*.sql sqlite/*.sql
var Migrations embed.FS
