// Package migrations embeds the SQL schema migrations and seed files.
package migrations

import "embed"

// FS holds sql/*.sql (NNNN_name.up.sql / .down.sql pairs) and seeds/*.sql.
//
//go:embed sql/*.sql seeds/*.sql
var FS embed.FS

// Directory names inside FS.
const (
	MigrationsDir = "sql"
	SeedsDir      = "seeds"
)
