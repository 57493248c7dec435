// Package migrations embeds the swaps schema.
package migrations

import "embed"

// FS holds the SQL migration files. The statements are written to run
// unchanged on both SQLite and PostgreSQL.
//
//go:embed *.sql
var FS embed.FS
