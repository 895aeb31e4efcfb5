// Package migrations embeds the SQL schema of every SQL backend.
package migrations

import "embed"

// FS holds one directory of golang-migrate files per backend.
//
//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS

// Directory names inside FS.
const (
	PostgresDir = "postgres"
	SQLiteDir   = "sqlite"
)
