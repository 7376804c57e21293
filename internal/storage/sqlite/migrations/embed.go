package migrations

import "embed"

// FS contains embedded SQLite migrations for the stats and users tables.
//
//go:embed *.sql
var FS embed.FS
