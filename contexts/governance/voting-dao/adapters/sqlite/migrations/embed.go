package migrations

import "embed"

// FS contains embedded SQLite migrations for voting storage.
//
//go:embed *.sql
var FS embed.FS
