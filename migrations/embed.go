// Package migrations embeds the postgres schema migrations so binaries
// can apply them without a migrations directory on disk.
package migrations

import "embed"

// FS holds every *.sql migration
//
//go:embed *.sql
var FS embed.FS
