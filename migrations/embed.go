// Package migrations carries the versioned SQL schema compiled into the binary
package migrations

import "embed"

// FS holds every NNN_name.sql migration
//
//go:embed *.sql
var FS embed.FS
