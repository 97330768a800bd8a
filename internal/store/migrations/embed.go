// Package migrations holds the embedded schema for both event log backends.
package migrations

import "embed"

// Postgres contains the PostgreSQL migrations under postgres/.
//
//go:embed postgres/*.sql
var Postgres embed.FS

// SQLite contains the SQLite migrations under sqlite/.
//
//go:embed sqlite/*.sql
var SQLite embed.FS
