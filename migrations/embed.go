// Package migrations embeds the schema files for each storage backend.
package migrations

import "embed"

// SQLite holds the SQLite schema migrations
//
//go:embed sqlite/*.sql
var SQLite embed.FS

// Postgres holds the PostgreSQL schema migrations
//
//go:embed postgres/*.sql
var Postgres embed.FS
