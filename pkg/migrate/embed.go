package migrate

import "embed"

// Migrations holds the SQL files compiled into every binary.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// EmbeddedDir is the directory of Migrations passed to goose.
const EmbeddedDir = "migrations"
