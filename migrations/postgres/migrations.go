// Package migrations embeds the Postgres schema (users, signin audit,
// transactions, webhook events). River's job tables are migrated separately
// by rivermigrate at startup.
package migrations

import (
	"embed"

	"github.com/uptrace/bun/migrate"
)

//go:embed *.sql
var migrationFS embed.FS

// FS exposes the embedded SQL for external runners.
var FS = migrationFS

// Migrations is the bun/migrate registry the server applies at startup.
var Migrations = migrate.NewMigrations()

func init() {
	_ = Migrations.Discover(migrationFS)
}
