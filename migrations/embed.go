// Package migrations embeds the SQL schema files into the binary.
//
// Importing this package (usually for side effects) registers the
// embedded files with the database package so db.Migrate works without
// the SQL files on disk.
package migrations

import (
	"embed"

	"github.com/nerrad567/homepanel-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
