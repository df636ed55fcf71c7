package deadletter

import (
	"embed"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// InitMigrations points goose at the embedded migrations.
func InitMigrations() {
	goose.SetBaseFS(migrationFS)
}
