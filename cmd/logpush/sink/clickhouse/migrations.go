package clickhouse

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// ReadEmbeddedMigration returns the raw content of an embedded migration.
func ReadEmbeddedMigration(name string) (string, error) {
	b, err := migrationFS.ReadFile("migrations/" + name)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// renderMigrations writes the embedded migrations to dir with the table name substituted.
func renderMigrations(dir, fullTable string) error {
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		b, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return err
		}
		content := strings.ReplaceAll(string(b), "__TABLE_FULL__", fullTable)
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			return err
		}
	}
	return nil
}

// runMigrations creates the target table through goose.
func runMigrations(opts *ch.Options, fullTable string) error {
	db := ch.OpenDB(opts)
	defer func() { _ = db.Close() }()
	if err := db.Ping(); err != nil {
		return err
	}
	tmpDir, err := os.MkdirTemp("", "logpush_ch_mig_*")
	if err != nil {
		return err
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()
	if err := renderMigrations(tmpDir, fullTable); err != nil {
		return err
	}

	// the dead-letter store may have pointed goose at its embedded FS
	goose.SetBaseFS(nil)
	if err := goose.SetDialect("clickhouse"); err != nil {
		return err
	}
	goose.SetTableName("logpush_db_version")
	if err := goose.Up(db, tmpDir); err != nil {
		return fmt.Errorf("goose up failed: %w", err)
	}
	return nil
}
