package deadletter

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// Entry is a record whose single delivery attempt failed.
type Entry struct {
	ID        int64
	Source    string // source file path
	Line      int
	Offset    int64
	Data      []byte
	Sink      string
	Error     string
	CreatedAt time.Time
}

// Store keeps failed records so an operator can replay them later.
type Store interface {
	// Add persists an entry and returns its ID.
	Add(e Entry) (int64, error)

	// List returns up to limit entries, oldest first. limit <= 0 means all.
	List(limit int) ([]Entry, error)

	// Delete removes the entry with the given ID.
	Delete(id int64) error

	// Count returns the number of stored entries.
	Count() (int, error)

	// Close closes the store and releases any resources
	Close() error
}

type sqliteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the SQLite database at dbPath and applies migrations.
func NewSQLiteStore(dbPath string) (Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := ensureDir(dir); err != nil {
			return nil, fmt.Errorf("failed to create directory for database: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// concurrent puts may fail at the same time
	db.SetMaxOpenConns(1)

	InitMigrations()

	if err := goose.SetDialect("sqlite3"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set dialect: %w", err)
	}

	goose.SetTableName("logpush_db_version")

	if err := goose.Up(db, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Add(e Entry) (int64, error) {
	if e.Data == nil {
		e.Data = []byte{}
	}
	res, err := s.db.Exec(
		`INSERT INTO dead_letters (source, line, byte_offset, data, sink, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		e.Source, e.Line, e.Offset, e.Data, e.Sink, e.Error)
	if err != nil {
		return 0, fmt.Errorf("failed to add dead letter: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read dead letter id: %w", err)
	}
	return id, nil
}

func (s *sqliteStore) List(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(
		`SELECT id, source, line, byte_offset, data, sink, error, created_at
		 FROM dead_letters ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list dead letters: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Source, &e.Line, &e.Offset, &e.Data, &e.Sink, &e.Error, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan dead letter: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list dead letters: %w", err)
	}
	return out, nil
}

func (s *sqliteStore) Delete(id int64) error {
	if _, err := s.db.Exec(`DELETE FROM dead_letters WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete dead letter: %w", err)
	}
	return nil
}

func (s *sqliteStore) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM dead_letters`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count dead letters: %w", err)
	}
	return n, nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}
