package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"dappradar-scraper/utils"
)

type dialect struct {
	driver string
	schema string
	upsert string
	load   string
}

var postgresDialect = dialect{
	driver: "postgres",
	schema: `
		CREATE TABLE IF NOT EXISTS documents (
			name       VARCHAR(100) PRIMARY KEY,
			body       TEXT         NOT NULL,
			updated_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		);
	`,
	upsert: `
		INSERT INTO documents (name, body, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at
	`,
	load: `SELECT body FROM documents WHERE name = $1`,
}

var sqliteDialect = dialect{
	driver: "sqlite",
	schema: `
		CREATE TABLE IF NOT EXISTS documents (
			name       TEXT PRIMARY KEY,
			body       TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`,
	upsert: `
		INSERT INTO documents (name, body, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at
	`,
	load: `SELECT body FROM documents WHERE name = ?`,
}

// SQLStore persists documents in a single `documents` table.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

// NewPostgresStore opens a connection to PostgreSQL, waits for it to accept
// pings, runs the schema migration and returns a ready-to-use store.
func NewPostgresStore(dsn string, logger *utils.Logger) (*SQLStore, error) {
	db, err := sql.Open(postgresDialect.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	ping := &utils.RetryConfig{MaxAttempts: 10, BaseDelay: 2 * time.Second, MaxDelay: 2 * time.Second, Logger: logger}
	if err := ping.Do("postgres-ping", db.Ping); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	return newSQLStore(db, postgresDialect)
}

// NewSQLiteStore opens (or creates) a SQLite database file. ":memory:" works
// for tests.
func NewSQLiteStore(path string) (*SQLStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("sqlite: create dir: %w", err)
		}
	}
	db, err := sql.Open(sqliteDialect.driver, path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// one connection: every :memory: connection is its own database
	db.SetMaxOpenConns(1)
	return newSQLStore(db, sqliteDialect)
}

func newSQLStore(db *sql.DB, d dialect) (*SQLStore, error) {
	s := &SQLStore{db: db, dialect: d}
	if _, err := db.Exec(d.schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: migrate: %w", d.driver, err)
	}
	return s, nil
}

func (s *SQLStore) Load(ctx context.Context, name string) ([]byte, error) {
	var body string
	err := s.db.QueryRowContext(ctx, s.dialect.load, name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %s: %w", s.dialect.driver, name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: load %s: %w", s.dialect.driver, name, err)
	}
	return []byte(body), nil
}

func (s *SQLStore) Save(ctx context.Context, name string, body []byte) error {
	_, err := s.db.ExecContext(ctx, s.dialect.upsert, name, string(body), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("%s: save %s: %w", s.dialect.driver, name, err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
