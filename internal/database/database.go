// Package database opens the backing store and runs migrations. SQLite and
// PostgreSQL are both supported; repositories write queries with `?`
// placeholders and call Rebind, which rewrites them for PostgreSQL.
package database

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"jobtrack/internal/config"
)

// DB wraps sql.DB with the driver name so repositories can stay
// placeholder-agnostic.
type DB struct {
	*sql.DB
	driver string
}

// Init opens the configured database, pings it, and applies migrations.
func Init(cfg *config.Config) (*DB, error) {
	var (
		driver string
		dsn    string
	)

	switch cfg.DatabaseType {
	case "postgres", "postgresql":
		driver = "pgx"
		dsn = cfg.PostgresDSN()
	default:
		driver = "sqlite3"
		dsn = cfg.DatabasePath
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	dbWrapper := &DB{DB: db, driver: driver}
	if err := dbWrapper.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return dbWrapper, nil
}

// InitSQLite opens a standalone SQLite database at path. Used by tests.
func InitSQLite(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	dbWrapper := &DB{DB: db, driver: "sqlite3"}
	if err := dbWrapper.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return dbWrapper, nil
}

// IsPostgres reports whether the underlying driver is PostgreSQL.
func (db *DB) IsPostgres() bool {
	return db.driver == "pgx"
}

// Rebind rewrites `?` placeholders to `$1, $2, ...` for PostgreSQL.
// SQLite queries pass through unchanged.
func (db *DB) Rebind(query string) string {
	if !db.IsPostgres() {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (db *DB) migrate() error {
	var queries []string

	if db.IsPostgres() {
		queries = []string{
			`CREATE TABLE IF NOT EXISTS oauth_credentials (
				identity TEXT PRIMARY KEY,
				access_token TEXT NOT NULL DEFAULT '',
				refresh_token TEXT NOT NULL DEFAULT '',
				token_uri TEXT NOT NULL DEFAULT '',
				client_id TEXT NOT NULL DEFAULT '',
				client_secret TEXT NOT NULL DEFAULT '',
				scopes TEXT NOT NULL DEFAULT '',
				expiry TEXT NOT NULL DEFAULT '',
				updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE TABLE IF NOT EXISTS job_applications (
				id SERIAL PRIMARY KEY,
				organisation TEXT NOT NULL,
				role TEXT NOT NULL,
				location TEXT NOT NULL DEFAULT '',
				url TEXT NOT NULL DEFAULT '',
				method TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL DEFAULT 'pending',
				notes TEXT NOT NULL DEFAULT '',
				applied_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
				created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE TABLE IF NOT EXISTS tasks (
				id SERIAL PRIMARY KEY,
				title TEXT NOT NULL,
				complete BOOLEAN NOT NULL DEFAULT FALSE,
				created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE INDEX IF NOT EXISTS idx_job_applications_status ON job_applications(status)`,
			`CREATE INDEX IF NOT EXISTS idx_job_applications_applied_at ON job_applications(applied_at)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_job_applications_org_role
				ON job_applications (LOWER(organisation), LOWER(role))`,
		}
	} else {
		queries = []string{
			`CREATE TABLE IF NOT EXISTS oauth_credentials (
				identity TEXT PRIMARY KEY,
				access_token TEXT NOT NULL DEFAULT '',
				refresh_token TEXT NOT NULL DEFAULT '',
				token_uri TEXT NOT NULL DEFAULT '',
				client_id TEXT NOT NULL DEFAULT '',
				client_secret TEXT NOT NULL DEFAULT '',
				scopes TEXT NOT NULL DEFAULT '',
				expiry TEXT NOT NULL DEFAULT '',
				updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE TABLE IF NOT EXISTS job_applications (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				organisation TEXT NOT NULL,
				role TEXT NOT NULL,
				location TEXT NOT NULL DEFAULT '',
				url TEXT NOT NULL DEFAULT '',
				method TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL DEFAULT 'pending',
				notes TEXT NOT NULL DEFAULT '',
				applied_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE TABLE IF NOT EXISTS tasks (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				title TEXT NOT NULL,
				complete BOOLEAN NOT NULL DEFAULT 0,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE INDEX IF NOT EXISTS idx_job_applications_status ON job_applications(status)`,
			`CREATE INDEX IF NOT EXISTS idx_job_applications_applied_at ON job_applications(applied_at)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_job_applications_org_role
				ON job_applications (LOWER(organisation), LOWER(role))`,
		}
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute migration query: %w", err)
		}
	}

	return nil
}
