// Package sqlite implements the repository interfaces on top of SQLite.
//
// modernc.org/sqlite is a pure Go port of SQLite, so the server builds without
// CGo and tests run against ":memory:" databases.
//
// The schema lives in migrations/*.sql, embedded into the binary and applied
// by golang-migrate when the database is opened. Queries are built with
// squirrel; every repository follows the same shape:
//
//	xxxColumns()            → the column list shared by SELECT and INSERT
//	scanXxx(sq.RowScanner)  → one row into a model value
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB owns the connection pool and hands out one repository per aggregate.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath and migrates it to the latest schema.
//
// dbPath examples:
//   - "data/fieldfinder.db" → file-based database
//   - ":memory:"            → in-memory database, gone when closed (tests)
//
// The pool is limited to ONE connection. SQLite serialises writers anyway,
// and every ":memory:" connection would otherwise be a separate, empty database.
// The flip side: never run a query while iterating rows of another one.
func New(ctx context.Context, dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in progress (no-op for :memory:).
	// Foreign keys are OFF by default in SQLite; reviews and comments cascade on them.
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON"} {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}

	db := &DB{conn: conn}

	if err := db.MigrateUp(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	return db, nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable. The health check uses it.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) Users() *UserRepository       { return &UserRepository{db: db.conn} }
func (db *DB) Fields() *FieldRepository     { return &FieldRepository{db: db.conn} }
func (db *DB) Reviews() *ReviewRepository   { return &ReviewRepository{db: db.conn} }
func (db *DB) Comments() *CommentRepository { return &CommentRepository{db: db.conn} }
func (db *DB) Revocations() *RevocationRepository {
	return &RevocationRepository{db: db.conn}
}

func (db *DB) migrateInstance() (*migrate.Migrate, error) {
	driver, err := migratesqlite.WithInstance(db.conn, &migratesqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("sqlite: creating migrate driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("sqlite: creating migrate instance: %w", err)
	}

	return m, nil
}

// MigrateUp applies every pending migration. Running it on an up-to-date
// database is a no-op.
//
// The migrate instance is not closed: closing it would close db.conn too.
func (db *DB) MigrateUp(ctx context.Context) error {
	m, err := db.migrateInstance()
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("sqlite: applying migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("sqlite: reading migration version: %w", err)
	}

	slog.DebugContext(ctx, "database migrated", "version", version, "dirty", dirty)

	return nil
}

// closeRows closes rows and logs a failure, for use in defer.
func closeRows(ctx context.Context, rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		slog.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}

// isUniqueViolation reports whether err is SQLite rejecting a duplicate key.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// nullString maps "" to SQL NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
