package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// pragma is a connection setting applied on Open. Value is what we set,
// Reads is what SQLite reports back once it took effect.
type pragma struct {
	Name  string
	Value string
	Reads string
}

// connPragmas holds the settings every result database runs with.
// WAL lets `runs` commands read while a `mesh --db` run writes.
var connPragmas = []pragma{
	{Name: "journal_mode", Value: "WAL", Reads: "wal"},
	{Name: "synchronous", Value: "NORMAL", Reads: "1"},
	{Name: "busy_timeout", Value: "5000", Reads: "5000"},
	{Name: "foreign_keys", Value: "ON", Reads: "1"},
}

// migration upgrades a database from version-1 to version.
type migration struct {
	version int
	name    string
	stmt    string
}

// migrations lists schema upgrades in order. Databases created from
// schema.sql already have every change; the statements are idempotent.
var migrations = []migration{
	{
		version: 1,
		name:    "element history index",
		stmt: `CREATE INDEX IF NOT EXISTS idx_element_results_element
			ON element_results(element_id)`,
	},
}

// currentSchemaVersion is the user_version of an up-to-date database.
var currentSchemaVersion = migrations[len(migrations)-1].version

// Store keeps batch runs and their content-addressed meshes in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens the result database at path, creating it when missing.
// Use ":memory:" for a throwaway store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect %s: %w", path, err)
	}

	// One connection: SQLite allows a single writer, and an in-memory
	// database exists only on the connection that created it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, p := range connPragmas {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA %s = %s", p.Name, p.Value)); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma %s: %w", p.Name, err)
		}
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the connection for read-only queries such as scenario
// assertions against stored rows.
func (s *Store) DB() *sql.DB {
	return s.db
}

// SchemaVersion reports the database's user_version.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

// initSchema creates missing tables, then applies every migration newer
// than the stored user_version.
func initSchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		if _, err := db.Exec(m.stmt); err != nil {
			return fmt.Errorf("migrate to v%d (%s): %w", m.version, m.name, err)
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	return nil
}

// verifyPragma checks that SQLite reports value for a pragma.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return fmt.Errorf("query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
