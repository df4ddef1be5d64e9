// Package sqlite implements the repository interfaces on an embedded
// SQLite database (modernc.org/sqlite — pure Go, no CGo).
//
// SQLite here plays the role of a document store: nested documents
// (datosLaborales, datosMedicos, the telemetry sample sequences) are
// stored as JSON text columns, and the dynamic per-entity partitions of
// the data model — one telemetry table per (user, day), one event table
// per profile — are ordinary tables created on demand with
// CREATE TABLE IF NOT EXISTS, which makes provisioning idempotent.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// DB wraps a sql.DB connection pool and implements the repository
// interfaces. The server owns it and closes it on shutdown.
type DB struct {
	conn *sql.DB
}

// dsnParams is appended to every database path. busy_timeout and
// foreign_keys are per-connection settings, so they must travel in the
// DSN to reach every connection the pool opens — a PRAGMA statement run
// through the pool would configure only the one connection it happens
// to land on. _txlock=immediate makes transactions take the write lock
// at BEGIN, so concurrent writers queue on the busy timeout instead of
// failing with SQLITE_BUSY at first write.
const dsnParams = "?_txlock=immediate" +
	"&_pragma=busy_timeout(5000)" +
	"&_pragma=journal_mode(WAL)" +
	"&_pragma=foreign_keys(1)"

// New opens the database at dbPath (":memory:" for tests) and runs
// migrations.
//
// The pool is capped at a single connection: SQLite allows one writer
// at a time anyway, and the cap also keeps ":memory:" databases
// coherent (each new connection to a plain :memory: path would open
// its own empty database).
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", "file:"+dbPath+dsnParams)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Credentials returns the credential repository backed by this database.
func (db *DB) Credentials() *CredentialRepo {
	return &CredentialRepo{db: db}
}

// Profiles returns the profile repository backed by this database.
func (db *DB) Profiles() *ProfileRepo {
	return &ProfileRepo{db: db}
}

// Telemetry returns the telemetry repository backed by this database.
func (db *DB) Telemetry() *TelemetryRepo {
	return &TelemetryRepo{db: db}
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies the database is reachable. Used by the health endpoint.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// migrate creates the fixed-schema tables. The dynamic tables (telemetry
// partitions, event namespaces) are created lazily by their repositories.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS credentials (
			id            TEXT PRIMARY KEY,
			nombre        TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating credentials table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS profiles (
			id               TEXT PRIMARY KEY,
			credential_id    TEXT UNIQUE REFERENCES credentials(id),
			nombre           TEXT NOT NULL,
			apellido_paterno TEXT NOT NULL DEFAULT '',
			apellido_materno TEXT NOT NULL DEFAULT '',
			fecha_nacimiento TEXT NOT NULL DEFAULT '',
			edad             INTEGER NOT NULL DEFAULT 0,
			sexo             TEXT NOT NULL DEFAULT '',
			email            TEXT NOT NULL DEFAULT '',
			telefono         TEXT NOT NULL DEFAULT '',
			datos_laborales  TEXT,
			datos_medicos    TEXT,
			setup_completo   INTEGER NOT NULL DEFAULT 0,
			created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_profiles_nombre_fecha
			ON profiles(nombre, fecha_nacimiento);
	`)
	if err != nil {
		return fmt.Errorf("creating profiles table: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
// modernc.org/sqlite exposes no typed error for this, so we match the
// message the SQLite engine produces.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// tableExists checks sqlite_master for a table with the given name.
func (db *DB) tableExists(ctx context.Context, name string) (bool, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`,
		name,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking table %s: %w", name, err)
	}
	return count > 0, nil
}
