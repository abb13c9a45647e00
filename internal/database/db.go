package database

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
)

// ErrNotFound is wrapped by lookups that match no row.
var ErrNotFound = errors.New("not found")

// DB wraps the PostgreSQL connection holding the trade ledger and the
// latest quotes.
type DB struct {
	conn *sql.DB
}

// New opens and verifies a database connection.
func New(connectionString string) (*DB, error) {
	conn, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{conn: conn}, nil
}

// NewFromConn wraps an existing connection. Used by tests with sqlmock.
func NewFromConn(conn *sql.DB) *DB {
	return &DB{conn: conn}
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks if the database is reachable
func (db *DB) Ping() error {
	return db.conn.Ping()
}
