package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"apartment-portal/internal/dataset"
)

// DB is a database/sql backed dataset provider for PostgreSQL and SQLite
type DB struct {
	conn   *sql.DB
	driver string
}

// NewDB connects to PostgreSQL
func NewDB(host, port, user, password, dbname, sslmode string) (*DB, error) {
	if sslmode == "" {
		sslmode = "disable"
	}
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: open")
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}

	return &DB{conn: conn, driver: "postgres"}, nil
}

// NewSQLiteDB opens a SQLite database file. ":memory:" is accepted
func NewSQLiteDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, eris.Wrap(err, "sqlite: ping")
	}
	return &DB{conn: conn, driver: "sqlite"}, nil
}

// NewDBFromConn wraps an existing connection opened with driver "postgres" or "sqlite"
func NewDBFromConn(conn *sql.DB, driver string) *DB {
	return &DB{conn: conn, driver: driver}
}

// Conn returns the underlying connection
func (db *DB) Conn() *sql.DB {
	return db.conn
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// Fetch reads every row of the named table or view
func (db *DB) Fetch(ctx context.Context, name string) (*dataset.RawTable, error) {
	quoted, err := quoteIdentifier(name)
	if err != nil {
		return nil, err
	}

	exists, err := db.hasTable(ctx, name, quoted)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, eris.Wrapf(dataset.ErrResourceUnavailable, "%s table not found: %s", db.driver, name)
	}

	rows, err := db.conn.QueryContext(ctx, "SELECT * FROM "+quoted)
	if err != nil {
		return nil, eris.Wrapf(err, "%s: select %s", db.driver, name)
	}
	defer rows.Close()

	return scanRows(rows)
}

func (db *DB) hasTable(ctx context.Context, name, quoted string) (bool, error) {
	var exists bool
	var err error
	switch db.driver {
	case "sqlite":
		var n int
		err = db.conn.QueryRowContext(ctx,
			`SELECT count(*) FROM sqlite_master WHERE type IN ('table', 'view') AND name = ?`, name,
		).Scan(&n)
		exists = n > 0
	default:
		err = db.conn.QueryRowContext(ctx, `SELECT to_regclass($1) IS NOT NULL`, quoted).Scan(&exists)
	}
	if err != nil {
		return false, eris.Wrapf(err, "%s: look up table %s", db.driver, name)
	}
	return exists, nil
}
