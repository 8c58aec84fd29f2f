package database

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect identifies the SQL flavour behind a connection.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// DialectFor picks the driver from the DSN scheme; anything that is not a
// postgres URL is handed to SQLite.
func DialectFor(dsn string) Dialect {
	lower := strings.ToLower(dsn)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return Postgres
	}
	return SQLite
}

// Connect opens the database described by dsn.
func Connect(dsn string) (*sqlx.DB, error) {
	dialect := DialectFor(dsn)
	db, err := sqlx.Connect(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", dialect, err)
	}
	if dialect == SQLite {
		// SQLite allows one writer; a single connection serialises
		// transactions instead of surfacing SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// DialectOf reports the dialect of an open handle.
func DialectOf(db *sqlx.DB) Dialect {
	if db.DriverName() == string(Postgres) {
		return Postgres
	}
	return SQLite
}
