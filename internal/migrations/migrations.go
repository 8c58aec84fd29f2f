package migrations

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"pharmalink/m/internal/database"
)

// schema is written once and adapted per dialect through the
// placeholders below.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
            id {{pk}},
            email TEXT NOT NULL UNIQUE,
            password_hash TEXT NOT NULL,
            role TEXT NOT NULL,
            name TEXT NOT NULL,
            phone TEXT NOT NULL DEFAULT '',
            created_at {{ts}} NOT NULL
        );`,
	`CREATE TABLE IF NOT EXISTS pharmacies (
            id {{pk}},
            name TEXT NOT NULL,
            address TEXT NOT NULL DEFAULT '',
            latitude {{float}},
            longitude {{float}},
            phone TEXT NOT NULL DEFAULT '',
            owner_id INTEGER UNIQUE REFERENCES users(id),
            subscription_status TEXT NOT NULL DEFAULT 'inactive',
            created_at {{ts}} NOT NULL
        );`,
	`CREATE TABLE IF NOT EXISTS medications (
            id {{pk}},
            name TEXT NOT NULL UNIQUE,
            category TEXT NOT NULL DEFAULT '',
            generic_name TEXT NOT NULL DEFAULT '',
            description TEXT NOT NULL DEFAULT '',
            created_at {{ts}} NOT NULL
        );`,
	`CREATE TABLE IF NOT EXISTS inventory (
            id {{pk}},
            pharmacy_id INTEGER NOT NULL REFERENCES pharmacies(id),
            medication_id INTEGER NOT NULL REFERENCES medications(id),
            stock_quantity INTEGER NOT NULL DEFAULT 0 CHECK (stock_quantity >= 0),
            price NUMERIC(12,2) NOT NULL DEFAULT 0 CHECK (price >= 0),
            updated_at {{ts}} NOT NULL,
            UNIQUE (pharmacy_id, medication_id)
        );`,
	`CREATE TABLE IF NOT EXISTS reservations (
            id {{pk}},
            user_id INTEGER NOT NULL REFERENCES users(id),
            pharmacy_id INTEGER NOT NULL REFERENCES pharmacies(id),
            medication_id INTEGER NOT NULL REFERENCES medications(id),
            quantity INTEGER NOT NULL CHECK (quantity >= 1),
            status TEXT NOT NULL DEFAULT 'pending',
            customer_name TEXT NOT NULL DEFAULT '',
            customer_phone TEXT NOT NULL DEFAULT '',
            notes TEXT NOT NULL DEFAULT '',
            created_at {{ts}} NOT NULL
        );`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_medications_name_ci ON medications(LOWER(name));`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_user ON reservations(user_id, created_at);`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_pharmacy ON reservations(pharmacy_id, status, created_at);`,
	`CREATE INDEX IF NOT EXISTS idx_inventory_medication ON inventory(medication_id, stock_quantity);`,
}

var dialectTypes = map[database.Dialect]*strings.Replacer{
	database.SQLite: strings.NewReplacer(
		"{{pk}}", "INTEGER PRIMARY KEY AUTOINCREMENT",
		"{{ts}}", "DATETIME",
		"{{float}}", "REAL",
	),
	database.Postgres: strings.NewReplacer(
		"{{pk}}", "SERIAL PRIMARY KEY",
		"{{ts}}", "TIMESTAMPTZ",
		"{{float}}", "DOUBLE PRECISION",
	),
}

// Statements returns the schema for the given dialect.
func Statements(dialect database.Dialect) []string {
	r := dialectTypes[dialect]
	out := make([]string, len(schema))
	for i, stmt := range schema {
		out[i] = r.Replace(stmt)
	}
	return out
}

// Run creates the database schema required by the service. It is idempotent.
func Run(db *sqlx.DB) error {
	for _, stmt := range Statements(database.DialectOf(db)) {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
