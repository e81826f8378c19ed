// Package store opens the SQL database backing homes, users, expenses and
// audit events, and keeps its schema current.
package store

import (
	"context"
	"database/sql"

	"github.com/juju/errors"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Open connects to the database and applies pool settings for the driver.
// Both drivers accept the $N placeholders used by the repositories.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Annotatef(err, "opening %s database", driver)
	}

	switch driver {
	case "sqlite":
		// a single connection keeps ":memory:" databases shared across callers
		db.SetMaxOpenConns(1)
	default:
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Annotate(err, "pinging database")
	}

	return db, nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		payment_ref TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS homes (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		access_code_hash TEXT NOT NULL DEFAULT '',
		created_by TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS home_members (
		home_id TEXT NOT NULL,
		identity TEXT NOT NULL,
		name TEXT NOT NULL,
		payment_ref TEXT NOT NULL DEFAULT '',
		joined_at TIMESTAMP NOT NULL,
		PRIMARY KEY (home_id, identity)
	)`,
	`CREATE TABLE IF NOT EXISTS expenses (
		id TEXT PRIMARY KEY,
		home_id TEXT NOT NULL,
		payer TEXT NOT NULL,
		amount NUMERIC(12,2) NOT NULL,
		reason TEXT NOT NULL,
		split_type TEXT NOT NULL,
		expense_date TIMESTAMP NOT NULL,
		created_by TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS expenses_home_date_idx ON expenses (home_id, expense_date)`,
	`CREATE TABLE IF NOT EXISTS expense_debtors (
		expense_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		amount NUMERIC(12,2) NOT NULL,
		paid BOOLEAN NOT NULL DEFAULT FALSE,
		paid_method TEXT NOT NULL DEFAULT '',
		paid_date TIMESTAMP NULL,
		PRIMARY KEY (expense_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		event_data TEXT NOT NULL,
		event_metadata TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
}

// Migrate creates any missing tables. It is safe to run repeatedly.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, m := range migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return errors.Annotate(err, "running migration")
		}
	}
	return nil
}

// OpenAndMigrate is Open followed by Migrate.
func OpenAndMigrate(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := Open(ctx, driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
