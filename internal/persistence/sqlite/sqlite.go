// Package sqlite implements the persistence repositories on modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/example/workplace-reservations/internal/persistence"
)

// DB wraps the shared connection handle and transaction helper used by the
// repositories in this package.
type DB struct {
	handle *sql.DB
}

// Open opens (or creates) the SQLite database at the given DSN and applies the
// schema. Foreign key enforcement is switched on per connection.
func Open(dsn string) (*DB, error) {
	handle, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// modernc's driver serialises writes itself, but a bounded pool keeps
	// "database is locked" errors out of concurrent request handling.
	handle.SetMaxOpenConns(1)

	if _, err := handle.Exec("PRAGMA foreign_keys = ON"); err != nil {
		handle.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	db := &DB{handle: handle}
	if err := db.migrate(context.Background()); err != nil {
		handle.Close()
		return nil, err
	}

	return db, nil
}

// Close releases the underlying connection handle.
func (db *DB) Close() error {
	if db == nil || db.handle == nil {
		return nil
	}
	return db.handle.Close()
}

// Ping verifies the database connection.
func (db *DB) Ping(ctx context.Context) error {
	return db.handle.PingContext(ctx)
}

// withTransaction runs fn inside a transaction, rolling back on error or
// panic and committing otherwise.
func (db *DB) withTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.handle.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction failed (rollback error: %v): %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// mapError translates driver errors into the persistence sentinel errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %v", persistence.ErrDuplicate, err)
	case strings.Contains(errStr, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%w: %v", persistence.ErrForeignKeyViolation, err)
	case strings.Contains(errStr, "CHECK constraint failed"):
		return fmt.Errorf("%w: %v", persistence.ErrConstraintViolation, err)
	}
	return err
}
