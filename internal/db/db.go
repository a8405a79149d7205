// Package db is the SQLite backend of the ledger store.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Import modernc.org/sqlite as a blank import to register the driver
	_ "modernc.org/sqlite"

	"github.com/j-veylop/usage-ledger-tui/internal/models"
	"github.com/j-veylop/usage-ledger-tui/internal/realtime"
	"github.com/j-veylop/usage-ledger-tui/internal/store"
)

var _ store.Store = (*DB)(nil)

// DB wraps the SQL database connection with the ledger queries. Every write
// is announced on an in-process realtime hub.
type DB struct {
	*sql.DB
	hub    *realtime.Hub
	path   string
	source string
}

// New creates a new database connection and initializes the schema.
func New(path string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps the pragmas and serializes writers.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(context.Background()); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &DB{
		DB:     sqlDB,
		hub:    realtime.NewHub(realtime.DefaultBuffer),
		path:   path,
		source: sourceLocal,
	}

	if err := db.configure(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	if err := db.createSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	if err := db.FixLegacyTimeFormats(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to fix legacy time formats: %w", err)
	}

	return db, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// configure sets up database pragmas for optimal performance.
func (db *DB) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=-16000",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(context.Background(), pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	return nil
}

func (db *DB) createSchema() error {
	if err := db.createAccountsTable(); err != nil {
		return err
	}
	if err := db.createSettingsTable(); err != nil {
		return err
	}
	return db.createHistoryTable()
}

func (db *DB) createAccountsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS accounts (
		user_id TEXT NOT NULL,
		account_number INTEGER NOT NULL,
		usage_percent REAL NOT NULL DEFAULT 0,
		reset_date TEXT,
		needs_update INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (user_id, account_number)
	);
	`
	_, err := db.ExecContext(context.Background(), query)
	return err
}

func (db *DB) createSettingsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS user_settings (
		user_id TEXT PRIMARY KEY,
		x2_mode INTEGER NOT NULL DEFAULT 0,
		account_names TEXT NOT NULL DEFAULT '{}',
		updated_at TEXT NOT NULL
	);
	`
	_, err := db.ExecContext(context.Background(), query)
	return err
}

func (db *DB) createHistoryTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS usage_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		account1 REAL NOT NULL DEFAULT 0,
		account2 REAL NOT NULL DEFAULT 0,
		account3 REAL NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_usage_history_user_time ON usage_history(user_id, timestamp, id);
	`
	_, err := db.ExecContext(context.Background(), query)
	return err
}

// Subscribe registers for change events on table.
func (db *DB) Subscribe(table models.Table) (<-chan models.ChangeEvent, func()) {
	return db.hub.Subscribe(table)
}

func (db *DB) publish(table models.Table, op models.ChangeOp, userID string, accountID int) {
	db.hub.Publish(models.ChangeEvent{
		At:        time.Now(),
		Table:     table,
		Op:        op,
		UserID:    userID,
		Source:    db.source,
		AccountID: accountID,
	})
}

// Close closes the change feed and the database connection.
func (db *DB) Close() error {
	db.hub.Close()
	// Checkpoint WAL before closing
	_, _ = db.ExecContext(context.Background(), "PRAGMA wal_checkpoint(TRUNCATE)")
	return db.DB.Close()
}

// Vacuum performs database maintenance to reclaim space.
func (db *DB) Vacuum() error {
	_, err := db.ExecContext(context.Background(), "VACUUM")
	return err
}
