package database

import (
	"database/sql"
	"fmt"
	"time"

	"jordanella.com/mtg-scanner-go/internal/logging"
)

// Migration represents a database schema migration
type Migration struct {
	Version     int
	Description string
	Up          func(*sql.Tx) error
	Down        func(*sql.Tx) error
}

// migrations is the ordered list of all database migrations
var migrations = []Migration{
	{
		Version:     1,
		Description: "Create schema_version table",
		Up:          migration001Up,
		Down:        migration001Down,
	},
	{
		Version:     2,
		Description: "Create collection_cards table",
		Up:          migration002Up,
		Down:        migration002Down,
	},
	{
		Version:     3,
		Description: "Create scans table",
		Up:          migration003Up,
		Down:        migration003Down,
	},
	{
		Version:     4,
		Description: "Create error_log table",
		Up:          migration004Up,
		Down:        migration004Down,
	},
	{
		Version:     5,
		Description: "Create collection summary view",
		Up:          migration005Up,
		Down:        migration005Down,
	},
}

// LatestVersion is the schema version after all migrations run
func LatestVersion() int {
	return migrations[len(migrations)-1].Version
}

// RunMigrations runs all pending database migrations
func (db *DB) RunMigrations() error {
	currentVersion, err := db.getCurrentVersion()
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	db.logger.DebugWithContext("Checking migrations", logging.Fields{"current_version": currentVersion})

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		db.logger.InfoWithContext("Running migration", logging.Fields{
			"version":     migration.Version,
			"description": migration.Description,
		})

		err := db.ExecTx(func(tx *sql.Tx) error {
			if err := migration.Up(tx); err != nil {
				return fmt.Errorf("migration %d failed: %w", migration.Version, err)
			}

			_, err := tx.Exec(`
				INSERT INTO schema_version (version, description, applied_at)
				VALUES (?, ?, ?)
			`, migration.Version, migration.Description, time.Now())

			return err
		})

		if err != nil {
			return err
		}
	}

	return nil
}

// RollbackTo undoes migrations newer than version, newest first
func (db *DB) RollbackTo(version int) error {
	currentVersion, err := db.getCurrentVersion()
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	for i := len(migrations) - 1; i >= 0; i-- {
		migration := migrations[i]
		if migration.Version <= version || migration.Version > currentVersion {
			continue
		}

		err := db.ExecTx(func(tx *sql.Tx) error {
			if err := migration.Down(tx); err != nil {
				return fmt.Errorf("rollback of migration %d failed: %w", migration.Version, err)
			}
			if migration.Version == 1 {
				return nil
			}
			_, err := tx.Exec(`DELETE FROM schema_version WHERE version = ?`, migration.Version)
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// getCurrentVersion returns the current schema version
func (db *DB) getCurrentVersion() (int, error) {
	// Check if schema_version table exists
	var tableExists bool
	err := db.conn.QueryRow(`
		SELECT COUNT(*) > 0
		FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&tableExists)

	if err != nil {
		return 0, err
	}

	if !tableExists {
		return 0, nil
	}

	var version int
	err = db.conn.QueryRow(`
		SELECT COALESCE(MAX(version), 0)
		FROM schema_version
	`).Scan(&version)

	if err != nil {
		return 0, err
	}

	return version, nil
}

// Migration 001: Schema version tracking table
func migration001Up(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			version INTEGER NOT NULL UNIQUE,
			description TEXT NOT NULL,
			applied_at DATETIME NOT NULL
		)
	`)
	return err
}

func migration001Down(tx *sql.Tx) error {
	_, err := tx.Exec(`DROP TABLE IF EXISTS schema_version`)
	return err
}

// Migration 002: Owned cards, one row per catalog card id
func migration002Up(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE collection_cards (
			card_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			mana_cost TEXT NOT NULL DEFAULT '{0}',
			type_line TEXT NOT NULL DEFAULT '',
			rarity TEXT NOT NULL DEFAULT '',
			set_name TEXT NOT NULL DEFAULT '',
			image_url TEXT NOT NULL DEFAULT '',
			price REAL NOT NULL DEFAULT 0,
			quantity INTEGER NOT NULL DEFAULT 1 CHECK (quantity > 0),
			date_added DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);

		CREATE INDEX idx_collection_name ON collection_cards(name);
	`)
	return err
}

func migration002Down(tx *sql.Tx) error {
	_, err := tx.Exec(`
		DROP INDEX IF EXISTS idx_collection_name;
		DROP TABLE IF EXISTS collection_cards;
	`)
	return err
}

// Migration 003: Recognition history
func migration003Up(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE scans (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			capture_id TEXT NOT NULL,
			card_id TEXT NOT NULL,
			card_name TEXT NOT NULL,
			confidence INTEGER NOT NULL,
			method TEXT NOT NULL,
			bounds_x INTEGER,
			bounds_y INTEGER,
			bounds_width INTEGER,
			bounds_height INTEGER,
			brightness_applied BOOLEAN NOT NULL DEFAULT 0,
			glare_applied BOOLEAN NOT NULL DEFAULT 0,
			sharpen_applied BOOLEAN NOT NULL DEFAULT 0,
			image_width INTEGER NOT NULL DEFAULT 0,
			image_height INTEGER NOT NULL DEFAULT 0,
			scanned_at DATETIME NOT NULL
		);

		CREATE INDEX idx_scans_card ON scans(card_id);
		CREATE INDEX idx_scans_scanned_at ON scans(scanned_at);
	`)
	return err
}

func migration003Down(tx *sql.Tx) error {
	_, err := tx.Exec(`
		DROP INDEX IF EXISTS idx_scans_scanned_at;
		DROP INDEX IF EXISTS idx_scans_card;
		DROP TABLE IF EXISTS scans;
	`)
	return err
}

// Migration 004: Persisted error reports
func migration004Up(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE error_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			category TEXT NOT NULL,
			severity TEXT NOT NULL,
			component TEXT NOT NULL,
			message TEXT NOT NULL,
			error_text TEXT,
			occurred_at DATETIME NOT NULL
		);

		CREATE INDEX idx_error_log_occurred ON error_log(occurred_at);
		CREATE INDEX idx_error_log_category ON error_log(category);
	`)
	return err
}

func migration004Down(tx *sql.Tx) error {
	_, err := tx.Exec(`
		DROP INDEX IF EXISTS idx_error_log_category;
		DROP INDEX IF EXISTS idx_error_log_occurred;
		DROP TABLE IF EXISTS error_log;
	`)
	return err
}

// Migration 005: Collection summary with scan counts
func migration005Up(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE VIEW v_collection_summary AS
		SELECT
			c.card_id,
			c.name,
			c.quantity,
			c.price,
			c.price * c.quantity AS total_value,
			COUNT(s.id) AS times_scanned,
			MAX(s.scanned_at) AS last_scanned_at
		FROM collection_cards c
		LEFT JOIN scans s ON s.card_id = c.card_id
		GROUP BY c.card_id;
	`)
	return err
}

func migration005Down(tx *sql.Tx) error {
	_, err := tx.Exec(`DROP VIEW IF EXISTS v_collection_summary`)
	return err
}
