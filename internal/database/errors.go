package database

import (
	"database/sql"
	"fmt"
	"time"
)

// Error logging operations

// LogError creates a new error log entry
func (db *DB) LogError(category, severity, component, message string, errorText *string, occurredAt time.Time) (int64, error) {
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	var errorID int64
	err := db.ExecTx(func(tx *sql.Tx) error {
		result, err := tx.Exec(`
			INSERT INTO error_log (
				category, severity, component, message, error_text, occurred_at
			) VALUES (?, ?, ?, ?, ?, ?)
		`, category, severity, component, message, errorText, occurredAt)

		if err != nil {
			return fmt.Errorf("failed to insert error log: %w", err)
		}

		errorID, err = result.LastInsertId()
		return err
	})

	if err != nil {
		return 0, err
	}

	return errorID, nil
}

// GetRecentErrors retrieves the most recent errors, newest first
func (db *DB) GetRecentErrors(limit int) ([]*ErrorLog, error) {
	rows, err := db.conn.Query(`
		SELECT id, category, severity, component, message, error_text, occurred_at
		FROM error_log
		ORDER BY occurred_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query errors: %w", err)
	}
	defer rows.Close()

	var errs []*ErrorLog
	for rows.Next() {
		e := &ErrorLog{}
		if err := rows.Scan(&e.ID, &e.Category, &e.Severity, &e.Component, &e.Message, &e.ErrorText, &e.OccurredAt); err != nil {
			return nil, err
		}
		errs = append(errs, e)
	}

	return errs, rows.Err()
}

// GetErrorStatsByCategory counts errors per category since the given time
func (db *DB) GetErrorStatsByCategory(since time.Time) (map[string]int, error) {
	rows, err := db.conn.Query(`
		SELECT category, COUNT(*)
		FROM error_log
		WHERE occurred_at >= ?
		GROUP BY category
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, err
		}
		stats[category] = count
	}

	return stats, rows.Err()
}

// DeleteOldErrors deletes error logs older than the specified date
func (db *DB) DeleteOldErrors(olderThan time.Time) (int64, error) {
	var deleted int64
	err := db.ExecTx(func(tx *sql.Tx) error {
		result, err := tx.Exec(`DELETE FROM error_log WHERE occurred_at < ?`, olderThan)
		if err != nil {
			return err
		}
		deleted, err = result.RowsAffected()
		return err
	})
	return deleted, err
}
