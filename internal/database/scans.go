package database

import (
	"database/sql"
	"fmt"
	"time"
)

// Scan history operations

// InsertScan records a recognition result and returns its id
func (db *DB) InsertScan(scan *ScanRecord) (int64, error) {
	if scan.ScannedAt.IsZero() {
		scan.ScannedAt = time.Now()
	}

	var scanID int64
	err := db.ExecTx(func(tx *sql.Tx) error {
		result, err := tx.Exec(`
			INSERT INTO scans (
				capture_id, card_id, card_name, confidence, method,
				bounds_x, bounds_y, bounds_width, bounds_height,
				brightness_applied, glare_applied, sharpen_applied,
				image_width, image_height, scanned_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, scan.CaptureID, scan.CardID, scan.CardName, scan.Confidence, scan.Method,
			scan.BoundsX, scan.BoundsY, scan.BoundsWidth, scan.BoundsHeight,
			scan.BrightnessApplied, scan.GlareApplied, scan.SharpenApplied,
			scan.ImageWidth, scan.ImageHeight, scan.ScannedAt)
		if err != nil {
			return fmt.Errorf("failed to insert scan: %w", err)
		}

		scanID, err = result.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}

	scan.ID = scanID
	return scanID, nil
}

// GetRecentScans retrieves the most recent scans, newest first
func (db *DB) GetRecentScans(limit int) ([]*ScanRecord, error) {
	rows, err := db.conn.Query(`
		SELECT
			id, capture_id, card_id, card_name, confidence, method,
			bounds_x, bounds_y, bounds_width, bounds_height,
			brightness_applied, glare_applied, sharpen_applied,
			image_width, image_height, scanned_at
		FROM scans
		ORDER BY scanned_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scans: %w", err)
	}
	defer rows.Close()

	var scans []*ScanRecord
	for rows.Next() {
		s := &ScanRecord{}
		if err := rows.Scan(
			&s.ID, &s.CaptureID, &s.CardID, &s.CardName, &s.Confidence, &s.Method,
			&s.BoundsX, &s.BoundsY, &s.BoundsWidth, &s.BoundsHeight,
			&s.BrightnessApplied, &s.GlareApplied, &s.SharpenApplied,
			&s.ImageWidth, &s.ImageHeight, &s.ScannedAt,
		); err != nil {
			return nil, err
		}
		scans = append(scans, s)
	}

	return scans, rows.Err()
}

// CountScans returns the number of recorded scans
func (db *DB) CountScans() (int, error) {
	var n int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM scans`).Scan(&n)
	return n, err
}

// DeleteOldScans removes scans older than the given time
func (db *DB) DeleteOldScans(olderThan time.Time) (int64, error) {
	var deleted int64
	err := db.ExecTx(func(tx *sql.Tx) error {
		result, err := tx.Exec(`DELETE FROM scans WHERE scanned_at < ?`, olderThan)
		if err != nil {
			return err
		}
		deleted, err = result.RowsAffected()
		return err
	})
	return deleted, err
}
