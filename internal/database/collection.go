package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrCardNotOwned is returned when a card is not in the collection
var ErrCardNotOwned = errors.New("card not in collection")

// Collection operations

// AddCollectionCard increments the quantity of an owned card or inserts it
// with quantity 1. Catalog fields are refreshed on every add. Returns the new quantity.
func (db *DB) AddCollectionCard(card *CollectionCard) (int, error) {
	if card.CardID == "" {
		return 0, fmt.Errorf("card id is required")
	}

	var quantity int
	err := db.ExecTx(func(tx *sql.Tx) error {
		now := time.Now()
		_, err := tx.Exec(`
			INSERT INTO collection_cards (
				card_id, name, mana_cost, type_line, rarity, set_name,
				image_url, price, quantity, date_added, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
			ON CONFLICT(card_id) DO UPDATE SET
				quantity = quantity + 1,
				name = excluded.name,
				mana_cost = excluded.mana_cost,
				type_line = excluded.type_line,
				rarity = excluded.rarity,
				set_name = excluded.set_name,
				image_url = excluded.image_url,
				price = excluded.price,
				updated_at = excluded.updated_at
		`, card.CardID, card.Name, card.ManaCost, card.TypeLine, card.Rarity, card.SetName,
			card.ImageURL, card.Price, now, now)
		if err != nil {
			return fmt.Errorf("failed to upsert collection card: %w", err)
		}

		return tx.QueryRow(`SELECT quantity FROM collection_cards WHERE card_id = ?`, card.CardID).Scan(&quantity)
	})
	if err != nil {
		return 0, err
	}
	return quantity, nil
}

// RemoveCollectionCard deletes an owned card regardless of quantity
func (db *DB) RemoveCollectionCard(cardID string) error {
	return db.ExecTx(func(tx *sql.Tx) error {
		result, err := tx.Exec(`DELETE FROM collection_cards WHERE card_id = ?`, cardID)
		if err != nil {
			return fmt.Errorf("failed to delete collection card: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrCardNotOwned
		}
		return nil
	})
}

// GetCollectionCard retrieves an owned card by catalog id
func (db *DB) GetCollectionCard(cardID string) (*CollectionCard, error) {
	card := &CollectionCard{}
	err := db.conn.QueryRow(`
		SELECT
			card_id, name, mana_cost, type_line, rarity, set_name,
			image_url, price, quantity, date_added, updated_at
		FROM collection_cards
		WHERE card_id = ?
	`, cardID).Scan(
		&card.CardID, &card.Name, &card.ManaCost, &card.TypeLine, &card.Rarity, &card.SetName,
		&card.ImageURL, &card.Price, &card.Quantity, &card.DateAdded, &card.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrCardNotOwned
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get collection card: %w", err)
	}
	return card, nil
}

// ListCollection returns owned cards in the order they were first added
func (db *DB) ListCollection() ([]*CollectionCard, error) {
	rows, err := db.conn.Query(`
		SELECT
			card_id, name, mana_cost, type_line, rarity, set_name,
			image_url, price, quantity, date_added, updated_at
		FROM collection_cards
		ORDER BY date_added ASC, card_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list collection: %w", err)
	}
	defer rows.Close()

	var cards []*CollectionCard
	for rows.Next() {
		card := &CollectionCard{}
		if err := rows.Scan(
			&card.CardID, &card.Name, &card.ManaCost, &card.TypeLine, &card.Rarity, &card.SetName,
			&card.ImageURL, &card.Price, &card.Quantity, &card.DateAdded, &card.UpdatedAt,
		); err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}

	return cards, rows.Err()
}

// GetCollectionTotals sums quantities and value across the collection
func (db *DB) GetCollectionTotals() (*CollectionTotals, error) {
	totals := &CollectionTotals{}
	err := db.conn.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(quantity), 0),
			COALESCE(SUM(price * quantity), 0)
		FROM collection_cards
	`).Scan(&totals.UniqueCards, &totals.TotalCards, &totals.TotalValue)
	if err != nil {
		return nil, fmt.Errorf("failed to total collection: %w", err)
	}
	return totals, nil
}

// GetCollectionSummary reads the summary view, most valuable first
func (db *DB) GetCollectionSummary() ([]*CollectionSummary, error) {
	rows, err := db.conn.Query(`
		SELECT card_id, name, quantity, price, total_value, times_scanned, last_scanned_at
		FROM v_collection_summary
		ORDER BY total_value DESC, name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to read collection summary: %w", err)
	}
	defer rows.Close()

	var summary []*CollectionSummary
	for rows.Next() {
		s := &CollectionSummary{}
		var last sql.NullString
		if err := rows.Scan(&s.CardID, &s.Name, &s.Quantity, &s.Price, &s.TotalValue, &s.TimesScanned, &last); err != nil {
			return nil, err
		}
		if last.Valid {
			if t, err := parseSQLiteTime(last.String); err == nil {
				s.LastScannedAt = &t
			}
		}
		summary = append(summary, s)
	}
	return summary, rows.Err()
}

// MAX() over a DATETIME column loses its declared type, so the driver hands back text
func parseSQLiteTime(s string) (time.Time, error) {
	layouts := []string{
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02T15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05",
		time.RFC3339Nano,
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}
