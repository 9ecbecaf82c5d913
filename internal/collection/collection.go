package collection

import (
	"context"
	"fmt"

	"jordanella.com/mtg-scanner-go/internal/cards"
	"jordanella.com/mtg-scanner-go/internal/database"
	"jordanella.com/mtg-scanner-go/internal/events"
	"jordanella.com/mtg-scanner-go/internal/logging"
	"jordanella.com/mtg-scanner-go/internal/recognition"
	"jordanella.com/mtg-scanner-go/internal/vision"
)

const (
	ActionAdded   = "added"
	ActionRemoved = "removed"
)

// ErrCardNotOwned is returned when removing a card that is not in the collection
var ErrCardNotOwned = database.ErrCardNotOwned

// Service manages the owned card collection and the scan history
type Service struct {
	db     *database.DB
	logger *logging.Logger
	bus    events.EventBus
}

// NewService creates a collection service over an open, migrated database
func NewService(db *database.DB, logger *logging.Logger, bus events.EventBus) *Service {
	if logger == nil {
		logger = logging.Discard("collection")
	}
	return &Service{db: db, logger: logger, bus: bus}
}

// Add puts one copy of card into the collection and returns the owned quantity
func (s *Service) Add(card cards.Card) (int, error) {
	qty, err := s.db.AddCollectionCard(&database.CollectionCard{
		CardID:   card.ID,
		Name:     card.Name,
		ManaCost: card.ManaCost,
		TypeLine: card.Type,
		Rarity:   card.Rarity,
		SetName:  card.SetName,
		ImageURL: card.ImageURL,
		Price:    card.Price,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to add %s: %w", card.Name, err)
	}

	s.logger.InfoWithContext("Added card to collection", logging.Fields{
		"card_id":  card.ID,
		"name":     card.Name,
		"quantity": qty,
	})
	s.publish(events.NewCollectionChangedEvent(ActionAdded, card.ID, qty))
	return qty, nil
}

// Remove deletes a card from the collection regardless of quantity
func (s *Service) Remove(cardID string) error {
	if err := s.db.RemoveCollectionCard(cardID); err != nil {
		return err
	}

	s.logger.InfoWithContext("Removed card from collection", logging.Fields{"card_id": cardID})
	s.publish(events.NewCollectionChangedEvent(ActionRemoved, cardID, 0))
	return nil
}

// List returns owned cards in the order they were added
func (s *Service) List() ([]*database.CollectionCard, error) {
	return s.db.ListCollection()
}

// TotalCards sums quantities across the collection
func (s *Service) TotalCards() (int, error) {
	totals, err := s.db.GetCollectionTotals()
	if err != nil {
		return 0, err
	}
	return totals.TotalCards, nil
}

// TotalValue sums price times quantity across the collection
func (s *Service) TotalValue() (float64, error) {
	totals, err := s.db.GetCollectionTotals()
	if err != nil {
		return 0, err
	}
	return totals.TotalValue, nil
}

// Totals returns unique count, total count and value together
func (s *Service) Totals() (*database.CollectionTotals, error) {
	return s.db.GetCollectionTotals()
}

// Summary lists owned cards with their scan counts
func (s *Service) Summary() ([]*database.CollectionSummary, error) {
	return s.db.GetCollectionSummary()
}

// RecentScans returns the newest scan records
func (s *Service) RecentScans(limit int) ([]*database.ScanRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.db.GetRecentScans(limit)
}

// LogScan records a recognition result
func (s *Service) LogScan(ctx context.Context, capture *vision.CaptureResult, match *recognition.Match) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	record := &database.ScanRecord{
		CaptureID:  match.CaptureID,
		CardID:     match.Card.ID,
		CardName:   match.Card.Name,
		Confidence: match.Confidence,
		Method:     match.Method,
		ScannedAt:  match.Timestamp,
	}
	if capture != nil {
		record.CaptureID = capture.ID
		record.ImageWidth = capture.Width
		record.ImageHeight = capture.Height
		record.BrightnessApplied = capture.Applied.Brightness
		record.GlareApplied = capture.Applied.GlareReduction
		record.SharpenApplied = capture.Applied.EdgeEnhancement
	}
	if b := match.Bounds; b != nil {
		x, y, w, h := b.X, b.Y, b.Width, b.Height
		record.BoundsX, record.BoundsY, record.BoundsWidth, record.BoundsHeight = &x, &y, &w, &h
	}

	if _, err := s.db.InsertScan(record); err != nil {
		return err
	}

	s.logger.DebugWithContext("Recorded scan", logging.Fields{
		"capture_id": record.CaptureID,
		"card_id":    record.CardID,
	})
	return nil
}

func (s *Service) publish(e events.Event) {
	if s.bus != nil {
		s.bus.Publish(e)
	}
}

var _ recognition.ScanLog = (*Service)(nil)
