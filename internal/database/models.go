package database

import (
	"time"
)

// CollectionCard is one owned card with a snapshot of its catalog data
type CollectionCard struct {
	CardID    string    `db:"card_id" json:"cardId"`
	Name      string    `db:"name" json:"name"`
	ManaCost  string    `db:"mana_cost" json:"manaCost"`
	TypeLine  string    `db:"type_line" json:"type"`
	Rarity    string    `db:"rarity" json:"rarity"`
	SetName   string    `db:"set_name" json:"setName"`
	ImageURL  string    `db:"image_url" json:"imageUrl,omitempty"`
	Price     float64   `db:"price" json:"price"`
	Quantity  int       `db:"quantity" json:"quantity"`
	DateAdded time.Time `db:"date_added" json:"dateAdded"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Value is price times quantity
func (c *CollectionCard) Value() float64 {
	return c.Price * float64(c.Quantity)
}

// CollectionTotals aggregates the whole collection
type CollectionTotals struct {
	UniqueCards int     `json:"uniqueCards"`
	TotalCards  int     `json:"totalCards"`
	TotalValue  float64 `json:"totalValue"`
}

// CollectionSummary is a row of v_collection_summary
type CollectionSummary struct {
	CardID        string     `db:"card_id" json:"cardId"`
	Name          string     `db:"name" json:"name"`
	Quantity      int        `db:"quantity" json:"quantity"`
	Price         float64    `db:"price" json:"price"`
	TotalValue    float64    `db:"total_value" json:"totalValue"`
	TimesScanned  int        `db:"times_scanned" json:"timesScanned"`
	LastScannedAt *time.Time `db:"last_scanned_at" json:"lastScannedAt,omitempty"`
}

// ScanRecord is one recognition result
type ScanRecord struct {
	ID                int64     `db:"id" json:"id"`
	CaptureID         string    `db:"capture_id" json:"captureId"`
	CardID            string    `db:"card_id" json:"cardId"`
	CardName          string    `db:"card_name" json:"cardName"`
	Confidence        int       `db:"confidence" json:"confidence"`
	Method            string    `db:"method" json:"method"`
	BoundsX           *int      `db:"bounds_x" json:"boundsX,omitempty"`
	BoundsY           *int      `db:"bounds_y" json:"boundsY,omitempty"`
	BoundsWidth       *int      `db:"bounds_width" json:"boundsWidth,omitempty"`
	BoundsHeight      *int      `db:"bounds_height" json:"boundsHeight,omitempty"`
	BrightnessApplied bool      `db:"brightness_applied" json:"brightnessApplied"`
	GlareApplied      bool      `db:"glare_applied" json:"glareApplied"`
	SharpenApplied    bool      `db:"sharpen_applied" json:"sharpenApplied"`
	ImageWidth        int       `db:"image_width" json:"imageWidth"`
	ImageHeight       int       `db:"image_height" json:"imageHeight"`
	ScannedAt         time.Time `db:"scanned_at" json:"scannedAt"`
}

// HasBounds reports whether the scan carried a card boundary
func (s *ScanRecord) HasBounds() bool {
	return s.BoundsX != nil && s.BoundsY != nil && s.BoundsWidth != nil && s.BoundsHeight != nil
}

// ErrorLog represents a persisted error report
type ErrorLog struct {
	ID         int64     `db:"id" json:"id"`
	Category   string    `db:"category" json:"category"`
	Severity   string    `db:"severity" json:"severity"`
	Component  string    `db:"component" json:"component"`
	Message    string    `db:"message" json:"message"`
	ErrorText  *string   `db:"error_text" json:"error,omitempty"`
	OccurredAt time.Time `db:"occurred_at" json:"occurredAt"`
}
