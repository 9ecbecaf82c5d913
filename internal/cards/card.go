package cards

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	DefaultManaCost = "{0}"
	DefaultText     = "No rules text available."
	ColorlessColor  = "Colorless"
)

// Card is one catalog entry
type Card struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	ManaCost    string   `json:"mana_cost" yaml:"mana_cost"`
	Type        string   `json:"type" yaml:"type"`
	Rarity      string   `json:"rarity" yaml:"rarity"`
	Text        string   `json:"text" yaml:"text"`
	Power       string   `json:"power,omitempty" yaml:"power,omitempty"`
	Toughness   string   `json:"toughness,omitempty" yaml:"toughness,omitempty"`
	Price       float64  `json:"price" yaml:"price"`
	ImageURL    string   `json:"image_url,omitempty" yaml:"image_url,omitempty"`
	Colors      []string `json:"colors" yaml:"colors"`
	CMC         float64  `json:"cmc" yaml:"cmc"`
	SetName     string   `json:"set_name" yaml:"set_name"`
	Artist      string   `json:"artist" yaml:"artist"`
	ScryfallURL string   `json:"scryfall_url,omitempty" yaml:"scryfall_url,omitempty"`
}

// HasStats reports whether the card carries power and toughness
func (c Card) HasStats() bool {
	return c.Power != "" && c.Toughness != ""
}

// Matches reports whether query appears in the name, type line or rules text, ignoring case
func (c Card) Matches(query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(c.Name), q) ||
		strings.Contains(strings.ToLower(c.Type), q) ||
		strings.Contains(strings.ToLower(c.Text), q)
}

// scryfallCard is the subset of the Scryfall card object we read
type scryfallCard struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	ManaCost   string   `json:"mana_cost"`
	TypeLine   string   `json:"type_line"`
	Rarity     string   `json:"rarity"`
	OracleText string   `json:"oracle_text"`
	Power      string   `json:"power"`
	Toughness  string   `json:"toughness"`
	Colors     []string `json:"colors"`
	CMC        float64  `json:"cmc"`
	SetName    string   `json:"set_name"`
	Artist     string   `json:"artist"`
	URI        string   `json:"scryfall_uri"`
	Prices     struct {
		USD     *string `json:"usd"`
		USDFoil *string `json:"usd_foil"`
	} `json:"prices"`
	ImageURIs *struct {
		Small  string `json:"small"`
		Normal string `json:"normal"`
		Large  string `json:"large"`
	} `json:"image_uris"`
}

func (s scryfallCard) toCard() Card {
	card := Card{
		ID:          s.ID,
		Name:        s.Name,
		ManaCost:    s.ManaCost,
		Type:        s.TypeLine,
		Rarity:      capitalize(s.Rarity),
		Text:        s.OracleText,
		Power:       s.Power,
		Toughness:   s.Toughness,
		Price:       parsePrice(s.Prices.USD, s.Prices.USDFoil),
		Colors:      s.Colors,
		CMC:         s.CMC,
		SetName:     s.SetName,
		Artist:      s.Artist,
		ScryfallURL: s.URI,
	}

	if card.ManaCost == "" {
		card.ManaCost = DefaultManaCost
	}
	if card.Text == "" {
		card.Text = DefaultText
	}
	if len(card.Colors) == 0 {
		card.Colors = []string{ColorlessColor}
	}
	if s.ImageURIs != nil {
		switch {
		case s.ImageURIs.Normal != "":
			card.ImageURL = s.ImageURIs.Normal
		case s.ImageURIs.Large != "":
			card.ImageURL = s.ImageURIs.Large
		default:
			card.ImageURL = s.ImageURIs.Small
		}
	}
	return card
}

// parsePrice takes the first non-empty candidate; unparseable prices count as zero
func parsePrice(candidates ...*string) float64 {
	for _, c := range candidates {
		if c == nil || *c == "" {
			continue
		}
		v, err := strconv.ParseFloat(*c, 64)
		if err != nil {
			return 0
		}
		return v
	}
	return 0
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
