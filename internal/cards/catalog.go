package cards

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"jordanella.com/mtg-scanner-go/internal/events"
	"jordanella.com/mtg-scanner-go/internal/logging"
)

// Status is the catalog's connection state
type Status string

const (
	StatusChecking   Status = "checking"
	StatusConnecting Status = "connecting"
	StatusConnected  Status = "connected"
	StatusError      Status = "error"
)

const (
	DefaultQuery = `is:commander OR type:planeswalker OR name:"Lightning Bolt" OR name:"Black Lotus"`
	SearchLimit  = 20
)

// Searcher runs remote card searches. *Client satisfies it.
type Searcher interface {
	SearchCards(ctx context.Context, query string, limit int) ([]Card, error)
}

// CatalogConfig configures a Catalog
type CatalogConfig struct {
	Searcher     Searcher
	DefaultQuery string
	FallbackFile string
	Logger       *logging.Logger
	Bus          events.EventBus
}

// Catalog holds the loaded card database and answers searches,
// falling back to the local set when the remote API fails.
type Catalog struct {
	searcher     Searcher
	defaultQuery string
	fallbackFile string
	logger       *logging.Logger
	bus          events.EventBus

	mu     sync.RWMutex
	cards  []Card
	byID   map[string]Card
	status Status
	rng    *rand.Rand
}

// NewCatalog creates an empty catalog in the checking state
func NewCatalog(cfg CatalogConfig) *Catalog {
	if cfg.DefaultQuery == "" {
		cfg.DefaultQuery = DefaultQuery
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard("catalog")
	}
	return &Catalog{
		searcher:     cfg.Searcher,
		defaultQuery: cfg.DefaultQuery,
		fallbackFile: cfg.FallbackFile,
		logger:       cfg.Logger,
		bus:          cfg.Bus,
		byID:         make(map[string]Card),
		status:       StatusChecking,
		rng:          rand.New(rand.NewSource(rand.Int63())),
	}
}

// Load fills the card database from the remote API. On any failure the
// fallback set is installed, the status becomes error and the cause is returned.
func (c *Catalog) Load(ctx context.Context, query string) error {
	if query == "" {
		query = c.defaultQuery
	}
	c.setStatus(StatusConnecting)

	loaded, err := c.fetch(ctx, query)
	if err == nil {
		c.install(loaded)
		c.setStatus(StatusConnected)
		c.logger.InfoWithContext("Loaded cards from Scryfall", logging.Fields{"count": len(loaded)})
		return nil
	}

	c.logger.Error("Failed to load cards from Scryfall", err)

	fallback, ferr := LoadFallback(c.fallbackFile)
	if ferr != nil && c.fallbackFile != "" {
		c.logger.Error("Fallback file unusable, using built-in set", ferr)
		fallback, ferr = LoadFallback("")
	}
	if ferr == nil {
		c.install(fallback)
		c.logger.InfoWithContext("Using fallback card database", logging.Fields{"count": len(fallback)})
	}
	c.setStatus(StatusError)
	return err
}

func (c *Catalog) fetch(ctx context.Context, query string) ([]Card, error) {
	if c.searcher == nil {
		return nil, fmt.Errorf("no card search backend configured")
	}
	loaded, err := c.searcher.SearchCards(ctx, query, 0)
	if err != nil {
		return nil, err
	}
	if len(loaded) == 0 {
		return nil, fmt.Errorf("no cards found in API response")
	}
	return loaded, nil
}

// Search looks up cards by query. An empty query returns nothing.
// Remote failures fall back to a local name/type/text match.
func (c *Catalog) Search(ctx context.Context, query string) ([]Card, error) {
	if isBlank(query) {
		return nil, nil
	}

	if c.searcher != nil {
		results, err := c.searcher.SearchCards(ctx, query, SearchLimit)
		if err == nil {
			return results, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.WarnWithContext("Remote search failed, searching local cards", logging.Fields{
			"query": query,
			"error": err.Error(),
		})
	}
	return c.SearchLocal(query), nil
}

// SearchLocal matches loaded cards case-insensitively, up to SearchLimit
func (c *Catalog) SearchLocal(query string) []Card {
	if isBlank(query) {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var results []Card
	for _, card := range c.cards {
		if card.Matches(query) {
			results = append(results, card)
			if len(results) == SearchLimit {
				break
			}
		}
	}
	return results
}

// Status returns the current connection state
func (c *Catalog) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Len returns the number of loaded cards
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cards)
}

// Cards returns a copy of the loaded cards
func (c *Catalog) Cards() []Card {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Card, len(c.cards))
	copy(out, c.cards)
	return out
}

// Get looks up a loaded card by id
func (c *Catalog) Get(id string) (Card, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	card, ok := c.byID[id]
	return card, ok
}

// Remember adds cards found by search so they can be resolved by id later
func (c *Catalog) Remember(found ...Card) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, card := range found {
		if _, ok := c.byID[card.ID]; !ok {
			c.byID[card.ID] = card
		}
	}
}

// Random picks a loaded card uniformly
func (c *Catalog) Random() (Card, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.cards) == 0 {
		return Card{}, false
	}
	return c.cards[c.rng.Intn(len(c.cards))], true
}

func (c *Catalog) install(loaded []Card) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cards = loaded
	c.byID = make(map[string]Card, len(loaded))
	for _, card := range loaded {
		c.byID[card.ID] = card
	}
}

func (c *Catalog) setStatus(status Status) {
	c.mu.Lock()
	c.status = status
	count := len(c.cards)
	c.mu.Unlock()

	if c.bus != nil {
		c.bus.Publish(events.NewCatalogStatusEvent(string(status), count))
	}
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
