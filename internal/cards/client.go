package cards

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	DefaultBaseURL = "https://api.scryfall.com"
	DefaultTimeout = 30 * time.Second
	userAgent      = "mtg-scanner-go/1.0"
)

// Client is a Scryfall search API client
type Client struct {
	BaseURL    string
	httpClient *http.Client
}

// NewClient creates a new Scryfall client. An empty baseURL uses the public API.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		BaseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SearchCards runs a full-text card search and returns at most limit cards (0 = first page)
func (c *Client) SearchCards(ctx context.Context, query string, limit int) ([]Card, error) {
	searchURL := fmt.Sprintf("%s/cards/search?q=%s&page=1&order=name", c.BaseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch from Scryfall: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("Scryfall API returned status %d: %s", resp.StatusCode, string(body))
	}

	var searchResp struct {
		TotalCards int            `json:"total_cards"`
		HasMore    bool           `json:"has_more"`
		Data       []scryfallCard `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("failed to decode Scryfall response: %w", err)
	}

	data := searchResp.Data
	if limit > 0 && len(data) > limit {
		data = data[:limit]
	}

	result := make([]Card, 0, len(data))
	for _, sc := range data {
		result = append(result, sc.toCard())
	}
	return result, nil
}
