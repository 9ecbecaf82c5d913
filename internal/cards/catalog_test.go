package cards

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const searchResponse = `{
  "total_cards": 2,
  "has_more": false,
  "data": [
    {
      "id": "abc",
      "name": "Serra Angel",
      "mana_cost": "{3}{W}{W}",
      "type_line": "Creature — Angel",
      "rarity": "uncommon",
      "oracle_text": "Flying, vigilance",
      "power": "4",
      "toughness": "4",
      "colors": ["W"],
      "cmc": 5,
      "set_name": "Alpha",
      "artist": "Douglas Shuler",
      "scryfall_uri": "https://scryfall.com/card/lea/39",
      "prices": {"usd": null, "usd_foil": "12.34"},
      "image_uris": {"small": "s.jpg", "normal": "", "large": "l.jpg"}
    },
    {
      "id": "def",
      "name": "Sol Ring",
      "type_line": "Artifact",
      "rarity": "rare",
      "cmc": 1,
      "prices": {"usd": "1.50"}
    }
  ]
}`

func newScryfall(t *testing.T, status int, body string) (*httptest.Server, *[]string) {
	t.Helper()
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cards/search" {
			http.NotFound(w, r)
			return
		}
		queries = append(queries, r.URL.Query().Get("q"))
		if r.URL.Query().Get("order") != "name" || r.URL.Query().Get("page") != "1" {
			t.Errorf("unexpected query string %q", r.URL.RawQuery)
		}
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &queries
}

func TestClientSearchCardsMapping(t *testing.T) {
	srv, queries := newScryfall(t, http.StatusOK, searchResponse)
	client := NewClient(srv.URL, time.Second)

	got, err := client.SearchCards(context.Background(), `name:"Serra Angel"`, 0)
	if err != nil {
		t.Fatalf("SearchCards: %v", err)
	}
	if len(*queries) != 1 || (*queries)[0] != `name:"Serra Angel"` {
		t.Errorf("query not passed through: %v", *queries)
	}
	if len(got) != 2 {
		t.Fatalf("got %d cards, want 2", len(got))
	}

	angel := got[0]
	if angel.Rarity != "Uncommon" {
		t.Errorf("Rarity = %q, want Uncommon", angel.Rarity)
	}
	if angel.Price != 12.34 {
		t.Errorf("Price = %v, want foil price 12.34", angel.Price)
	}
	if angel.ImageURL != "l.jpg" {
		t.Errorf("ImageURL = %q, want large image", angel.ImageURL)
	}
	if !angel.HasStats() || angel.Power != "4" {
		t.Errorf("stats not mapped: %+v", angel)
	}
	if angel.ScryfallURL == "" || angel.SetName != "Alpha" || angel.Artist != "Douglas Shuler" {
		t.Errorf("metadata not mapped: %+v", angel)
	}

	ring := got[1]
	if ring.ManaCost != DefaultManaCost || ring.Text != DefaultText {
		t.Errorf("defaults not applied: %+v", ring)
	}
	if len(ring.Colors) != 1 || ring.Colors[0] != ColorlessColor {
		t.Errorf("Colors = %v, want [Colorless]", ring.Colors)
	}
	if ring.Price != 1.5 || ring.ImageURL != "" || ring.HasStats() {
		t.Errorf("unexpected fields: %+v", ring)
	}
}

func TestClientSearchCardsLimit(t *testing.T) {
	srv, _ := newScryfall(t, http.StatusOK, searchResponse)
	got, err := NewClient(srv.URL, time.Second).SearchCards(context.Background(), "x", 1)
	if err != nil {
		t.Fatalf("SearchCards: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("got %d cards, want 1", len(got))
	}
}

func TestClientSearchCardsStatusError(t *testing.T) {
	srv, _ := newScryfall(t, http.StatusNotFound, `{"object":"error","code":"not_found"}`)
	_, err := NewClient(srv.URL, time.Second).SearchCards(context.Background(), "zzz", 0)
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("expected status error, got %v", err)
	}
}

type fakeSearcher struct {
	cards []Card
	err   error
	calls int
}

func (f *fakeSearcher) SearchCards(ctx context.Context, query string, limit int) ([]Card, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := f.cards
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func TestCatalogLoad(t *testing.T) {
	srv, queries := newScryfall(t, http.StatusOK, searchResponse)
	cat := NewCatalog(CatalogConfig{Searcher: NewClient(srv.URL, time.Second)})

	if cat.Status() != StatusChecking {
		t.Errorf("initial status = %q, want checking", cat.Status())
	}
	if err := cat.Load(context.Background(), ""); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if (*queries)[0] != DefaultQuery {
		t.Errorf("Load used %q, want default query", (*queries)[0])
	}
	if cat.Status() != StatusConnected || cat.Len() != 2 {
		t.Errorf("status=%q len=%d, want connected/2", cat.Status(), cat.Len())
	}
	if _, ok := cat.Get("abc"); !ok {
		t.Error("Get(abc) missing after load")
	}
}

func TestCatalogLoadFallsBack(t *testing.T) {
	tests := []struct {
		name     string
		searcher *fakeSearcher
	}{
		{"remote error", &fakeSearcher{err: errors.New("boom")}},
		{"empty result", &fakeSearcher{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat := NewCatalog(CatalogConfig{Searcher: tt.searcher})
			if err := cat.Load(context.Background(), ""); err == nil {
				t.Fatal("expected error")
			}
			if cat.Status() != StatusError {
				t.Errorf("status = %q, want error", cat.Status())
			}
			if cat.Len() != 3 {
				t.Fatalf("len = %d, want 3 fallback cards", cat.Len())
			}
			lotus, ok := cat.Get("fallback-2")
			if !ok || lotus.Name != "Black Lotus" || lotus.Price != 25000 {
				t.Errorf("fallback card wrong: %+v", lotus)
			}
		})
	}
}

func TestCatalogLoadFallbackFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cards.yaml")
	data := "cards:\n  - id: x1\n    name: Llanowar Elves\n    type: Creature — Elf Druid\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cat := NewCatalog(CatalogConfig{Searcher: &fakeSearcher{err: errors.New("down")}, FallbackFile: path})
	_ = cat.Load(context.Background(), "")
	if cat.Len() != 1 {
		t.Fatalf("len = %d, want 1", cat.Len())
	}
	elves, _ := cat.Get("x1")
	if elves.ManaCost != DefaultManaCost || elves.Colors[0] != ColorlessColor {
		t.Errorf("defaults not applied to file cards: %+v", elves)
	}
}

func TestCatalogSearch(t *testing.T) {
	remote := []Card{{ID: "r1", Name: "Remote"}}

	t.Run("blank query", func(t *testing.T) {
		s := &fakeSearcher{cards: remote}
		cat := NewCatalog(CatalogConfig{Searcher: s})
		got, err := cat.Search(context.Background(), "   ")
		if err != nil || got != nil || s.calls != 0 {
			t.Errorf("got %v err %v calls %d, want nothing", got, err, s.calls)
		}
	})

	t.Run("remote", func(t *testing.T) {
		cat := NewCatalog(CatalogConfig{Searcher: &fakeSearcher{cards: remote}})
		got, err := cat.Search(context.Background(), "remote")
		if err != nil || len(got) != 1 || got[0].ID != "r1" {
			t.Errorf("got %v err %v", got, err)
		}
	})

	t.Run("local fallback", func(t *testing.T) {
		s := &fakeSearcher{err: errors.New("offline")}
		cat := NewCatalog(CatalogConfig{Searcher: s})
		_ = cat.Load(context.Background(), "")

		got, err := cat.Search(context.Background(), "MANA")
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if len(got) != 1 || got[0].Name != "Black Lotus" {
			t.Errorf("local match by text failed: %v", got)
		}

		got, _ = cat.Search(context.Background(), "planeswalker")
		if len(got) != 1 || got[0].ID != "fallback-3" {
			t.Errorf("local match by type failed: %v", got)
		}
	})
}

func TestSearchLocalLimit(t *testing.T) {
	many := make([]Card, 30)
	for i := range many {
		many[i] = Card{ID: fmt.Sprintf("c%d", i), Name: "Goblin Token"}
	}
	cat := NewCatalog(CatalogConfig{Searcher: &fakeSearcher{cards: many}})
	if err := cat.Load(context.Background(), ""); err != nil {
		t.Fatal(err)
	}
	if got := cat.SearchLocal("goblin"); len(got) != SearchLimit {
		t.Errorf("got %d, want %d", len(got), SearchLimit)
	}
}

func TestRandom(t *testing.T) {
	cat := NewCatalog(CatalogConfig{})
	if _, ok := cat.Random(); ok {
		t.Error("Random on empty catalog should report false")
	}
	_ = cat.Load(context.Background(), "")
	card, ok := cat.Random()
	if !ok || card.ID == "" {
		t.Errorf("Random = %+v, %v", card, ok)
	}
}

func TestParseFallbackRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", "cards: []\n"},
		{"missing name", "cards:\n  - id: a\n"},
		{"bad yaml", "cards: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseFallback([]byte(tt.data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}
