package cards

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed fallback.yaml
var embeddedFallback []byte

type fallbackFile struct {
	Cards []Card `yaml:"cards"`
}

// LoadFallback reads the offline card set. An empty path returns the built-in set.
func LoadFallback(path string) ([]Card, error) {
	data := embeddedFallback
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read fallback file: %w", err)
		}
	}
	return ParseFallback(data)
}

// ParseFallback parses a YAML card list
func ParseFallback(data []byte) ([]Card, error) {
	var f fallbackFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fallback cards: %w", err)
	}
	if len(f.Cards) == 0 {
		return nil, fmt.Errorf("fallback set contains no cards")
	}

	for i := range f.Cards {
		c := &f.Cards[i]
		if c.ID == "" || c.Name == "" {
			return nil, fmt.Errorf("fallback card %d: id and name are required", i)
		}
		if c.ManaCost == "" {
			c.ManaCost = DefaultManaCost
		}
		if c.Text == "" {
			c.Text = DefaultText
		}
		if len(c.Colors) == 0 {
			c.Colors = []string{ColorlessColor}
		}
	}
	return f.Cards, nil
}
