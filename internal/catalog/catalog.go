// Package catalog provides the read-only market catalog and the seed trader
// profiles. The defaults are embedded; a YAML file can replace them.
package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"copy-trade-bot-go/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var defaultSeed []byte

// TraderSeed is the YAML shape of a seed trader profile.
type TraderSeed struct {
	ID        string   `yaml:"id"`
	Name      string   `yaml:"name"`
	Address   string   `yaml:"address"`
	PnL       float64  `yaml:"pnl"`
	WinRate   float64  `yaml:"win_rate"`
	Volume    string   `yaml:"volume"`
	Followers int      `yaml:"followers"`
	Tags      []string `yaml:"tags"`
	IsHot     bool     `yaml:"is_hot"`
}

type file struct {
	Traders []TraderSeed    `yaml:"traders"`
	Markets []models.Market `yaml:"markets"`
}

// Catalog is an immutable set of markets and seed traders.
type Catalog struct {
	markets []models.Market
	byID    map[string]int
	traders []TraderSeed
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultSeed)
}

// Load reads the catalog at path, or the embedded one when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes and validates a YAML catalog. Unknown fields are rejected.
func Parse(raw []byte) (*Catalog, error) {
	var f file
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c := &Catalog{
		markets: f.Markets,
		byID:    make(map[string]int, len(f.Markets)),
		traders: f.Traders,
	}
	for i, m := range f.Markets {
		if err := validateMarket(m); err != nil {
			return nil, fmt.Errorf("market #%d: %w", i+1, err)
		}
		if _, dup := c.byID[m.ID]; dup {
			return nil, fmt.Errorf("market #%d: duplicate id %q", i+1, m.ID)
		}
		c.byID[m.ID] = i
	}

	traderIDs := make(map[string]struct{}, len(f.Traders))
	for i, t := range f.Traders {
		if t.ID == "" || t.Name == "" {
			return nil, fmt.Errorf("trader #%d: id and name are required", i+1)
		}
		if _, dup := traderIDs[t.ID]; dup {
			return nil, fmt.Errorf("trader #%d: duplicate id %q", i+1, t.ID)
		}
		traderIDs[t.ID] = struct{}{}
	}
	return c, nil
}

func validateMarket(m models.Market) error {
	if m.ID == "" || m.Question == "" {
		return fmt.Errorf("id and question are required")
	}
	if !m.Category.Valid() {
		return fmt.Errorf("unknown category %q", m.Category)
	}
	if m.OddsYes < 0 || m.OddsYes > 1 || m.OddsNo < 0 || m.OddsNo > 1 {
		return fmt.Errorf("odds must be within [0,1], got yes=%v no=%v", m.OddsYes, m.OddsNo)
	}
	return nil
}

// Markets returns a copy of all markets in catalog order.
func (c *Catalog) Markets() []models.Market {
	out := make([]models.Market, len(c.markets))
	copy(out, c.markets)
	return out
}

// Market looks up a market by id.
func (c *Catalog) Market(id string) (models.Market, bool) {
	i, ok := c.byID[id]
	if !ok {
		return models.Market{}, false
	}
	return c.markets[i], true
}

// Traders returns the seed profiles in catalog order. The first trader gets
// the highest rank so it is listed first.
func (c *Catalog) Traders() []models.TraderProfile {
	out := make([]models.TraderProfile, 0, len(c.traders))
	for i, t := range c.traders {
		out = append(out, models.TraderProfile{
			ID:        t.ID,
			Name:      t.Name,
			Address:   t.Address,
			PnL:       t.PnL,
			WinRate:   t.WinRate,
			Volume:    t.Volume,
			Followers: t.Followers,
			Tags:      models.NewTags(t.Tags...),
			IsHot:     t.IsHot,
			Rank:      int64(-i),
		})
	}
	return out
}
