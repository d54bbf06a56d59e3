package models

// Category is the topic bucket of a market.
type Category string

const (
	CategoryPolitics Category = "POLITICS"
	CategoryCrypto   Category = "CRYPTO"
	CategorySports   Category = "SPORTS"
	CategoryBusiness Category = "BUSINESS"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryPolitics, CategoryCrypto, CategorySports, CategoryBusiness:
		return true
	}
	return false
}

// Market is a read-only prediction market from the catalog.
// OddsYes and OddsNo are independent values in [0,1] and need not sum to 1.
type Market struct {
	ID       string   `json:"id" yaml:"id"`
	Question string   `json:"question" yaml:"question"`
	Volume   string   `json:"volume" yaml:"volume"`
	EndDate  string   `json:"endDate" yaml:"end_date"`
	Category Category `json:"category" yaml:"category"`
	OddsYes  float64  `json:"oddsYes" yaml:"odds_yes"`
	OddsNo   float64  `json:"oddsNo" yaml:"odds_no"`
	Image    string   `json:"image" yaml:"image"`
}

// PriceFor returns the odds used to fill a decision: the YES odds for
// decisions on the YES side, the NO odds otherwise.
func (m Market) PriceFor(d Decision) float64 {
	if d.Outcome() == OutcomeYes {
		return m.OddsYes
	}
	return m.OddsNo
}
