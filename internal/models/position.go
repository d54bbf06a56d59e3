package models

import "time"

// Outcome is the side of a binary market.
type Outcome string

const (
	OutcomeYes Outcome = "YES"
	OutcomeNo  Outcome = "NO"
)

// PortfolioPosition is the open position on a market. There is at most one
// per market. AvgPrice is the first entry price and PnL is never computed.
type PortfolioPosition struct {
	MarketID     string    `gorm:"primaryKey" json:"marketId"`
	Question     string    `json:"question"`
	Outcome      Outcome   `json:"outcome"`
	Shares       float64   `json:"shares"`
	AvgPrice     float64   `json:"avgPrice"`
	CurrentValue float64   `json:"currentValue"`
	PnL          float64   `json:"pnl"`
	CopiedFrom   string    `json:"copiedFrom"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
