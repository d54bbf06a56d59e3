package models

import "time"

// TradeStatus is the execution status recorded for a decision cycle.
type TradeStatus string

const (
	TradeStatusPending  TradeStatus = "PENDING"
	TradeStatusExecuted TradeStatus = "EXECUTED"
	TradeStatusFailed   TradeStatus = "FAILED"
)

// TradeLogEntry records one decision cycle, HOLD included.
// Entries are written once and never updated; Seq gives creation order.
type TradeLogEntry struct {
	Seq            uint        `gorm:"primaryKey;autoIncrement" json:"-"`
	ID             string      `gorm:"uniqueIndex;not null" json:"id"`
	Timestamp      time.Time   `gorm:"index" json:"timestamp"`
	MarketID       string      `gorm:"index" json:"marketId"`
	MarketQuestion string      `json:"marketQuestion"`
	Action         Decision    `json:"action"`
	CopiedTrader   string      `json:"copiedTrader"`
	Amount         float64     `json:"amount"`
	Price          float64     `json:"price"`
	Status         TradeStatus `json:"status"`
	Reasoning      string      `json:"reasoning"`
}
