// Package oracle decides whether a trader's move is worth copying. A remote
// model is consulted when configured; otherwise, or when it fails, a small
// local table of plausible outcomes stands in.
package oracle

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"copy-trade-bot-go/internal/models"
)

var (
	// ErrMissingAPIKey is returned by the remote decider when no key is configured.
	ErrMissingAPIKey = errors.New("oracle api key is not configured")
	// ErrMalformedResponse is returned when the remote answer cannot be used.
	ErrMalformedResponse = errors.New("malformed oracle response")
)

const (
	unknownTraderName    = "Unknown Whale"
	unknownTraderWinRate = "Unknown"

	simulatedPrefix   = "(Simulated) "
	fallbackReasoning = "Fallback: Analysis service temporarily unavailable."
	fallbackAmount    = 25
)

// Decider returns a trade decision for a trader's move on a market.
// trader may be nil when the mover is not known.
type Decider interface {
	Decide(ctx context.Context, market models.Market, trader *models.TraderProfile) (models.TradeDecision, error)
}

// Request is what the remote oracle is asked about.
type Request struct {
	Question      string  `json:"question"`
	OddsYes       float64 `json:"oddsYes"`
	TraderName    string  `json:"traderName"`
	TraderWinRate string  `json:"traderWinRate"`
}

// NewRequest builds the oracle request for a market and an optional trader.
func NewRequest(market models.Market, trader *models.TraderProfile) Request {
	req := Request{
		Question:      market.Question,
		OddsYes:       market.OddsYes,
		TraderName:    unknownTraderName,
		TraderWinRate: unknownTraderWinRate,
	}
	if trader != nil {
		req.TraderName = trader.Name
		req.TraderWinRate = strconv.FormatFloat(trader.WinRate, 'f', -1, 64)
	}
	return req
}

// IsFallback reports whether reasoning came from the local table rather than
// the remote model.
func IsFallback(reasoning string) bool {
	return strings.HasPrefix(reasoning, simulatedPrefix) || strings.HasPrefix(reasoning, "Fallback:")
}

// truncate bounds s to max runes. max <= 0 disables the bound.
func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
