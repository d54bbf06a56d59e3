package oracle

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"copy-trade-bot-go/internal/models"
)

type tableEntry struct {
	decision  models.Decision
	reasoning string
}

var simulatedTable = []tableEntry{
	{models.DecisionCopyBuyYes, "Whale wallet accumulation detected. High confidence follow."},
	{models.DecisionCopyBuyNo, "Contrarian signal: Top trader selling into strength. Mirroring short."},
	{models.DecisionCopySellYes, "Trader taking profit after 20% gain. Executing exit."},
	{models.DecisionCopyBuyYes, "Insider wallet active on this market. Following flow."},
}

// SimulatedDecider draws decisions from a fixed table. It never fails.
type SimulatedDecider struct {
	mu  sync.Mutex
	rng *rand.Rand
}

var _ Decider = (*SimulatedDecider)(nil)

// NewSimulatedDecider creates a decider seeded from the clock.
func NewSimulatedDecider() *SimulatedDecider {
	return NewSimulatedDeciderWithRand(rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewSimulatedDeciderWithRand creates a decider drawing from rng.
func NewSimulatedDeciderWithRand(rng *rand.Rand) *SimulatedDecider {
	return &SimulatedDecider{rng: rng}
}

// Decide picks a table entry and a suggested amount between 10 and 59.
func (s *SimulatedDecider) Decide(_ context.Context, _ models.Market, _ *models.TraderProfile) (models.TradeDecision, error) {
	s.mu.Lock()
	entry := simulatedTable[s.rng.Intn(len(simulatedTable))]
	amount := float64(s.rng.Intn(50) + 10)
	s.mu.Unlock()

	return models.TradeDecision{
		Decision:  entry.decision,
		Reasoning: simulatedPrefix + entry.reasoning,
		Amount:    amount,
	}, nil
}

// Fallback picks a table entry to stand in for a failed remote call.
func (s *SimulatedDecider) Fallback() models.TradeDecision {
	s.mu.Lock()
	entry := simulatedTable[s.rng.Intn(len(simulatedTable))]
	s.mu.Unlock()

	return models.TradeDecision{
		Decision:  entry.decision,
		Reasoning: fallbackReasoning,
		Amount:    fallbackAmount,
	}
}
