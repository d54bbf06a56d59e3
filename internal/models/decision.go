package models

// Decision is the action returned by the decision oracle.
type Decision string

const (
	DecisionCopyBuyYes  Decision = "COPY_BUY_YES"
	DecisionCopyBuyNo   Decision = "COPY_BUY_NO"
	DecisionCopySellYes Decision = "COPY_SELL_YES"
	DecisionCopySellNo  Decision = "COPY_SELL_NO"
	DecisionHold        Decision = "HOLD"
)

// Decisions lists every decision literal in a stable order.
var Decisions = []Decision{
	DecisionCopyBuyYes,
	DecisionCopyBuyNo,
	DecisionCopySellYes,
	DecisionCopySellNo,
	DecisionHold,
}

// Valid reports whether d is a known decision literal.
func (d Decision) Valid() bool {
	for _, known := range Decisions {
		if d == known {
			return true
		}
	}
	return false
}

// IsHold reports whether the decision leaves the ledger untouched.
func (d Decision) IsHold() bool {
	return d == DecisionHold
}

// Outcome is the side a decision targets. HOLD maps to NO.
func (d Decision) Outcome() Outcome {
	switch d {
	case DecisionCopyBuyYes, DecisionCopySellYes:
		return OutcomeYes
	}
	return OutcomeNo
}

// TradeDecision is the oracle output for one market and trader.
// Amount is the oracle's suggested size; the ledger never uses it.
type TradeDecision struct {
	Decision  Decision `json:"decision"`
	Reasoning string   `json:"reasoning"`
	Amount    float64  `json:"amount"`
}
