// Package budget implements the cost accountant described in spec.md §4.1:
// it records realized spend, projects how many steps remain, and computes
// the per-call output-token ceiling the step loop uses so that no single
// call can exhaust the session's remaining budget.
package budget

import "github.com/shopspring/decimal"

// Tier is a model's capability label, ordered cheapest to most capable.
type Tier int

const (
	TierBudget Tier = iota + 1
	TierEconomy
	TierStandard
	TierPremium
)

// Ordinal returns the tier's position in {budget=1 .. premium=4}, matching
// the capability-score formula of spec.md §4.2 (tier-ordinal / 4).
func (t Tier) Ordinal() int { return int(t) }

func (t Tier) String() string {
	switch t {
	case TierBudget:
		return "budget"
	case TierEconomy:
		return "economy"
	case TierStandard:
		return "standard"
	case TierPremium:
		return "premium"
	default:
		return "unknown"
	}
}

var million = decimal.NewFromInt(1_000_000)

// Pricing holds per-model token prices in USD per million tokens.
type Pricing struct {
	InputPerMTok  decimal.Decimal
	OutputPerMTok decimal.Decimal
}

// CostForCall computes (inputTokens*inputPrice + outputTokens*outputPrice)/1e6,
// the formula spec.md §3 "Model info" prescribes for a hypothetical call.
func (p Pricing) CostForCall(inputTokens, outputTokens int) decimal.Decimal {
	in := decimal.NewFromInt(int64(inputTokens)).Mul(p.InputPerMTok).Div(million)
	out := decimal.NewFromInt(int64(outputTokens)).Mul(p.OutputPerMTok).Div(million)
	return in.Add(out)
}
