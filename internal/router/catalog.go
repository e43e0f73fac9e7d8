package router

import (
	"github.com/shopspring/decimal"

	"github.com/foremanhq/foreman/internal/budget"
)

// Catalog is the static model registry spec.md §4.2 describes as
// immutable (see spec.md §5 "Shared-resource policy"). Pricing is
// expressed in USD per million tokens.
var Catalog = []ModelInfo{
	{
		ID:       "claude-haiku",
		Provider: "anthropic",
		Tier:     budget.TierBudget,
		Pricing:  budget.Pricing{InputPerMTok: d(0.8), OutputPerMTok: d(4)},
	},
	{
		ID:       "claude-sonnet",
		Provider: "anthropic",
		Tier:     budget.TierStandard,
		Pricing:  budget.Pricing{InputPerMTok: d(3), OutputPerMTok: d(15)},
	},
	{
		ID:       "claude-opus",
		Provider: "anthropic",
		Tier:     budget.TierPremium,
		Pricing:  budget.Pricing{InputPerMTok: d(15), OutputPerMTok: d(75)},
	},
	{
		ID:       "gpt-4o-mini",
		Provider: "openai",
		Tier:     budget.TierEconomy,
		Pricing:  budget.Pricing{InputPerMTok: d(0.15), OutputPerMTok: d(0.6)},
	},
	{
		ID:       "gpt-4o",
		Provider: "openai",
		Tier:     budget.TierStandard,
		Pricing:  budget.Pricing{InputPerMTok: d(2.5), OutputPerMTok: d(10)},
	},
	{
		ID:       "bedrock-claude-sonnet",
		Provider: "bedrock",
		Tier:     budget.TierStandard,
		Pricing:  budget.Pricing{InputPerMTok: d(3), OutputPerMTok: d(15)},
	},
	{
		ID:       "gemini-flash",
		Provider: "gemini",
		Tier:     budget.TierEconomy,
		Pricing:  budget.Pricing{InputPerMTok: d(0.075), OutputPerMTok: d(0.3)},
	},
	{
		ID:       "gemini-pro",
		Provider: "gemini",
		Tier:     budget.TierPremium,
		Pricing:  budget.Pricing{InputPerMTok: d(1.25), OutputPerMTok: d(5)},
	},
}

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}
