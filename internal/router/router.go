// Package router implements the budget-aware model selector of spec.md
// §4.2: given a step type and a reference to the budget tracker, it picks
// the model that maximizes capability subject to the remaining per-step
// cost envelope, falling back to the cheapest available model once the
// budget is nearly exhausted or no candidate fits.
package router

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/foremanhq/foreman/internal/budget"
)

// ErrNoAvailableModels is returned by New when the catalog, once filtered
// to available providers, is empty.
var ErrNoAvailableModels = errors.New("router: no available models for the configured providers")

// StepType is the finite set of step classifications spec.md §3 defines,
// each carrying a capability weight used by the scoring formula.
type StepType string

const (
	StepPlan    StepType = "plan"
	StepExecute StepType = "execute"
	StepVerify  StepType = "verify"
	StepSimple  StepType = "simple"
)

// Weight returns the step type's capability weight w ∈ [0,1].
func (s StepType) Weight() decimal.Decimal {
	switch s {
	case StepPlan:
		return decimal.NewFromFloat(0.6)
	case StepExecute:
		return decimal.NewFromFloat(1.0)
	case StepVerify:
		return decimal.NewFromFloat(0.5)
	case StepSimple:
		return decimal.NewFromFloat(0.1)
	default:
		return decimal.NewFromFloat(0.5)
	}
}

// ModelInfo describes one routable model: its provider family, its
// capability tier, and its per-million-token pricing.
type ModelInfo struct {
	ID       string
	Provider string
	Tier     budget.Tier
	Pricing  budget.Pricing
}

// capabilityScore returns tier-ordinal(m) / 4, per spec.md §4.2.
func (m ModelInfo) capabilityScore() decimal.Decimal {
	return decimal.NewFromInt(int64(m.Tier.Ordinal())).Div(decimal.NewFromInt(4))
}

// estimate returns the hypothetical cost of a call at the given token
// counts — the quantity spec.md §4.2 calls estimate(m, est-in, est-out).
func (m ModelInfo) estimate(estInTokens, estOutTokens int) decimal.Decimal {
	return m.Pricing.CostForCall(estInTokens, estOutTokens)
}

// defaultEstimate is the estimate used to pre-sort the catalog, at the
// select() default token counts (2000 in / 1000 out).
func (m ModelInfo) defaultEstimate() decimal.Decimal {
	return m.estimate(2000, 1000)
}

const (
	defaultEstInTokens  = 2000
	defaultEstOutTokens = 1000
)

// Router selects a model per step given the current state of a budget
// tracker. It holds an immutable, provider-filtered view of the catalog.
type Router struct {
	models  []ModelInfo
	tracker *budget.Tracker
}

// New filters catalog to the given available providers, sorts the result
// ascending by default-estimate cost (cheapest first, spec.md §4.2), and
// returns ErrNoAvailableModels if nothing survives the filter.
func New(catalog []ModelInfo, availableProviders []string, tracker *budget.Tracker) (*Router, error) {
	available := make(map[string]bool, len(availableProviders))
	for _, p := range availableProviders {
		available[p] = true
	}

	filtered := make([]ModelInfo, 0, len(catalog))
	for _, m := range catalog {
		if available[m.Provider] {
			filtered = append(filtered, m)
		}
	}
	if len(filtered) == 0 {
		return nil, ErrNoAvailableModels
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].defaultEstimate().LessThan(filtered[j].defaultEstimate())
	})

	return &Router{models: filtered, tracker: tracker}, nil
}

// CheapestModel returns the model with the lowest default-estimate cost.
func (r *Router) CheapestModel() ModelInfo {
	return r.models[0]
}

// AvailableTiers returns the distinct tiers present in the filtered
// catalog, in ascending ordinal order.
func (r *Router) AvailableTiers() []budget.Tier {
	seen := make(map[budget.Tier]bool)
	var tiers []budget.Tier
	for _, m := range r.models {
		if !seen[m.Tier] {
			seen[m.Tier] = true
			tiers = append(tiers, m.Tier)
		}
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].Ordinal() < tiers[j].Ordinal() })
	return tiers
}

// Lookup returns the ModelInfo for a model id, or false if it is not in
// the filtered catalog.
func (r *Router) Lookup(modelID string) (ModelInfo, bool) {
	for _, m := range r.models {
		if m.ID == modelID {
			return m, true
		}
	}
	return ModelInfo{}, false
}

// Select implements spec.md §4.2's selection algorithm: a hard budget
// guard at >95% utilization, a per-step cost envelope filter, and a
// weighted capability/savings score among the survivors.
func (r *Router) Select(stepType StepType, estInTokens, estOutTokens int) ModelInfo {
	if estInTokens <= 0 {
		estInTokens = defaultEstInTokens
	}
	if estOutTokens <= 0 {
		estOutTokens = defaultEstOutTokens
	}

	if r.tracker.Utilization().GreaterThan(decimal.NewFromFloat(0.95)) {
		return r.CheapestModel()
	}

	b := r.tracker.BudgetPerStep()

	var candidates []ModelInfo
	for _, m := range r.models {
		if m.estimate(estInTokens, estOutTokens).LessThanOrEqual(b) {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		return r.CheapestModel()
	}

	w := stepType.Weight()
	best := candidates[0]
	bestScore := r.score(best, w, b, estInTokens, estOutTokens)

	for _, m := range candidates[1:] {
		s := r.score(m, w, b, estInTokens, estOutTokens)
		if s.GreaterThan(bestScore) {
			best = m
			bestScore = s
		}
	}
	return best
}

// score computes w·capability + (1-w)·savings, where savings is
// 1 - estimate(m)/B (0 when B = 0), per spec.md §4.2.
func (r *Router) score(m ModelInfo, w, b decimal.Decimal, estInTokens, estOutTokens int) decimal.Decimal {
	capability := m.capabilityScore()

	var savings decimal.Decimal
	if b.IsPositive() {
		savings = decimal.NewFromInt(1).Sub(m.estimate(estInTokens, estOutTokens).Div(b))
	}

	return w.Mul(capability).Add(decimal.NewFromInt(1).Sub(w).Mul(savings))
}

// String renders a model for diagnostics, e.g. "standard-model (anthropic, standard)".
func (m ModelInfo) String() string {
	return fmt.Sprintf("%s (%s, %s)", m.ID, m.Provider, m.Tier)
}
