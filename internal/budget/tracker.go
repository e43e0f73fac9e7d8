package budget

import (
	"sync"

	"github.com/shopspring/decimal"
)

// Record is an immutable cost event appended in the order calls complete,
// per spec.md §3 "Cost record". Records are never rewritten.
type Record struct {
	ModelID      string
	InputTokens  int
	OutputTokens int
	Cost         decimal.Decimal
	Step         int
}

// Tracker accumulates spend against a fixed USD budget and projects how
// many steps remain, per spec.md §4.1. It is safe for concurrent use,
// matching the teacher's own BudgetTracker, even though the agent step
// loop never calls it concurrently (spec.md §5).
type Tracker struct {
	mu sync.Mutex

	total   decimal.Decimal
	spent   decimal.Decimal
	records []Record

	estimatedRemainingSteps int
}

// NewTracker creates a tracker for a non-negative total budget and an
// initial remaining-step estimate, clamped to >= 1 per spec.md §3.
func NewTracker(total decimal.Decimal, initialEstimatedSteps int) *Tracker {
	return &Tracker{
		total:                   total,
		spent:                   decimal.Zero,
		estimatedRemainingSteps: max(initialEstimatedSteps, 1),
	}
}

// EstimateInitialSteps implements the coarse word-count heuristic of
// spec.md §4.5: <30 words -> 5, <100 words -> 10, else 20.
func EstimateInitialSteps(wordCount int) int {
	switch {
	case wordCount < 30:
		return 5
	case wordCount < 100:
		return 10
	default:
		return 20
	}
}

// Total returns the configured total budget.
func (t *Tracker) Total() decimal.Decimal {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// Spent returns cumulative spend across all recorded calls.
func (t *Tracker) Spent() decimal.Decimal {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.spent
}

// Records returns a copy of the append-only cost log.
func (t *Tracker) Records() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Record, len(t.records))
	copy(out, t.records)
	return out
}

// Remaining returns max(total-spent, 0), per spec.md §3.
func (t *Tracker) Remaining() decimal.Decimal {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remainingLocked()
}

func (t *Tracker) remainingLocked() decimal.Decimal {
	r := t.total.Sub(t.spent)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// Utilization returns spent/total, defined as 1 when total is 0.
func (t *Tracker) Utilization() decimal.Decimal {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.total.IsZero() {
		return decimal.NewFromInt(1)
	}
	return t.spent.Div(t.total)
}

// EstimatedRemainingSteps returns the current projection, always >= 1.
func (t *Tracker) EstimatedRemainingSteps() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.estimatedRemainingSteps
}

// AvgCostPerStep returns spent / len(records), or 0 with no records yet.
func (t *Tracker) AvgCostPerStep() decimal.Decimal {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.records) == 0 {
		return decimal.Zero
	}
	return t.spent.Div(decimal.NewFromInt(int64(len(t.records))))
}

// BudgetPerStep returns remaining / estimated-remaining-steps, the soft
// per-step envelope the router and MaxOutputTokens both consult.
func (t *Tracker) BudgetPerStep() decimal.Decimal {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remainingLocked().Div(decimal.NewFromInt(int64(t.estimatedRemainingSteps)))
}

// DecrementEstimatedSteps lowers the projection by one, clamped at 1. The
// step loop calls this between steps when the run does not complete
// (spec.md §4.5 step 13).
func (t *Tracker) DecrementEstimatedSteps() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.estimatedRemainingSteps = max(t.estimatedRemainingSteps-1, 1)
}

// Record appends a cost record for a completed call and returns its
// realized cost. Never fails (spec.md §4.1). Once at least two records
// exist, counting this one, the remaining-step estimate is re-projected
// from the observed average cost per step.
func (t *Tracker) Record(modelID string, inputTokens, outputTokens int, pricing Pricing, step int) decimal.Decimal {
	cost := pricing.CostForCall(inputTokens, outputTokens)

	t.mu.Lock()
	defer t.mu.Unlock()

	t.spent = t.spent.Add(cost)
	t.records = append(t.records, Record{
		ModelID:      modelID,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Cost:         cost,
		Step:         step,
	})

	if len(t.records) >= 2 {
		avg := t.spent.Div(decimal.NewFromInt(int64(len(t.records))))
		if avg.IsPositive() {
			projected := t.remainingLocked().Div(avg).IntPart()
			t.estimatedRemainingSteps = int(clampInt64(projected, 1, projected))
			if projected < 1 {
				t.estimatedRemainingSteps = 1
			}
		}
	}

	return cost
}

// CanAfford reports whether remaining budget covers a hypothetical cost x.
func (t *Tracker) CanAfford(x decimal.Decimal) bool {
	return t.Remaining().GreaterThanOrEqual(x)
}

const (
	minOutputTokens = 256
	maxOutputTokens = 16384
)

// MaxOutputTokens computes a safe output-token ceiling per spec.md §4.1:
//
//	B = budget-per-step, I = estimatedInputTokens * inputPrice / 1e6.
//	If B - I <= 0, return 256. Otherwise clamp((B-I)/(outputPrice/1e6), 256, 16384).
//
// Reserving per-step budget prevents any single call from exhausting
// reserves; the floor preserves the ability to produce a meaningful
// refusal or summary; the ceiling bounds catastrophic mis-estimation.
func (t *Tracker) MaxOutputTokens(pricing Pricing, estimatedInputTokens int) int {
	if estimatedInputTokens <= 0 {
		estimatedInputTokens = 2000
	}

	b := t.BudgetPerStep()
	inputCost := decimal.NewFromInt(int64(estimatedInputTokens)).Mul(pricing.InputPerMTok).Div(million)
	budgetForOutput := b.Sub(inputCost)

	if !budgetForOutput.IsPositive() {
		return minOutputTokens
	}

	if pricing.OutputPerMTok.IsZero() {
		return maxOutputTokens
	}

	tokens := budgetForOutput.Div(pricing.OutputPerMTok.Div(million)).IntPart()
	return int(clampInt64(tokens, minOutputTokens, maxOutputTokens))
}

func clampInt64(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
