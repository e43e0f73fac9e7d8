package agent

import "errors"

// Sentinel errors returned by Run.
var (
	// ErrBudgetExhausted names the case where the tracker can't afford
	// even the cheapest model's floor cost before a step starts. Run
	// reports that case as a BudgetExhaustedEvent, not as an ErrorEvent
	// carrying this error.
	ErrBudgetExhausted = errors.New("agent: budget exhausted")
	// ErrNoProviders is returned when no provider adapter could be
	// constructed from the process environment's credentials.
	ErrNoProviders = errors.New("agent: no provider credentials available")
	// ErrMaxStepsExceeded is returned when a run hits its step ceiling
	// without the model calling task_complete.
	ErrMaxStepsExceeded = errors.New("agent: max steps exceeded without completion")
)
