package agent

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/foremanhq/foreman/internal/budget"
	"github.com/foremanhq/foreman/internal/provider"
)

// Session holds the message history and cost summary for a single run.
// spec.md §3 scopes the budget tracker and message history to one agent
// session; there is no cross-run persistence here, unlike the teacher's
// multi-turn Client/SessionStore pair.
type Session struct {
	ID        string
	Messages  []provider.Entry
	Summary   SessionSummary
	CreatedAt time.Time
}

// SessionSummary reports what a run spent and how far it got.
type SessionSummary struct {
	TotalCost  decimal.Decimal
	Records    []budget.Record
	Steps      int
	Completed  bool
	TaskResult string
}

// newSession creates a new empty session.
func newSession() *Session {
	return &Session{
		ID:        generateID(PrefixRun),
		CreatedAt: time.Now(),
	}
}
