package agent

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/foremanhq/foreman/internal/provider"
	"github.com/foremanhq/foreman/internal/router"
)

// AgentOption configures an Agent via the functional options pattern.
type AgentOption func(*agentOptions)

// agentOptions holds all configurable fields set via AgentOption functions.
type agentOptions struct {
	// budget is the total USD spend ceiling for a run, per spec.md §3.
	budget decimal.Decimal

	// workDir is the working directory tool execution resolves relative
	// paths and runs shell commands against.
	workDir string

	// catalog overrides the default router.Catalog model list.
	catalog []router.ModelInfo

	// providers, when non-empty, replaces credential auto-detection with
	// an explicit adapter set (useful for tests and for wiring providers
	// the environment-variable heuristic in provider.DetectAvailable
	// can't express, such as a pre-built Bedrock client).
	providers []provider.Adapter

	// lookupEnv overrides os.LookupEnv for provider.DetectAvailable, a
	// seam for tests that shouldn't depend on the real environment.
	lookupEnv func(string) (string, bool)

	logger zerolog.Logger
}

// applyDefaults fills in zero-value fields with sensible defaults.
func (o *agentOptions) applyDefaults() {
	if o.workDir == "" {
		o.workDir = "."
	}
	if o.catalog == nil {
		o.catalog = router.Catalog
	}
	if o.lookupEnv == nil {
		o.lookupEnv = os.LookupEnv
	}
}

// resolveOptions applies all option functions and fills defaults.
func resolveOptions(opts []AgentOption) agentOptions {
	var o agentOptions
	for _, fn := range opts {
		fn(&o)
	}
	o.applyDefaults()
	return o
}

// WithBudget sets the total USD budget for a run. Required; Run rejects a
// non-positive budget with a stream whose only event is an ErrorEvent.
func WithBudget(totalUSD decimal.Decimal) AgentOption {
	return func(o *agentOptions) { o.budget = totalUSD }
}

// WithWorkDir sets the working directory for tool execution. File tools
// resolve relative paths against it and run_command uses it as cmd.Dir.
func WithWorkDir(dir string) AgentOption {
	return func(o *agentOptions) { o.workDir = dir }
}

// WithCatalog overrides the default static model catalog, for tests or
// for a deployment that prices its own fine-tuned models.
func WithCatalog(catalog []router.ModelInfo) AgentOption {
	return func(o *agentOptions) { o.catalog = catalog }
}

// WithProviders supplies pre-constructed provider adapters directly,
// bypassing credential auto-detection.
func WithProviders(adapters ...provider.Adapter) AgentOption {
	return func(o *agentOptions) { o.providers = adapters }
}

// WithLookupEnv overrides the environment lookup function
// provider.DetectAvailable uses to decide which providers to auto-construct.
func WithLookupEnv(fn func(string) (string, bool)) AgentOption {
	return func(o *agentOptions) { o.lookupEnv = fn }
}

// WithLogger sets the structured logger that Run stores in the run's
// context via internal/logctx. The agent and its run loop write no log
// lines of their own.
func WithLogger(logger zerolog.Logger) AgentOption {
	return func(o *agentOptions) { o.logger = logger }
}
