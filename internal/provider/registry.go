package provider

import "os"

// DetectAvailable inspects the process environment for credentials and
// returns the list of provider names that can be constructed, matching
// spec.md §4.2's "filter the registry to models whose provider is
// available" precondition. It never constructs a client; callers build
// the concrete adapters for whichever names come back.
func DetectAvailable(lookupEnv func(string) (string, bool)) []string {
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}

	var available []string
	if _, ok := lookupEnv("ANTHROPIC_API_KEY"); ok {
		available = append(available, "anthropic")
	}
	if _, ok := lookupEnv("OPENAI_API_KEY"); ok {
		available = append(available, "openai")
	}
	if _, ok := lookupEnv("AWS_ACCESS_KEY_ID"); ok {
		available = append(available, "bedrock")
	} else if _, ok := lookupEnv("AWS_PROFILE"); ok {
		available = append(available, "bedrock")
	}
	if _, ok := lookupEnv("GEMINI_API_KEY"); ok {
		available = append(available, "gemini")
	} else if _, ok := lookupEnv("GOOGLE_API_KEY"); ok {
		available = append(available, "gemini")
	}
	return available
}

// Registry maps provider names to constructed adapters, looked up by the
// step loop once the router has chosen a model.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry builds a Registry from a set of constructed adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Name()] = a
	}
	return r
}

// Get returns the adapter for a provider name, or false if none is
// registered.
func (r *Registry) Get(name string) (Adapter, bool) {
	a, ok := r.adapters[name]
	return a, ok
}

// Names returns the registered provider names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	return names
}
