package provider

import (
	"fmt"
	"sync"

	"github.com/strata-io/strata/pkg/provider"
	"github.com/strata-io/strata/providers/aws"
	"github.com/strata-io/strata/providers/null"
)

// Registry manages the lifecycle of providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]provider.Interface
}

func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]provider.Interface),
	}
}

// Load initializes and registers a built-in provider by name.
// Loading an already-loaded provider is a no-op.
func (r *Registry) Load(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[name]; exists {
		return nil
	}

	var p provider.Interface
	switch name {
	case "null":
		p = null.New()
	case "aws":
		p = aws.New()
	default:
		return fmt.Errorf("unknown provider: %s", name)
	}

	r.providers[name] = p
	return nil
}

// Register adds a provider instance under a name, replacing any existing one.
// Tests use this to install fakes.
func (r *Registry) Register(name string, p provider.Interface) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = p
}

// Get returns a registered provider.
func (r *Registry) Get(name string) (provider.Interface, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider not loaded: %s", name)
	}
	return p, nil
}

// Prober returns the readiness prober for a provider, or nil if the provider
// does not expose one.
func (r *Registry) Prober(name string) provider.Prober {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.providers[name].(provider.Prober); ok {
		return p
	}
	return nil
}
