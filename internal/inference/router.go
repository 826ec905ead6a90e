package inference

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Router dispatches chat requests to a named provider backend
type Router struct {
	backends        map[string]Completer
	defaultProvider string
	limiter         *ProviderLimiter
	mu              sync.RWMutex
}

// NewRouter creates a router. Requests without a provider go to defaultProvider.
func NewRouter(defaultProvider string, limiter *ProviderLimiter) *Router {
	if limiter == nil {
		limiter = NewProviderLimiter()
	}
	return &Router{
		backends:        make(map[string]Completer),
		defaultProvider: defaultProvider,
		limiter:         limiter,
	}
}

// Register adds or replaces a provider backend
func (r *Router) Register(provider string, backend Completer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[provider] = backend
}

// Providers returns the registered provider names
func (r *Router) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Complete routes the request after waiting on the provider's rate limit
func (r *Router) Complete(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	provider := req.Provider
	if provider == "" {
		provider = r.defaultProvider
	}

	r.mu.RLock()
	backend, ok := r.backends[provider]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no backend registered for provider %q", provider)
	}

	if err := r.limiter.Wait(ctx, provider); err != nil {
		return nil, err
	}

	return backend.Complete(ctx, req)
}
