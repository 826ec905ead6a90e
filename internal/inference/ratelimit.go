package inference

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// ProviderLimiter applies a token bucket per oracle provider
type ProviderLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
}

// NewProviderLimiter creates an empty limiter. Providers without a
// registered limit are never throttled.
func NewProviderLimiter() *ProviderLimiter {
	return &ProviderLimiter{
		limiters: make(map[string]*rate.Limiter),
	}
}

// RegisterProvider limits a provider to rps requests per second
func (l *ProviderLimiter) RegisterProvider(provider string, rps float64) {
	if rps <= 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	l.limiters[provider] = rate.NewLimiter(rate.Limit(rps), burst)
}

// Allow reports whether a request may proceed right now
func (l *ProviderLimiter) Allow(provider string) bool {
	limiter := l.get(provider)
	if limiter == nil {
		return true
	}
	return limiter.Allow()
}

// Wait blocks until the provider has capacity or ctx is done
func (l *ProviderLimiter) Wait(ctx context.Context, provider string) error {
	limiter := l.get(provider)
	if limiter == nil {
		return nil
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait for %s: %w", provider, err)
	}
	return nil
}

func (l *ProviderLimiter) get(provider string) *rate.Limiter {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.limiters[provider]
}
