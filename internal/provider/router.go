package provider

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Router manages registered providers and routes chat requests to one of
// them, falling through to the next provider on failure.
type Router struct {
	providers map[string]Provider
	order     []string
	defaults  string
	mu        sync.RWMutex
	logger    *zap.Logger
}

// NewRouter creates a new provider router.
func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		providers: make(map[string]Provider),
		logger:    logger,
	}
}

// Register adds a provider to the router. The first registered provider
// becomes the default.
func (r *Router) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.ID()] = p
	r.order = append(r.order, p.ID())
	if r.defaults == "" {
		r.defaults = p.ID()
	}
	r.logger.Info("registered provider", zap.String("id", p.ID()), zap.String("name", p.Name()))
}

// SetDefault sets the default provider.
func (r *Router) SetDefault(providerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[providerID]; ok {
		r.defaults = providerID
	}
}

// Available reports whether any provider is registered.
func (r *Router) Available() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers) > 0
}

// Chat routes a request to the default provider, trying the remaining
// providers in registration order when it fails.
func (r *Router) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	r.mu.RLock()
	chain := make([]Provider, 0, len(r.order))
	if p, ok := r.providers[r.defaults]; ok {
		chain = append(chain, p)
	}
	for _, id := range r.order {
		if id != r.defaults {
			chain = append(chain, r.providers[id])
		}
	}
	r.mu.RUnlock()

	if len(chain) == 0 {
		return nil, fmt.Errorf("no providers registered")
	}

	var lastErr error
	for _, p := range chain {
		resp, err := p.Chat(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		r.logger.Warn("provider chat failed, trying next",
			zap.String("provider", p.ID()), zap.Error(err))
	}
	return nil, fmt.Errorf("all providers failed: %w", lastErr)
}
