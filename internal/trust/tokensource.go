package trust

import (
	"context"
	"sync"

	"trustgrid/pkg/platform/sentinel"
)

// InMemoryTokenSource maps provider IDs to their presented capability
// tokens. Bootstrap code fills it from configuration or an enrollment
// feed; tests fill it directly.
type InMemoryTokenSource struct {
	mu     sync.RWMutex
	tokens map[string]*CapabilityToken
}

// NewInMemoryTokenSource constructs an empty source.
func NewInMemoryTokenSource() *InMemoryTokenSource {
	return &InMemoryTokenSource{tokens: make(map[string]*CapabilityToken)}
}

// Put associates a token with a provider, replacing any previous one.
func (s *InMemoryTokenSource) Put(providerID string, token *CapabilityToken) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[providerID] = token
}

// TokenFor returns the provider's token.
//
// Errors: sentinel.ErrNotFound when no token is held for the provider.
func (s *InMemoryTokenSource) TokenFor(_ context.Context, providerID string) (*CapabilityToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.tokens[providerID]; ok {
		return t, nil
	}
	return nil, sentinel.ErrNotFound
}
