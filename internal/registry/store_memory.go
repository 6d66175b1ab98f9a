package registry

import (
	"context"
	"sync/atomic"

	"trustgrid/internal/resolution/models"
	dErrors "trustgrid/pkg/domain-errors"
	"trustgrid/pkg/platform/sentinel"
)

// InMemoryRegistry keeps the catalog in process memory. Every mutation
// rebuilds the snapshot and swaps it atomically, so readers never observe a
// torn catalog.
type InMemoryRegistry struct {
	current atomic.Pointer[Snapshot]
}

// NewInMemoryRegistry seeds a registry with the given providers.
func NewInMemoryRegistry(providers ...models.ProviderDescriptor) *InMemoryRegistry {
	r := &InMemoryRegistry{}
	r.current.Store(NewSnapshot(providers))
	return r
}

// Snapshot returns the currently published snapshot.
func (r *InMemoryRegistry) Snapshot(_ context.Context) (*Snapshot, error) {
	return r.current.Load(), nil
}

// Publish inserts or replaces a provider and swaps in a new snapshot.
func (r *InMemoryRegistry) Publish(_ context.Context, provider models.ProviderDescriptor) error {
	if provider.ProviderID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "provider_id is required")
	}
	if !provider.Tier.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "provider tier is invalid")
	}

	for {
		old := r.current.Load()
		next := make([]models.ProviderDescriptor, 0, old.Len()+1)
		for _, p := range old.All() {
			if p.ProviderID != provider.ProviderID {
				next = append(next, p)
			}
		}
		next = append(next, provider)
		if r.current.CompareAndSwap(old, NewSnapshot(next)) {
			return nil
		}
	}
}

// Unpublish removes a provider and swaps in a new snapshot.
func (r *InMemoryRegistry) Unpublish(_ context.Context, providerID string) error {
	for {
		old := r.current.Load()
		if _, ok := old.Provider(providerID); !ok {
			return sentinel.ErrNotFound
		}
		next := make([]models.ProviderDescriptor, 0, old.Len())
		for _, p := range old.All() {
			if p.ProviderID != providerID {
				next = append(next, p)
			}
		}
		if r.current.CompareAndSwap(old, NewSnapshot(next)) {
			return nil
		}
	}
}

// List returns every descriptor ordered by provider ID.
func (r *InMemoryRegistry) List(_ context.Context) ([]models.ProviderDescriptor, error) {
	return r.current.Load().All(), nil
}

// Replace swaps the entire catalog in one step, for bulk refresh from an
// external source of truth.
func (r *InMemoryRegistry) Replace(_ context.Context, providers []models.ProviderDescriptor) error {
	for _, p := range providers {
		if p.ProviderID == "" {
			return dErrors.New(dErrors.CodeInvalidInput, "provider_id is required")
		}
	}
	r.current.Store(NewSnapshot(providers))
	return nil
}
