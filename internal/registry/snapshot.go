package registry

import (
	"sort"

	"trustgrid/internal/resolution/models"
)

// Snapshot is an immutable point-in-time view of the provider catalog.
// Construct via NewSnapshot; never mutate after construction.
type Snapshot struct {
	byID   map[string]models.ProviderDescriptor
	byTier map[models.ResolutionTier][]models.ProviderDescriptor
}

// NewSnapshot indexes the given descriptors. Descriptors are deep-copied so
// later mutation of the inputs cannot reach the snapshot. Within each tier,
// providers are ordered by provider ID for deterministic iteration.
func NewSnapshot(providers []models.ProviderDescriptor) *Snapshot {
	s := &Snapshot{
		byID:   make(map[string]models.ProviderDescriptor, len(providers)),
		byTier: make(map[models.ResolutionTier][]models.ProviderDescriptor),
	}
	for _, p := range providers {
		cp := p.Clone()
		s.byID[cp.ProviderID] = cp
		s.byTier[cp.Tier] = append(s.byTier[cp.Tier], cp)
	}
	for tier := range s.byTier {
		tierProviders := s.byTier[tier]
		sort.Slice(tierProviders, func(i, j int) bool {
			return tierProviders[i].ProviderID < tierProviders[j].ProviderID
		})
	}
	return s
}

// ProvidersForTier returns the filtered registry view for one tier: the
// providers published under that tier's trust domain, ordered by provider
// ID, excluding unhealthy providers. includeUnhealthy overrides the health
// filter for diagnostics only.
func (s *Snapshot) ProvidersForTier(tier models.ResolutionTier, includeUnhealthy bool) []models.ProviderDescriptor {
	var out []models.ProviderDescriptor
	for _, p := range s.byTier[tier] {
		if !includeUnhealthy && !p.Health.IsServable() {
			continue
		}
		out = append(out, p.Clone())
	}
	return out
}

// Provider looks up one descriptor by ID.
func (s *Snapshot) Provider(providerID string) (models.ProviderDescriptor, bool) {
	p, ok := s.byID[providerID]
	if !ok {
		return models.ProviderDescriptor{}, false
	}
	return p.Clone(), true
}

// All returns every descriptor ordered by provider ID.
func (s *Snapshot) All() []models.ProviderDescriptor {
	out := make([]models.ProviderDescriptor, 0, len(s.byID))
	for _, p := range s.byID {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProviderID < out[j].ProviderID })
	return out
}

// Len returns the number of providers in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.byID)
}
