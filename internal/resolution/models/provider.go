package models

// HealthStatus is the registry's view of a provider's availability.
type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
)

// IsServable reports whether the provider may receive traffic. Degraded
// providers stay in the pool; unhealthy ones are excluded.
func (h HealthStatus) IsServable() bool {
	return h == HealthHealthy || h == HealthDegraded
}

// ProviderDescriptor is the registry's record of one provider. Descriptors
// are immutable once published; updates replace the record wholesale.
type ProviderDescriptor struct {
	ProviderID   string            `json:"provider_id"`
	TrustDomain  string            `json:"trust_domain"`
	Tier         ResolutionTier    `json:"tier"`
	Capabilities []string          `json:"capabilities"`
	AdapterRef   string            `json:"adapter_ref"`
	Tags         []string          `json:"tags,omitempty"`
	Attributes   map[string]string `json:"attributes,omitempty"`
	Health       HealthStatus      `json:"health"`
}

// HasCapability reports whether the descriptor declares the capability.
func (p ProviderDescriptor) HasCapability(capability string) bool {
	for _, c := range p.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

// HasTag reports whether the descriptor carries the tag.
func (p ProviderDescriptor) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can hand descriptors across snapshot
// boundaries without aliasing registry state.
func (p ProviderDescriptor) Clone() ProviderDescriptor {
	out := p
	out.Capabilities = append([]string(nil), p.Capabilities...)
	out.Tags = append([]string(nil), p.Tags...)
	if p.Attributes != nil {
		out.Attributes = make(map[string]string, len(p.Attributes))
		for k, v := range p.Attributes {
			out.Attributes[k] = v
		}
	}
	return out
}
