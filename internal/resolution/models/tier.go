package models

import dErrors "trustgrid/pkg/domain-errors"

// ResolutionTier is one rung of the escalation ladder, from most trusted and
// cheapest (local) to least trusted (quarantine). Ordering is a first-class
// property of the type: comparisons go through Rank, never through the order
// of declaration.
type ResolutionTier string

const (
	TierLocalExact       ResolutionTier = "LOCAL_EXACT"
	TierLocalCompatible  ResolutionTier = "LOCAL_COMPATIBLE"
	TierOrgTrusted       ResolutionTier = "ORG_TRUSTED"
	TierFederatedTrusted ResolutionTier = "FEDERATED_TRUSTED"
	TierQuarantine       ResolutionTier = "QUARANTINE"
)

// tierRanks is the single source of truth for tier ordering.
var tierRanks = map[ResolutionTier]int{
	TierLocalExact:       0,
	TierLocalCompatible:  1,
	TierOrgTrusted:       2,
	TierFederatedTrusted: 3,
	TierQuarantine:       4,
}

// tierProofs declares which proofs a candidate must present before it is
// admitted at each tier. Tiers at or below LOCAL_COMPATIBLE require none.
var tierProofs = map[ResolutionTier][]ProofType{
	TierLocalExact:       nil,
	TierLocalCompatible:  nil,
	TierOrgTrusted:       {ProofNodeIdentity, ProofOrgMembership},
	TierFederatedTrusted: {ProofNodeIdentity, ProofCapabilityAttested, ProofBusMembership},
	TierQuarantine:       {ProofNodeIdentity, ProofCapabilityAttested, ProofPolicyCompliance},
}

// TierLadder returns every tier in ascending trust-cost order.
func TierLadder() []ResolutionTier {
	return []ResolutionTier{
		TierLocalExact,
		TierLocalCompatible,
		TierOrgTrusted,
		TierFederatedTrusted,
		TierQuarantine,
	}
}

// ParseResolutionTier constructs a ResolutionTier from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unknown.
func ParseResolutionTier(s string) (ResolutionTier, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "tier cannot be empty")
	}
	t := ResolutionTier(s)
	if !t.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid tier")
	}
	return t, nil
}

// IsValid checks if the tier is one of the supported enum values.
func (t ResolutionTier) IsValid() bool {
	_, ok := tierRanks[t]
	return ok
}

// Rank returns the tier's position on the ladder. Unknown tiers rank above
// everything so that fail-closed comparisons treat them as least trusted.
func (t ResolutionTier) Rank() int {
	if r, ok := tierRanks[t]; ok {
		return r
	}
	return len(tierRanks)
}

// Before reports whether t escalates earlier (is more trusted) than other.
func (t ResolutionTier) Before(other ResolutionTier) bool {
	return t.Rank() < other.Rank()
}

// RequiredProofs returns the proof types a candidate must present at this
// tier. The returned slice is a copy.
func (t ResolutionTier) RequiredProofs() []ProofType {
	req := tierProofs[t]
	if len(req) == 0 {
		return nil
	}
	out := make([]ProofType, len(req))
	copy(out, req)
	return out
}

// String returns the string representation of the tier.
func (t ResolutionTier) String() string {
	return string(t)
}
