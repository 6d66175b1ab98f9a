package models

// ProofType identifies the category of proof a tier can demand before a
// candidate is admitted.
type ProofType string

const (
	ProofNodeIdentity       ProofType = "NODE_IDENTITY"
	ProofCapabilityAttested ProofType = "CAPABILITY_ATTESTED"
	ProofOrgMembership      ProofType = "ORG_MEMBERSHIP"
	ProofBusMembership      ProofType = "BUS_MEMBERSHIP"
	ProofPolicyCompliance   ProofType = "POLICY_COMPLIANCE"
)

// validProofTypes is the single source of truth for valid proof types.
var validProofTypes = map[ProofType]bool{
	ProofNodeIdentity:       true,
	ProofCapabilityAttested: true,
	ProofOrgMembership:      true,
	ProofBusMembership:      true,
	ProofPolicyCompliance:   true,
}

// IsValid checks if the proof type is one of the supported enum values.
func (p ProofType) IsValid() bool {
	return validProofTypes[p]
}

// String returns the string representation of the proof type.
func (p ProofType) String() string {
	return string(p)
}

// ResolutionProof records the outcome of checking one proof type against a
// token and context. Created fresh per tier attempt; never mutated.
type ResolutionProof struct {
	ProofType ProofType `json:"proof_type"`
	Verified  bool      `json:"verified"`
	Notes     string    `json:"verification_notes,omitempty"`
}
