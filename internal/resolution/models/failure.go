package models

// FailureCode classifies why a tier attempt or a whole resolution failed.
// Per-tier failures are data, never Go errors: they let the escalation loop
// continue. Only malformed requests surface as errors before any tier runs.
type FailureCode string

const (
	FailureNone FailureCode = ""

	// Per-tier resolver outcomes.
	FailureNoProviders        FailureCode = "NO_PROVIDERS"
	FailureNoCandidates       FailureCode = "NO_CANDIDATES"
	FailureAmbiguousSelection FailureCode = "AMBIGUOUS_SELECTION"

	// Token and proof outcomes, recorded on the attempt that observed them.
	FailureTokenExpired          FailureCode = "TOKEN_EXPIRED"
	FailureTokenSignatureInvalid FailureCode = "TOKEN_SIGNATURE_INVALID"
	FailureProofVerification     FailureCode = "PROOF_VERIFICATION_FAILED"

	// Whole-resolution outcomes.
	FailureConstraintConflict      FailureCode = "CONSTRAINT_CONFLICT"
	FailureTierExhausted           FailureCode = "TIER_EXHAUSTED"
	FailureTimeout                 FailureCode = "TIMEOUT"
	FailureClassificationViolation FailureCode = "CLASSIFICATION_VIOLATION"
)

// String returns the string representation of the failure code.
func (f FailureCode) String() string {
	return string(f)
}
