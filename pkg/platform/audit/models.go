// Package audit defines the resolution audit event model. Events are
// emitted fire-and-forget: the resolver never blocks on the sink.
package audit

import (
	"time"

	"trustgrid/internal/resolution/models"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies and routing.
type EventCategory string

const (
	// CategorySecurity covers events relevant to security monitoring:
	// proof failures, classification ceilings hit, quarantine matches.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine resolution activity useful for
	// debugging and capacity planning. Can be sampled.
	CategoryOperations EventCategory = "operations"
)

// Event captures one completed resolution for the audit sink. It embeds the
// full result so the sink can serialize it directly.
type Event struct {
	Category       EventCategory  `json:"category"`
	Timestamp      time.Time      `json:"timestamp"`
	RequestID      string         `json:"request_id,omitempty"`
	Action         string         `json:"action"`
	Classification string         `json:"classification"`
	Result         *models.Result `json:"result,omitempty"`
}

const (
	// ActionResolved marks a successful resolution.
	ActionResolved = "resolution_succeeded"
	// ActionResolutionFailed marks an exhausted or timed-out resolution.
	ActionResolutionFailed = "resolution_failed"
	// ActionQuarantineMatch marks a success that landed in quarantine.
	ActionQuarantineMatch = "resolution_quarantine_match"
)

// Categorize derives the event category from the result: quarantine matches
// and proof-related failures are security events, the rest is operations.
func Categorize(result *models.Result) EventCategory {
	if result == nil {
		return CategoryOperations
	}
	if result.Success && result.Plan != nil && result.Plan.Hop.Isolated {
		return CategorySecurity
	}
	for _, attempt := range result.Attempts {
		switch attempt.FailureCode {
		case models.FailureTokenExpired,
			models.FailureTokenSignatureInvalid,
			models.FailureProofVerification:
			return CategorySecurity
		}
	}
	return CategoryOperations
}

// ActionFor derives the audit action from the result.
func ActionFor(result *models.Result) string {
	switch {
	case result == nil:
		return ActionResolutionFailed
	case result.Success && result.Plan != nil && result.Plan.Hop.Isolated:
		return ActionQuarantineMatch
	case result.Success:
		return ActionResolved
	default:
		return ActionResolutionFailed
	}
}
