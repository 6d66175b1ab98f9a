package models

import "time"

// Binding is the single-tier resolver's success artifact: the requirement it
// satisfied, the chosen provider, and the score that won.
type Binding struct {
	Requirement RequirementSet     `json:"requirement"`
	Provider    ProviderDescriptor `json:"provider"`
	Score       float64            `json:"score"`
}

// RouteHop is the resolved path segment on success: the chosen provider, the
// tier it came from, and the redaction policy applied to its exposed data.
// Isolated marks QUARANTINE matches for downstream enforcement.
type RouteHop struct {
	Tier            ResolutionTier     `json:"tier"`
	Provider        ProviderDescriptor `json:"provider"`
	RedactionPolicy string             `json:"redaction_policy,omitempty"`
	Isolated        bool               `json:"isolated,omitempty"`
}

// RoutePlan is the terminal artifact handed to the caller on success.
type RoutePlan struct {
	Hop   RouteHop `json:"hop"`
	Score float64  `json:"score"`
}

// TierAttempt is one record per tier tried. The attempt list is append-only
// and ordered by attempt sequence.
type TierAttempt struct {
	Tier           ResolutionTier    `json:"tier"`
	Timestamp      time.Time         `json:"timestamp"`
	Success        bool              `json:"success"`
	CandidateCount int               `json:"candidate_count"`
	FailureCode    FailureCode       `json:"failure_code,omitempty"`
	Proofs         []ResolutionProof `json:"proofs,omitempty"`
}

// Result is the full outcome of one tiered resolution: the request, the
// ordered attempt history, and either a route plan or a failure code.
// Produced once per call and never mutated after construction.
type Result struct {
	Requirement    RequirementSet `json:"requirement"`
	Classification Classification `json:"classification"`
	Attempts       []TierAttempt  `json:"tier_attempts"`
	Success        bool           `json:"success"`
	Plan           *RoutePlan     `json:"route_plan,omitempty"`
	FailureCode    FailureCode    `json:"failure_code,omitempty"`
	FailureReason  string         `json:"failure_reason,omitempty"`
}
