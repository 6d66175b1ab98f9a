package models

import (
	"sort"

	dErrors "trustgrid/pkg/domain-errors"
	pstrings "trustgrid/pkg/platform/strings"
)

// SelectionPolicy controls how a winner is chosen from scored candidates.
type SelectionPolicy string

const (
	// SelectAutoIfUnique selects a sole surviving candidate unconditionally;
	// with several survivors it demands an unambiguous score winner.
	SelectAutoIfUnique SelectionPolicy = "auto_if_unique"
	// SelectBestScore selects the top of the deterministic sort order.
	SelectBestScore SelectionPolicy = "best_score"
	// SelectRequireExplicit succeeds only when the requirement names an exact
	// provider ID.
	SelectRequireExplicit SelectionPolicy = "require_explicit"
)

var validSelectionPolicies = map[SelectionPolicy]bool{
	SelectAutoIfUnique:    true,
	SelectBestScore:       true,
	SelectRequireExplicit: true,
}

// ParseSelectionPolicy constructs a SelectionPolicy from external input.
func ParseSelectionPolicy(s string) (SelectionPolicy, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "selection policy cannot be empty")
	}
	p := SelectionPolicy(s)
	if !p.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid selection policy")
	}
	return p, nil
}

// IsValid checks if the policy is one of the supported enum values.
func (p SelectionPolicy) IsValid() bool {
	return validSelectionPolicies[p]
}

// String returns the string representation of the policy.
func (p SelectionPolicy) String() string {
	return string(p)
}

// Preference is one weighted soft constraint. A candidate matching the
// capability or tag earns Weight toward its score.
type Preference struct {
	Capability string  `json:"capability,omitempty"`
	Tag        string  `json:"tag,omitempty"`
	Weight     float64 `json:"weight"`
}

// RequirementSet is the caller-constructed, immutable resolution request.
// Construct via NewRequirementSet so the must/forbid disjointness invariant
// is checked eagerly, before any tier is tried.
type RequirementSet struct {
	Name             string          `json:"name"`
	Must             []string        `json:"must"`
	Forbid           []string        `json:"forbid,omitempty"`
	Prefer           []Preference    `json:"prefer,omitempty"`
	Policy           SelectionPolicy `json:"selection_policy"`
	ExplicitProvider string          `json:"explicit_provider,omitempty"`
}

// NewRequirementSet builds a validated requirement set. Capability lists are
// copied and sorted so identical requests compare and serialize identically.
//
// Errors: CodeInvalidInput for an unknown policy, CodeInvariantViolation
// (CONSTRAINT_CONFLICT) when must and forbid overlap.
func NewRequirementSet(name string, must, forbid []string, prefer []Preference, policy SelectionPolicy) (RequirementSet, error) {
	if !policy.IsValid() {
		return RequirementSet{}, dErrors.New(dErrors.CodeInvalidInput, "invalid selection policy")
	}
	must = pstrings.DedupeAndTrim(must)
	forbid = pstrings.DedupeAndTrim(forbid)
	if len(must) == 0 {
		return RequirementSet{}, dErrors.New(dErrors.CodeInvalidInput, "must capabilities are required")
	}

	forbidden := make(map[string]bool, len(forbid))
	for _, c := range forbid {
		forbidden[c] = true
	}
	for _, c := range must {
		if forbidden[c] {
			return RequirementSet{}, dErrors.New(dErrors.CodeInvariantViolation,
				"capability required and forbidden: "+c)
		}
	}

	rs := RequirementSet{
		Name:   name,
		Must:   sortedCopy(must),
		Forbid: sortedCopy(forbid),
		Prefer: append([]Preference(nil), prefer...),
		Policy: policy,
	}
	return rs, nil
}

// WithExplicitProvider returns a copy naming an exact provider ID, for use
// with SelectRequireExplicit.
func (r RequirementSet) WithExplicitProvider(providerID string) RequirementSet {
	r.ExplicitProvider = providerID
	return r
}

// Validate re-checks the construction invariants. Handlers call this on
// requests decoded from the wire, where NewRequirementSet was bypassed.
func (r RequirementSet) Validate() error {
	_, err := NewRequirementSet(r.Name, r.Must, r.Forbid, r.Prefer, r.Policy)
	return err
}

func sortedCopy(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	sort.Strings(out)
	return out
}
