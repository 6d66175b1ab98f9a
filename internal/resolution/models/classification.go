package models

import dErrors "trustgrid/pkg/domain-errors"

// Classification is the ordered sensitivity level attached to a resolution
// request. Higher levels are more sensitive and reach fewer tiers.
type Classification string

const (
	ClassificationPublic       Classification = "PUBLIC"
	ClassificationInternal     Classification = "INTERNAL"
	ClassificationConfidential Classification = "CONFIDENTIAL"
	ClassificationRestricted   Classification = "RESTRICTED"
)

// classificationRanks is the single source of truth for sensitivity ordering.
var classificationRanks = map[Classification]int{
	ClassificationPublic:       0,
	ClassificationInternal:     1,
	ClassificationConfidential: 2,
	ClassificationRestricted:   3,
}

// ParseClassification constructs a Classification from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unknown.
func ParseClassification(s string) (Classification, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "classification cannot be empty")
	}
	c := Classification(s)
	if !c.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid classification")
	}
	return c, nil
}

// IsValid checks if the classification is one of the supported enum values.
func (c Classification) IsValid() bool {
	_, ok := classificationRanks[c]
	return ok
}

// Rank returns the sensitivity position. Unknown classifications rank above
// RESTRICTED so that fail-closed checks treat them as maximally sensitive.
func (c Classification) Rank() int {
	if r, ok := classificationRanks[c]; ok {
		return r
	}
	return len(classificationRanks)
}

// AtLeast reports whether c is at least as sensitive as other.
func (c Classification) AtLeast(other Classification) bool {
	return c.Rank() >= other.Rank()
}

// String returns the string representation of the classification.
func (c Classification) String() string {
	return string(c)
}
