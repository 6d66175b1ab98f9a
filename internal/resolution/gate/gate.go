// Package gate maps a request's sensitivity classification to the tiers it
// may reach. The gate is configuration: built once at startup and treated as
// an immutable snapshot per resolution call.
package gate

import (
	"sort"

	"trustgrid/internal/resolution/models"
	dErrors "trustgrid/pkg/domain-errors"
)

// Gate restricts which tiers are reachable per classification. It is a hard
// ceiling: candidate availability elsewhere never widens it.
type Gate struct {
	allowed map[models.Classification][]models.ResolutionTier
}

// New builds a gate from a classification → tier-set table. Tier lists are
// copied and normalized to ascending ladder order. Classifications absent
// from the table get no tiers at all, which fails closed downstream.
func New(table map[models.Classification][]models.ResolutionTier) (*Gate, error) {
	g := &Gate{allowed: make(map[models.Classification][]models.ResolutionTier, len(table))}
	for class, tiers := range table {
		if !class.IsValid() {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown classification "+class.String())
		}
		seen := make(map[models.ResolutionTier]bool, len(tiers))
		normalized := make([]models.ResolutionTier, 0, len(tiers))
		for _, t := range tiers {
			if !t.IsValid() {
				return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown tier "+t.String())
			}
			if !seen[t] {
				seen[t] = true
				normalized = append(normalized, t)
			}
		}
		sort.Slice(normalized, func(i, j int) bool {
			return normalized[i].Before(normalized[j])
		})
		g.allowed[class] = normalized
	}
	return g, nil
}

// Default returns the standard containment table: each step up in
// sensitivity loses the least trusted remaining tier.
//
//	PUBLIC        → full ladder, quarantine included
//	INTERNAL      → up to FEDERATED_TRUSTED
//	CONFIDENTIAL  → up to ORG_TRUSTED
//	RESTRICTED    → local tiers only
func Default() *Gate {
	g, _ := New(map[models.Classification][]models.ResolutionTier{
		models.ClassificationPublic: models.TierLadder(),
		models.ClassificationInternal: {
			models.TierLocalExact, models.TierLocalCompatible,
			models.TierOrgTrusted, models.TierFederatedTrusted,
		},
		models.ClassificationConfidential: {
			models.TierLocalExact, models.TierLocalCompatible, models.TierOrgTrusted,
		},
		models.ClassificationRestricted: {
			models.TierLocalExact, models.TierLocalCompatible,
		},
	})
	return g
}

// Allowed returns the tiers the classification may reach, in ascending
// ladder order. Unknown classifications get nothing.
func (g *Gate) Allowed(class models.Classification) []models.ResolutionTier {
	tiers := g.allowed[class]
	out := make([]models.ResolutionTier, len(tiers))
	copy(out, tiers)
	return out
}

// Permits reports whether the classification may reach the tier.
func (g *Gate) Permits(class models.Classification, tier models.ResolutionTier) bool {
	for _, t := range g.allowed[class] {
		if t == tier {
			return true
		}
	}
	return false
}
