// Package resolver implements flat capability matching over one candidate
// set: filter by hard constraints, score soft preferences, select per
// policy. The tiered service invokes it once per tier.
package resolver

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"trustgrid/internal/resolution/models"
)

// healthyBonus is the profile-level weight a fully healthy provider earns on
// top of matched preferences. Degraded providers stay selectable but score
// lower, so preferences being equal the healthy candidate wins.
const healthyBonus = 1.0

// maxBatchConcurrency bounds parallel requirement resolution in ResolveAll.
const maxBatchConcurrency = 8

// Outcome is the result of resolving one requirement set against one
// candidate pool. Exactly one of Binding or FailureCode is meaningful.
type Outcome struct {
	Binding     *models.Binding
	FailureCode models.FailureCode
	Reason      string
}

// OK reports whether a binding was produced.
func (o Outcome) OK() bool {
	return o.Binding != nil
}

func failure(code models.FailureCode, reason string) Outcome {
	return Outcome{FailureCode: code, Reason: reason}
}

type scored struct {
	provider models.ProviderDescriptor
	score    float64
}

// Resolve matches one requirement set against the candidates.
//
// Failure is data, not error: NO_CANDIDATES when filtering leaves nothing,
// AMBIGUOUS_SELECTION when the policy cannot pick a single winner.
func Resolve(rs models.RequirementSet, candidates []models.ProviderDescriptor) Outcome {
	survivors := filter(rs, candidates)
	if len(survivors) == 0 {
		return failure(models.FailureNoCandidates,
			fmt.Sprintf("no candidate satisfies %d required capabilities", len(rs.Must)))
	}

	ranked := rank(rs, survivors)

	switch rs.Policy {
	case models.SelectAutoIfUnique:
		return selectAutoIfUnique(rs, ranked)
	case models.SelectBestScore:
		return bind(rs, ranked[0])
	case models.SelectRequireExplicit:
		return selectExplicit(rs, ranked)
	default:
		// NewRequirementSet rejects unknown policies; wire-decoded requests
		// can still carry one, so fail closed rather than guess.
		return failure(models.FailureAmbiguousSelection,
			"unknown selection policy "+rs.Policy.String())
	}
}

// ResolveAll resolves a batch of requirement sets against one candidate
// pool. One requirement's failure never aborts the others; outcomes are
// returned in input order.
func ResolveAll(ctx context.Context, requirements []models.RequirementSet, candidates []models.ProviderDescriptor) []Outcome {
	outcomes := make([]Outcome, len(requirements))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(maxBatchConcurrency)
	for i, rs := range requirements {
		g.Go(func() error {
			outcomes[i] = Resolve(rs, candidates)
			return nil
		})
	}
	// Workers never return errors; failures land in their outcome slot.
	_ = g.Wait()

	return outcomes
}

// filter keeps candidates whose capability set is a superset of must and
// disjoint from forbid.
func filter(rs models.RequirementSet, candidates []models.ProviderDescriptor) []models.ProviderDescriptor {
	var out []models.ProviderDescriptor
	for _, c := range candidates {
		if !satisfiesMust(rs, c) || violatesForbid(rs, c) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func satisfiesMust(rs models.RequirementSet, c models.ProviderDescriptor) bool {
	for _, cap := range rs.Must {
		if !c.HasCapability(cap) {
			return false
		}
	}
	return true
}

func violatesForbid(rs models.RequirementSet, c models.ProviderDescriptor) bool {
	for _, cap := range rs.Forbid {
		if c.HasCapability(cap) {
			return true
		}
	}
	return false
}

// rank scores every survivor and sorts by (score desc, provider_id asc).
// The provider_id tiebreak is mandatory for determinism.
func rank(rs models.RequirementSet, survivors []models.ProviderDescriptor) []scored {
	ranked := make([]scored, 0, len(survivors))
	for _, c := range survivors {
		ranked = append(ranked, scored{provider: c, score: score(rs, c)})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].provider.ProviderID < ranked[j].provider.ProviderID
	})
	return ranked
}

func score(rs models.RequirementSet, c models.ProviderDescriptor) float64 {
	var total float64
	for _, pref := range rs.Prefer {
		if pref.Capability != "" && c.HasCapability(pref.Capability) {
			total += pref.Weight
		}
		if pref.Tag != "" && c.HasTag(pref.Tag) {
			total += pref.Weight
		}
	}
	if c.Health == models.HealthHealthy {
		total += healthyBonus
	}
	return total
}

func selectAutoIfUnique(rs models.RequirementSet, ranked []scored) Outcome {
	// A sole survivor is selected unconditionally; its score is irrelevant.
	if len(ranked) == 1 {
		return bind(rs, ranked[0])
	}
	// An exact provider name disambiguates a crowded pool.
	if rs.ExplicitProvider != "" {
		for _, r := range ranked {
			if r.provider.ProviderID == rs.ExplicitProvider {
				return bind(rs, r)
			}
		}
	}
	// Otherwise demand an unambiguous score winner.
	if ranked[0].score > ranked[1].score {
		return bind(rs, ranked[0])
	}
	return failure(models.FailureAmbiguousSelection,
		fmt.Sprintf("%d candidates tie at score %.2f", countAtTop(ranked), ranked[0].score))
}

func selectExplicit(rs models.RequirementSet, ranked []scored) Outcome {
	if rs.ExplicitProvider == "" {
		return failure(models.FailureAmbiguousSelection,
			"selection policy requires an explicit provider_id")
	}
	for _, r := range ranked {
		if r.provider.ProviderID == rs.ExplicitProvider {
			return bind(rs, r)
		}
	}
	return failure(models.FailureNoCandidates,
		fmt.Sprintf("named provider %q is not among matching candidates", rs.ExplicitProvider))
}

func countAtTop(ranked []scored) int {
	n := 1
	for n < len(ranked) && ranked[n].score == ranked[0].score {
		n++
	}
	return n
}

func bind(rs models.RequirementSet, winner scored) Outcome {
	return Outcome{Binding: &models.Binding{
		Requirement: rs,
		Provider:    winner.provider,
		Score:       winner.score,
	}}
}
