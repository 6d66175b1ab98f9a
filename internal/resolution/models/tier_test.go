package models

import (
	"testing"

	"github.com/stretchr/testify/suite"

	dErrors "trustgrid/pkg/domain-errors"
)

type TierSuite struct {
	suite.Suite
}

func TestTierSuite(t *testing.T) {
	suite.Run(t, new(TierSuite))
}

// TestLadderOrdering pins the escalation order as a property of the type,
// independent of declaration order.
func (s *TierSuite) TestLadderOrdering() {
	ladder := TierLadder()
	s.Require().Len(ladder, 5)

	s.Equal(TierLocalExact, ladder[0])
	s.Equal(TierQuarantine, ladder[len(ladder)-1])

	for i := 1; i < len(ladder); i++ {
		s.True(ladder[i-1].Before(ladder[i]),
			"%s must escalate before %s", ladder[i-1], ladder[i])
	}
}

func (s *TierSuite) TestRankOfUnknownTierFailsClosed() {
	unknown := ResolutionTier("SOMETHING_NEW")
	s.False(unknown.IsValid())
	for _, t := range TierLadder() {
		s.True(t.Before(unknown), "known tier %s must rank below unknown", t)
	}
}

func (s *TierSuite) TestParse() {
	s.Run("accepts known tiers", func() {
		t, err := ParseResolutionTier("ORG_TRUSTED")
		s.Require().NoError(err)
		s.Equal(TierOrgTrusted, t)
	})

	s.Run("rejects empty", func() {
		_, err := ParseResolutionTier("")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("rejects unknown", func() {
		_, err := ParseResolutionTier("TOTALLY_TRUSTED")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

// TestRequiredProofs verifies local tiers demand nothing while escalated
// tiers each declare a non-empty proof subset.
func (s *TierSuite) TestRequiredProofs() {
	s.Empty(TierLocalExact.RequiredProofs())
	s.Empty(TierLocalCompatible.RequiredProofs())

	s.ElementsMatch(
		[]ProofType{ProofNodeIdentity, ProofOrgMembership},
		TierOrgTrusted.RequiredProofs(),
	)
	s.Contains(TierFederatedTrusted.RequiredProofs(), ProofBusMembership)
	s.Contains(TierQuarantine.RequiredProofs(), ProofPolicyCompliance)
}

func (s *TierSuite) TestRequiredProofsReturnsCopy() {
	first := TierOrgTrusted.RequiredProofs()
	first[0] = ProofPolicyCompliance
	s.Equal(ProofNodeIdentity, TierOrgTrusted.RequiredProofs()[0])
}
