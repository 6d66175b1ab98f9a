package service_test

import (
	"context"
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"trustgrid/internal/registry"
	"trustgrid/internal/resolution/gate"
	"trustgrid/internal/resolution/models"
	"trustgrid/internal/resolution/resolver"
	"trustgrid/internal/resolution/service"
	"trustgrid/internal/trust"
	dErrors "trustgrid/pkg/domain-errors"
	"trustgrid/pkg/platform/audit"
	"trustgrid/pkg/platform/audit/publisher"
)

const (
	testOrg = "acme.example"
	testBus = "mesh-prod"
)

var fixedNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

// okChecker approves every external proof.
type okChecker struct{}

func (okChecker) Check(context.Context, *trust.CapabilityToken, trust.ProofContext) (bool, string, error) {
	return true, "attested", nil
}

type ServiceSuite struct {
	suite.Suite
	priv ed25519.PrivateKey
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupSuite() {
	_, priv, err := ed25519.GenerateKey(nil)
	s.Require().NoError(err)
	s.priv = priv
}

func (s *ServiceSuite) provider(id string, tier models.ResolutionTier, caps ...string) models.ProviderDescriptor {
	return models.ProviderDescriptor{
		ProviderID:   id,
		TrustDomain:  testOrg,
		Tier:         tier,
		Capabilities: caps,
		AdapterRef:   "adapter://" + id,
		Health:       models.HealthHealthy,
	}
}

func (s *ServiceSuite) token(providerID string, caps ...string) *trust.CapabilityToken {
	t := &trust.CapabilityToken{
		TokenID:       "tok-" + providerID,
		SubjectNodeID: providerID,
		IssuerDomain:  testOrg,
		Capabilities:  caps,
		IssuedAt:      fixedNow.Add(-time.Hour),
		ExpiresAt:     fixedNow.Add(time.Hour),
	}
	trust.SignToken(t, s.priv)
	return t
}

type fixture struct {
	svc    *service.Service
	reg    *registry.InMemoryRegistry
	tokens *trust.InMemoryTokenSource
	sink   *publisher.Memory
}

func (s *ServiceSuite) newFixture(providers []models.ProviderDescriptor, opts ...service.Option) *fixture {
	reg := registry.NewInMemoryRegistry()
	s.Require().NoError(reg.Replace(context.Background(), providers))

	tokens := trust.NewInMemoryTokenSource()
	verifier := trust.NewVerifier(
		trust.WithExternalChecker(models.ProofBusMembership, okChecker{}),
		trust.WithExternalChecker(models.ProofPolicyCompliance, okChecker{}),
	)
	sink := publisher.NewMemory()

	base := []service.Option{
		service.WithClock(func() time.Time { return fixedNow }),
		service.WithOrganization(testOrg),
		service.WithBus(testBus),
		service.WithAudit(sink),
	}
	svc, err := service.New(reg, tokens, verifier, gate.Default(), append(base, opts...)...)
	s.Require().NoError(err)

	return &fixture{svc: svc, reg: reg, tokens: tokens, sink: sink}
}

func (s *ServiceSuite) requirement(must ...string) models.RequirementSet {
	rs, err := models.NewRequirementSet("dep", must, nil, nil, models.SelectBestScore)
	s.Require().NoError(err)
	return rs
}

func (s *ServiceSuite) TestLocalHitStopsEscalation() {
	f := s.newFixture([]models.ProviderDescriptor{
		s.provider("local-a", models.TierLocalExact, "vector-index"),
		s.provider("org-a", models.TierOrgTrusted, "vector-index"),
	})

	result, err := f.svc.Resolve(context.Background(), s.requirement("vector-index"), models.ClassificationInternal)
	s.Require().NoError(err)

	s.True(result.Success)
	s.Require().NotNil(result.Plan)
	s.Equal("local-a", result.Plan.Hop.Provider.ProviderID)
	s.Equal(models.TierLocalExact, result.Plan.Hop.Tier)
	s.Empty(result.Plan.Hop.RedactionPolicy, "local hops cross no boundary")
	s.False(result.Plan.Hop.Isolated)

	s.Require().Len(result.Attempts, 1)
	s.True(result.Attempts[0].Success)
	s.Empty(result.Attempts[0].Proofs, "local tiers demand no proofs")
}

func (s *ServiceSuite) TestEscalatesToOrgTierWithProofsAndRedaction() {
	org := s.provider("org-a", models.TierOrgTrusted, "vector-index")
	org.Attributes = map[string]string{
		"api_token":   "s3cret-value",
		"owner_team":  "platform",
		"description": "shared index",
	}
	f := s.newFixture([]models.ProviderDescriptor{org})
	f.tokens.Put("org-a", s.token("org-a", "vector-index"))

	result, err := f.svc.Resolve(context.Background(), s.requirement("vector-index"), models.ClassificationInternal)
	s.Require().NoError(err)

	s.True(result.Success)
	s.Require().NotNil(result.Plan)
	s.Equal(models.TierOrgTrusted, result.Plan.Hop.Tier)
	s.Equal("boundary-standard", result.Plan.Hop.RedactionPolicy)

	attrs := result.Plan.Hop.Provider.Attributes
	s.Equal("[REDACTED]", attrs["api_token"])
	s.Contains(attrs["owner_team"], "sha256:")
	s.Equal("shared index", attrs["description"])

	// Two empty local rungs, then the org tier.
	s.Require().Len(result.Attempts, 3)
	s.Equal(models.FailureNoProviders, result.Attempts[0].FailureCode)
	s.Equal(models.FailureNoProviders, result.Attempts[1].FailureCode)
	s.True(result.Attempts[2].Success)
	s.Len(result.Attempts[2].Proofs, 2, "NODE_IDENTITY and ORG_MEMBERSHIP")
	for _, p := range result.Attempts[2].Proofs {
		s.True(p.Verified)
	}
}

func (s *ServiceSuite) TestExpiredTokenFailsClosed() {
	f := s.newFixture([]models.ProviderDescriptor{
		s.provider("org-a", models.TierOrgTrusted, "vector-index"),
	})
	stale := &trust.CapabilityToken{
		TokenID:       "tok-org-a",
		SubjectNodeID: "org-a",
		IssuerDomain:  testOrg,
		Capabilities:  []string{"vector-index"},
		IssuedAt:      fixedNow.Add(-2 * time.Hour),
		ExpiresAt:     fixedNow.Add(-time.Hour),
	}
	trust.SignToken(stale, s.priv)
	f.tokens.Put("org-a", stale)

	result, err := f.svc.Resolve(context.Background(), s.requirement("vector-index"), models.ClassificationConfidential)
	s.Require().NoError(err)

	s.False(result.Success)
	s.Equal(models.FailureTierExhausted, result.FailureCode)

	orgAttempt := result.Attempts[2]
	s.Equal(models.TierOrgTrusted, orgAttempt.Tier)
	s.Equal(models.FailureTokenExpired, orgAttempt.FailureCode)
	s.Zero(orgAttempt.CandidateCount)
}

func (s *ServiceSuite) TestOneBadTokenDoesNotEjectThePool() {
	f := s.newFixture([]models.ProviderDescriptor{
		s.provider("org-bad", models.TierOrgTrusted, "vector-index"),
		s.provider("org-good", models.TierOrgTrusted, "vector-index"),
	})
	// org-bad presents nothing; org-good presents a valid token.
	f.tokens.Put("org-good", s.token("org-good", "vector-index"))

	result, err := f.svc.Resolve(context.Background(), s.requirement("vector-index"), models.ClassificationInternal)
	s.Require().NoError(err)

	s.True(result.Success)
	s.Equal("org-good", result.Plan.Hop.Provider.ProviderID)
	s.Equal(1, result.Attempts[2].CandidateCount)
}

func (s *ServiceSuite) TestClassificationCeilingIsHard() {
	f := s.newFixture([]models.ProviderDescriptor{
		s.provider("org-a", models.TierOrgTrusted, "vector-index"),
	})
	f.tokens.Put("org-a", s.token("org-a", "vector-index"))

	result, err := f.svc.Resolve(context.Background(), s.requirement("vector-index"), models.ClassificationRestricted)
	s.Require().NoError(err)

	s.False(result.Success)
	s.Equal(models.FailureTierExhausted, result.FailureCode)
	s.Require().Len(result.Attempts, 2, "restricted data never leaves the local tiers")
	for _, attempt := range result.Attempts {
		s.True(attempt.Tier.Before(models.TierOrgTrusted))
	}
}

func (s *ServiceSuite) TestQuarantineMatchIsIsolatedAndAudited() {
	q := s.provider("quarantine-a", models.TierQuarantine, "vector-index")
	q.Attributes = map[string]string{"access_token": "q-token-value"}
	f := s.newFixture([]models.ProviderDescriptor{q})
	f.tokens.Put("quarantine-a", s.token("quarantine-a", "vector-index"))

	result, err := f.svc.Resolve(context.Background(), s.requirement("vector-index"), models.ClassificationPublic)
	s.Require().NoError(err)

	s.True(result.Success)
	s.True(result.Plan.Hop.Isolated)
	s.Equal(models.TierQuarantine, result.Plan.Hop.Tier)
	s.Equal("[REDACTED]", result.Plan.Hop.Provider.Attributes["access_token"])

	events := f.sink.Events()
	s.Require().Len(events, 1)
	s.Equal(audit.ActionQuarantineMatch, events[0].Action)
	s.Equal(audit.CategorySecurity, events[0].Category)
}

func (s *ServiceSuite) TestDeterministicResults() {
	providers := []models.ProviderDescriptor{
		s.provider("org-b", models.TierOrgTrusted, "vector-index"),
		s.provider("org-a", models.TierOrgTrusted, "vector-index"),
	}
	f := s.newFixture(providers)
	f.tokens.Put("org-a", s.token("org-a", "vector-index"))
	f.tokens.Put("org-b", s.token("org-b", "vector-index"))

	first, err := f.svc.Resolve(context.Background(), s.requirement("vector-index"), models.ClassificationInternal)
	s.Require().NoError(err)
	second, err := f.svc.Resolve(context.Background(), s.requirement("vector-index"), models.ClassificationInternal)
	s.Require().NoError(err)

	s.Equal(first, second, "identical request and snapshot must yield an identical result")
	s.Equal("org-a", first.Plan.Hop.Provider.ProviderID, "score tie breaks on provider ID")
}

// TestTieredChoiceMatchesFlatResolution pins that when a single tier holds
// all candidates, the escalation loop adds nothing: the tiered winner and
// score equal a direct flat resolution over that tier's pool.
func (s *ServiceSuite) TestTieredChoiceMatchesFlatResolution() {
	fast := s.provider("local-fast", models.TierLocalExact, "vector-index")
	fast.Tags = []string{"ssd"}
	slow := s.provider("local-slow", models.TierLocalExact, "vector-index")
	f := s.newFixture([]models.ProviderDescriptor{fast, slow})

	rs, err := models.NewRequirementSet("dep", []string{"vector-index"}, nil,
		[]models.Preference{{Tag: "ssd", Weight: 2.0}}, models.SelectBestScore)
	s.Require().NoError(err)

	result, err := f.svc.Resolve(context.Background(), rs, models.ClassificationInternal)
	s.Require().NoError(err)
	s.Require().True(result.Success)

	snapshot, err := f.reg.Snapshot(context.Background())
	s.Require().NoError(err)
	flat := resolver.Resolve(rs, snapshot.ProvidersForTier(models.TierLocalExact, false))
	s.Require().True(flat.OK())

	s.Equal(flat.Binding.Provider.ProviderID, result.Plan.Hop.Provider.ProviderID)
	s.Equal(flat.Binding.Score, result.Plan.Score)
	s.Equal("local-fast", result.Plan.Hop.Provider.ProviderID)
}

func (s *ServiceSuite) TestExpiredDeadlineYieldsTimeout() {
	f := s.newFixture([]models.ProviderDescriptor{
		s.provider("local-a", models.TierLocalExact, "vector-index"),
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := f.svc.Resolve(ctx, s.requirement("vector-index"), models.ClassificationInternal)
	s.Require().NoError(err)

	s.False(result.Success)
	s.Equal(models.FailureTimeout, result.FailureCode)
	s.Empty(result.Attempts)
}

func (s *ServiceSuite) TestMalformedRequirementIsAnError() {
	f := s.newFixture(nil)

	bad := models.RequirementSet{
		Name:   "conflicted",
		Must:   []string{"vector-index"},
		Forbid: []string{"vector-index"},
		Policy: models.SelectBestScore,
	}
	_, err := f.svc.Resolve(context.Background(), bad, models.ClassificationInternal)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func (s *ServiceSuite) TestEmptyGateFailsClosed() {
	sealed, err := gate.New(map[models.Classification][]models.ResolutionTier{
		models.ClassificationRestricted: {},
	})
	s.Require().NoError(err)

	reg := registry.NewInMemoryRegistry()
	svc, err := service.New(reg, trust.NewInMemoryTokenSource(), trust.NewVerifier(), sealed,
		service.WithClock(func() time.Time { return fixedNow }))
	s.Require().NoError(err)

	result, err := svc.Resolve(context.Background(), s.requirement("vector-index"), models.ClassificationRestricted)
	s.Require().NoError(err)
	s.False(result.Success)
	s.Equal(models.FailureClassificationViolation, result.FailureCode)
	s.Empty(result.Attempts)
}

func (s *ServiceSuite) TestResolveAllKeepsOrderAndIsolatesFailures() {
	f := s.newFixture([]models.ProviderDescriptor{
		s.provider("local-a", models.TierLocalExact, "vector-index"),
	})

	good := s.requirement("vector-index")
	missing := s.requirement("graph-store")
	malformed := models.RequirementSet{
		Name:   "conflicted",
		Must:   []string{"x"},
		Forbid: []string{"x"},
		Policy: models.SelectBestScore,
	}

	results, err := f.svc.ResolveAll(context.Background(),
		[]models.RequirementSet{good, missing, malformed}, models.ClassificationRestricted)
	s.Require().NoError(err)
	s.Require().Len(results, 3)

	s.True(results[0].Success)
	s.Equal("local-a", results[0].Plan.Hop.Provider.ProviderID)

	s.False(results[1].Success)
	s.Equal(models.FailureTierExhausted, results[1].FailureCode)

	s.False(results[2].Success)
	s.Equal(models.FailureConstraintConflict, results[2].FailureCode)
}

func (s *ServiceSuite) TestFederatedTierRequiresBusMembership() {
	fed := s.provider("fed-a", models.TierFederatedTrusted, "vector-index")
	fed.TrustDomain = "partner.example"
	f := s.newFixture([]models.ProviderDescriptor{fed})

	tok := &trust.CapabilityToken{
		TokenID:       "tok-fed-a",
		SubjectNodeID: "fed-a",
		IssuerDomain:  "partner.example",
		Capabilities:  []string{"vector-index"},
		IssuedAt:      fixedNow.Add(-time.Hour),
		ExpiresAt:     fixedNow.Add(time.Hour),
	}
	trust.SignToken(tok, s.priv)
	f.tokens.Put("fed-a", tok)

	result, err := f.svc.Resolve(context.Background(), s.requirement("vector-index"), models.ClassificationInternal)
	s.Require().NoError(err)

	s.True(result.Success)
	s.Equal(models.TierFederatedTrusted, result.Plan.Hop.Tier)

	final := result.Attempts[len(result.Attempts)-1]
	s.Len(final.Proofs, 3, "NODE_IDENTITY, CAPABILITY_ATTESTED, BUS_MEMBERSHIP")
}

func (s *ServiceSuite) TestAuditEmittedOnFailure() {
	f := s.newFixture(nil)

	result, err := f.svc.Resolve(context.Background(), s.requirement("vector-index"), models.ClassificationInternal)
	s.Require().NoError(err)
	s.False(result.Success)

	events := f.sink.Events()
	s.Require().Len(events, 1)
	s.Equal(audit.ActionResolutionFailed, events[0].Action)
	s.Require().NotNil(events[0].Result)
	s.Equal(models.FailureTierExhausted, events[0].Result.FailureCode)
}
