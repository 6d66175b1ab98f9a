package trust

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"trustgrid/internal/resolution/models"
)

type stubChecker struct {
	verified bool
	notes    string
	err      error
	waitCtx  bool
}

func (c *stubChecker) Check(ctx context.Context, _ *CapabilityToken, _ ProofContext) (bool, string, error) {
	if c.waitCtx {
		<-ctx.Done()
		return false, "", ctx.Err()
	}
	return c.verified, c.notes, c.err
}

type VerifierSuite struct {
	suite.Suite
	priv  ed25519.PrivateKey
	token *CapabilityToken
}

func TestVerifierSuite(t *testing.T) {
	suite.Run(t, new(VerifierSuite))
}

func (s *VerifierSuite) SetupTest() {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	s.Require().NoError(err)
	s.priv = priv

	s.token = &CapabilityToken{
		TokenID:       "tok-1",
		SubjectNodeID: "node-a",
		IssuerDomain:  "org.example",
		Capabilities:  []string{"db.postgres", "db.ha"},
		IssuedAt:      time.Now().Add(-time.Hour),
		ExpiresAt:     time.Now().Add(time.Hour),
	}
	SignToken(s.token, priv)
}

func (s *VerifierSuite) TestNodeIdentityProof() {
	v := NewVerifier()

	s.Run("matching subject verifies", func() {
		proof := v.VerifyProof(context.Background(), models.ProofNodeIdentity, s.token,
			ProofContext{SubjectNodeID: "node-a"})
		s.True(proof.Verified)
		s.Equal(models.ProofNodeIdentity, proof.ProofType)
	})

	s.Run("mismatched subject fails", func() {
		proof := v.VerifyProof(context.Background(), models.ProofNodeIdentity, s.token,
			ProofContext{SubjectNodeID: "node-b"})
		s.False(proof.Verified)
		s.NotEmpty(proof.Notes)
	})

	s.Run("empty expected subject fails closed", func() {
		proof := v.VerifyProof(context.Background(), models.ProofNodeIdentity, s.token, ProofContext{})
		s.False(proof.Verified)
	})
}

func (s *VerifierSuite) TestCapabilityAttestedProof() {
	v := NewVerifier()

	proof := v.VerifyProof(context.Background(), models.ProofCapabilityAttested, s.token,
		ProofContext{ClaimedCapabilities: []string{"db.postgres"}})
	s.True(proof.Verified)

	proof = v.VerifyProof(context.Background(), models.ProofCapabilityAttested, s.token,
		ProofContext{ClaimedCapabilities: []string{"db.postgres", "cache.redis"}})
	s.False(proof.Verified, "token must cover every claimed capability")
}

func (s *VerifierSuite) TestOrgMembershipProof() {
	v := NewVerifier()

	proof := v.VerifyProof(context.Background(), models.ProofOrgMembership, s.token,
		ProofContext{RequiredOrg: "org.example"})
	s.True(proof.Verified)

	proof = v.VerifyProof(context.Background(), models.ProofOrgMembership, s.token,
		ProofContext{RequiredOrg: "org.other"})
	s.False(proof.Verified)

	proof = v.VerifyProof(context.Background(), models.ProofOrgMembership, s.token, ProofContext{})
	s.False(proof.Verified, "no required org means no pass")
}

func (s *VerifierSuite) TestExternalProofs() {
	s.Run("unconfigured checker fails closed", func() {
		v := NewVerifier()
		proof := v.VerifyProof(context.Background(), models.ProofBusMembership, s.token, ProofContext{Bus: "events"})
		s.False(proof.Verified)
		s.Contains(proof.Notes, "no external checker")
	})

	s.Run("checker pass is recorded", func() {
		v := NewVerifier(WithExternalChecker(models.ProofBusMembership,
			&stubChecker{verified: true, notes: "member of events bus"}))
		proof := v.VerifyProof(context.Background(), models.ProofBusMembership, s.token, ProofContext{Bus: "events"})
		s.True(proof.Verified)
	})

	s.Run("checker error fails closed", func() {
		v := NewVerifier(WithExternalChecker(models.ProofPolicyCompliance,
			&stubChecker{err: errors.New("attestation service unreachable")}))
		proof := v.VerifyProof(context.Background(), models.ProofPolicyCompliance, s.token, ProofContext{})
		s.False(proof.Verified)
		s.Contains(proof.Notes, "external check failed")
	})

	s.Run("deadline expiry fails closed", func() {
		v := NewVerifier(WithExternalChecker(models.ProofPolicyCompliance, &stubChecker{waitCtx: true}))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		proof := v.VerifyProof(ctx, models.ProofPolicyCompliance, s.token, ProofContext{})
		s.False(proof.Verified)
	})
}

func (s *VerifierSuite) TestUnknownProofTypeFailsClosed() {
	v := NewVerifier()
	proof := v.VerifyProof(context.Background(), models.ProofType("VIBES"), s.token, ProofContext{})
	s.False(proof.Verified)
}
