package trust

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"log/slog"
	"time"

	"trustgrid/internal/resolution/models"
	"trustgrid/pkg/platform/sentinel"
)

// ProofContext carries the per-request facts a proof check needs beyond the
// token itself.
type ProofContext struct {
	// RequiredOrg is the organization an ORG_MEMBERSHIP proof must match.
	RequiredOrg string
	// ClaimedCapabilities is what the candidate is being selected for; a
	// CAPABILITY_ATTESTED proof requires the token to cover all of them.
	ClaimedCapabilities []string
	// SubjectNodeID is the candidate the token must be bound to.
	SubjectNodeID string
	// Bus names the event bus a BUS_MEMBERSHIP proof is checked against.
	Bus string
}

// ExternalChecker verifies a proof that requires an external attestation
// service. Implementations must honor ctx cancellation; the verifier treats
// any error, including deadline expiry, as a failed proof.
type ExternalChecker interface {
	Check(ctx context.Context, token *CapabilityToken, pctx ProofContext) (bool, string, error)
}

// Verifier validates capability tokens and produces resolution proofs.
// All checks fail closed: missing fields, expired validity windows, bad
// signatures, and unreachable external checkers all verify as invalid.
type Verifier struct {
	external map[models.ProofType]ExternalChecker
	logger   *slog.Logger
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithExternalChecker registers the checker consulted for a delegated proof
// type (BUS_MEMBERSHIP, POLICY_COMPLIANCE).
func WithExternalChecker(pt models.ProofType, c ExternalChecker) VerifierOption {
	return func(v *Verifier) {
		v.external[pt] = c
	}
}

// WithVerifierLogger sets the structured logger.
func WithVerifierLogger(logger *slog.Logger) VerifierOption {
	return func(v *Verifier) {
		v.logger = logger
	}
}

// NewVerifier constructs a Verifier.
func NewVerifier(opts ...VerifierOption) *Verifier {
	v := &Verifier{
		external: make(map[models.ProofType]ExternalChecker),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// VerifyToken checks structural validity, the time window against now, and
// the signature over the token's signing input.
//
// Errors: sentinel.ErrExpired when now is at or past expires_at; any other
// failure wraps sentinel.ErrInvalidState. A nil return means valid.
func (v *Verifier) VerifyToken(token *CapabilityToken, now time.Time) error {
	if err := token.wellFormed(); err != nil {
		return fmt.Errorf("%w: %v", sentinel.ErrInvalidState, err)
	}
	// Expiry is checked before the signature so an expired token never
	// reads as a signature problem in attempt records.
	if !now.Before(token.ExpiresAt) {
		return sentinel.ErrExpired
	}
	if now.Before(token.IssuedAt) {
		return fmt.Errorf("%w: token not yet valid", sentinel.ErrInvalidState)
	}
	if !ed25519.Verify(token.PublicKey, token.SigningInput(), token.Signature) {
		return fmt.Errorf("%w: signature does not verify", sentinel.ErrInvalidState)
	}
	return nil
}

// VerifyProof checks one proof type against a token and context and returns
// a fresh ResolutionProof. It never returns an error: failure is data.
func (v *Verifier) VerifyProof(ctx context.Context, pt models.ProofType, token *CapabilityToken, pctx ProofContext) models.ResolutionProof {
	proof := models.ResolutionProof{ProofType: pt}

	switch pt {
	case models.ProofNodeIdentity:
		if token.SubjectNodeID == pctx.SubjectNodeID && pctx.SubjectNodeID != "" {
			proof.Verified = true
			proof.Notes = "token bound to subject node"
		} else {
			proof.Notes = fmt.Sprintf("token subject %q does not match candidate %q",
				token.SubjectNodeID, pctx.SubjectNodeID)
		}

	case models.ProofCapabilityAttested:
		if token.CoversAll(pctx.ClaimedCapabilities) {
			proof.Verified = true
			proof.Notes = "token attests all claimed capabilities"
		} else {
			proof.Notes = "token capability set does not cover claim"
		}

	case models.ProofOrgMembership:
		if pctx.RequiredOrg != "" && token.IssuerDomain == pctx.RequiredOrg {
			proof.Verified = true
			proof.Notes = "issuer domain matches required organization"
		} else {
			proof.Notes = fmt.Sprintf("issuer domain %q is not the required organization",
				token.IssuerDomain)
		}

	case models.ProofBusMembership, models.ProofPolicyCompliance:
		proof = v.verifyExternal(ctx, pt, token, pctx)

	default:
		proof.Notes = "unknown proof type"
	}

	return proof
}

func (v *Verifier) verifyExternal(ctx context.Context, pt models.ProofType, token *CapabilityToken, pctx ProofContext) models.ResolutionProof {
	proof := models.ResolutionProof{ProofType: pt}

	checker, ok := v.external[pt]
	if !ok {
		proof.Notes = "no external checker configured"
		return proof
	}

	verified, notes, err := checker.Check(ctx, token, pctx)
	if err != nil {
		// Timeouts and transport failures are failures, never passes.
		proof.Notes = "external check failed: " + err.Error()
		if v.logger != nil {
			v.logger.WarnContext(ctx, "external proof check failed",
				"proof_type", pt.String(), "token_id", token.TokenID, "error", err)
		}
		return proof
	}
	proof.Verified = verified
	proof.Notes = notes
	return proof
}
