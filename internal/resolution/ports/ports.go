// Package ports defines the interfaces the tiered resolver consumes.
// Implementations are injected at wiring time; the resolver holds no
// process-wide state.
package ports

import (
	"context"
	"time"

	"trustgrid/internal/resolution/models"
	"trustgrid/internal/trust"
	"trustgrid/pkg/platform/audit"
)

// TokenSource yields the capability token presented for a provider when an
// escalated tier demands proofs. A missing token drops the candidate.
type TokenSource interface {
	TokenFor(ctx context.Context, providerID string) (*trust.CapabilityToken, error)
}

// TokenVerifier validates tokens and produces resolution proofs. The
// concrete implementation is trust.Verifier; the interface keeps the
// resolver testable without key material.
type TokenVerifier interface {
	VerifyToken(token *trust.CapabilityToken, now time.Time) error
	VerifyProof(ctx context.Context, pt models.ProofType, token *trust.CapabilityToken, pctx trust.ProofContext) models.ResolutionProof
}

// AuditPublisher receives each completed resolution result. Implementations
// must not block the resolver.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Clock supplies "now" so token windows and attempt timestamps are
// reproducible under test.
type Clock func() time.Time
