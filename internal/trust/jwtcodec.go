package trust

import (
	"crypto/ed25519"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	dErrors "trustgrid/pkg/domain-errors"
)

// capabilityClaims is the JWT claim layout issuers use on the wire.
type capabilityClaims struct {
	Capabilities []string `json:"capabilities"`
	jwt.RegisteredClaims
}

// DecodeJWT converts an externally issued EdDSA JWT into a CapabilityToken.
// The JWT signature becomes the token signature and the JWT signing string
// becomes the signing input, so VerifyToken re-verifies the exact bytes the
// issuer signed. Claim time validation is deliberately left to VerifyToken,
// which checks against an injected clock.
func DecodeJWT(raw string, issuerKey ed25519.PublicKey) (*CapabilityToken, error) {
	if len(issuerKey) != ed25519.PublicKeySize {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "issuer public key has wrong size")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	claims := &capabilityClaims{}
	parsed, err := parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return issuerKey, nil
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "capability token JWT rejected")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "capability token JWT invalid")
	}
	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "capability token JWT missing time bounds")
	}

	// header.payload is what EdDSA signed; keep it so signature re-checks
	// stay byte-exact.
	dot := strings.LastIndexByte(raw, '.')
	if dot < 0 {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "malformed JWT")
	}

	token := &CapabilityToken{
		TokenID:       claims.ID,
		SubjectNodeID: claims.Subject,
		IssuerDomain:  claims.Issuer,
		Capabilities:  append([]string(nil), claims.Capabilities...),
		IssuedAt:      claims.IssuedAt.Time,
		ExpiresAt:     claims.ExpiresAt.Time,
		PublicKey:     issuerKey,
		Signature:     parsed.Signature,
		signingInput:  []byte(raw[:dot]),
	}
	if err := token.wellFormed(); err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, fmt.Sprintf("capability token JWT incomplete: %v", err))
	}
	return token, nil
}

// EncodeJWT produces the wire form DecodeJWT accepts. Test fixtures and
// issuance tooling use it; the resolver only decodes.
func EncodeJWT(token *CapabilityToken, priv ed25519.PrivateKey) (string, error) {
	claims := capabilityClaims{
		Capabilities: token.Capabilities,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        token.TokenID,
			Subject:   token.SubjectNodeID,
			Issuer:    token.IssuerDomain,
			IssuedAt:  jwt.NewNumericDate(token.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(token.ExpiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(priv)
	if err != nil {
		return "", fmt.Errorf("sign capability JWT: %w", err)
	}
	return signed, nil
}
