// Package trust holds the capability-token model and the verifier that gates
// tier escalation. Tokens are issued elsewhere; this package only reads and
// verifies them, and any ambiguity verifies as invalid.
package trust

import (
	"bytes"
	"crypto/ed25519"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// CapabilityToken is a signed, time-bounded credential asserting a node's
// identity and capabilities. Validity is re-checked against "now" on every
// use; it is never cached as permanently valid.
type CapabilityToken struct {
	TokenID       string            `json:"token_id"`
	SubjectNodeID string            `json:"subject_node_id"`
	IssuerDomain  string            `json:"issuer_domain"`
	Capabilities  []string          `json:"capabilities"`
	IssuedAt      time.Time         `json:"issued_at"`
	ExpiresAt     time.Time         `json:"expires_at"`
	PublicKey     ed25519.PublicKey `json:"issuer_public_key"`
	Signature     []byte            `json:"signature"`

	// signingInput overrides the canonical serialization when the token was
	// decoded from an external wire form (see jwtcodec.go), where the
	// signature covers the original encoded bytes.
	signingInput []byte
}

// CanonicalBytes is the deterministic serialization the signature covers:
// every field length-prefixed, capabilities sorted and counted, timestamps
// as unix seconds. Length prefixes make the encoding injective — no field
// content can shift a boundary or merge two capabilities into one, so two
// distinct tokens never share signing bytes.
func (t *CapabilityToken) CanonicalBytes() []byte {
	caps := make([]string, len(t.Capabilities))
	copy(caps, t.Capabilities)
	sort.Strings(caps)

	var b bytes.Buffer
	b.WriteString("capability-token/v1\n")
	writeField(&b, t.TokenID)
	writeField(&b, t.SubjectNodeID)
	writeField(&b, t.IssuerDomain)
	writeField(&b, strconv.Itoa(len(caps)))
	for _, c := range caps {
		writeField(&b, c)
	}
	writeField(&b, strconv.FormatInt(t.IssuedAt.Unix(), 10))
	writeField(&b, strconv.FormatInt(t.ExpiresAt.Unix(), 10))
	return b.Bytes()
}

func writeField(b *bytes.Buffer, f string) {
	b.WriteString(strconv.Itoa(len(f)))
	b.WriteByte(':')
	b.WriteString(f)
}

// SigningInput returns the bytes the signature must verify against.
func (t *CapabilityToken) SigningInput() []byte {
	if len(t.signingInput) > 0 {
		return t.signingInput
	}
	return t.CanonicalBytes()
}

// HasCapability reports whether the token asserts the capability.
func (t *CapabilityToken) HasCapability(capability string) bool {
	for _, c := range t.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

// CoversAll reports whether the token's capability set is a superset of the
// claimed capabilities.
func (t *CapabilityToken) CoversAll(claimed []string) bool {
	for _, c := range claimed {
		if !t.HasCapability(c) {
			return false
		}
	}
	return true
}

// wellFormed checks structural invariants before any cryptography runs.
func (t *CapabilityToken) wellFormed() error {
	switch {
	case t == nil:
		return fmt.Errorf("token is nil")
	case t.TokenID == "":
		return fmt.Errorf("token_id is required")
	case t.SubjectNodeID == "":
		return fmt.Errorf("subject_node_id is required")
	case t.IssuerDomain == "":
		return fmt.Errorf("issuer_domain is required")
	case t.IssuedAt.IsZero() || t.ExpiresAt.IsZero():
		return fmt.Errorf("issued_at and expires_at are required")
	case !t.ExpiresAt.After(t.IssuedAt):
		return fmt.Errorf("expires_at must be after issued_at")
	case len(t.PublicKey) != ed25519.PublicKeySize:
		return fmt.Errorf("issuer public key has wrong size")
	case len(t.Signature) == 0:
		return fmt.Errorf("signature is required")
	}
	return nil
}

// SignToken signs the token's canonical serialization and stamps the public
// key. Used by test fixtures and out-of-band issuance tooling; the resolver
// itself never signs.
func SignToken(t *CapabilityToken, priv ed25519.PrivateKey) {
	t.PublicKey = priv.Public().(ed25519.PublicKey)
	t.signingInput = nil
	t.Signature = ed25519.Sign(priv, t.CanonicalBytes())
}
