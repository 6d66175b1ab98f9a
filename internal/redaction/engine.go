package redaction

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// maskMarker is the fixed replacement for masked values.
const maskMarker = "[REDACTED]"

// hashPrefix marks a value as already digested so re-application is a no-op.
const hashPrefix = "sha256:"

// Apply returns a redacted copy of data. The input map is never mutated.
// Application is idempotent: masked values stay the marker, hashed values
// keep their digest, removed fields stay removed.
func Apply(data map[string]string, policy Policy) map[string]string {
	if len(data) == 0 {
		return nil
	}

	out := make(map[string]string, len(data))
	for field, value := range data {
		strategy, matched := policy.match(field)
		if !matched {
			out[field] = value
			continue
		}
		switch strategy {
		case StrategyMask:
			out[field] = maskMarker
		case StrategyHash:
			out[field] = hashValue(value)
		case StrategyRemove:
			// dropped
		}
	}
	return out
}

func hashValue(value string) string {
	if value == maskMarker || strings.HasPrefix(value, hashPrefix) {
		return value
	}
	sum := sha256.Sum256([]byte(value))
	return hashPrefix + hex.EncodeToString(sum[:])
}
