package crypto

import (
	"crypto/sha256"
	"encoding/hex"
)

// PayloadDigest returns the lowercase hex sha256 of the canonical JSON
// form of payload. Semantically identical payloads digest identically
// regardless of field order in the input representation.
func PayloadDigest(payload any) (string, error) {
	canonical, err := Canonicalize(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
