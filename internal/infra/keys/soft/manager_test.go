package soft

import (
	"crypto/rsa"
	"encoding/base64"
	"math/big"
	"testing"

	"github.com/aitho-corso-DMI-agenti-ai/mcp-a2a/internal/domain"
	cryptoinfra "github.com/aitho-corso-DMI-agenti-ai/mcp-a2a/internal/infra/crypto"
)

const testKeyBits = 1024

func publicKeyFromJWK(t *testing.T, jwk domain.JWK) *rsa.PublicKey {
	t.Helper()
	nBytes, err := base64.RawURLEncoding.DecodeString(jwk.N)
	if err != nil {
		t.Fatalf("decode n: %v", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(jwk.E)
	if err != nil {
		t.Fatalf("decode e: %v", err)
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(new(big.Int).SetBytes(eBytes).Int64()),
	}
}

func TestManager_SignVerifiesAgainstPublishedKey(t *testing.T) {
	m, err := NewManager(testKeyBits)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	token, err := m.Sign(map[string]any{"iat": int64(1700000000)})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	parsed, err := cryptoinfra.ParseCompact(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.KID != m.ActiveKID() {
		t.Fatalf("token kid %q does not match active kid %q", parsed.KID, m.ActiveKID())
	}

	keySet := m.KeySet()
	if len(keySet.Keys) != 1 {
		t.Fatalf("expected 1 published key, got %d", len(keySet.Keys))
	}
	jwk := keySet.Keys[0]
	if jwk.Kty != "RSA" || jwk.Alg != domain.TokenAlg || jwk.Use != "sig" {
		t.Fatalf("unexpected jwk metadata: %+v", jwk)
	}
	pub := publicKeyFromJWK(t, jwk)
	if err := cryptoinfra.VerifyRS256(pub, parsed.SigningInput, parsed.Signature); err != nil {
		t.Fatalf("verify with published key: %v", err)
	}
}

func TestManager_RotateKeepsOldKeyPublished(t *testing.T) {
	m, err := NewManager(testKeyBits)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	oldKID := m.ActiveKID()

	oldToken, err := m.Sign(map[string]any{"iat": int64(1)})
	if err != nil {
		t.Fatalf("sign before rotation: %v", err)
	}

	newKID, err := m.Rotate()
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if newKID == oldKID {
		t.Fatal("rotation did not change the active kid")
	}
	if m.ActiveKID() != newKID {
		t.Fatalf("active kid %q, want %q", m.ActiveKID(), newKID)
	}

	keySet := m.KeySet()
	if len(keySet.Keys) != 2 {
		t.Fatalf("expected 2 published keys after rotation, got %d", len(keySet.Keys))
	}
	if keySet.Keys[0].Kid != newKID {
		t.Fatalf("active key should be published first, got %q", keySet.Keys[0].Kid)
	}

	// tokens signed before rotation still verify with the retired key
	var retired *domain.JWK
	for i := range keySet.Keys {
		if keySet.Keys[i].Kid == oldKID {
			retired = &keySet.Keys[i]
		}
	}
	if retired == nil {
		t.Fatal("retired key missing from key set")
	}
	parsed, err := cryptoinfra.ParseCompact(oldToken)
	if err != nil {
		t.Fatalf("parse old token: %v", err)
	}
	if err := cryptoinfra.VerifyRS256(publicKeyFromJWK(t, *retired), parsed.SigningInput, parsed.Signature); err != nil {
		t.Fatalf("verify old token with retired key: %v", err)
	}
}

func TestManager_DistinctKIDs(t *testing.T) {
	a, err := NewManager(testKeyBits)
	if err != nil {
		t.Fatalf("new manager a: %v", err)
	}
	b, err := NewManager(testKeyBits)
	if err != nil {
		t.Fatalf("new manager b: %v", err)
	}
	if a.ActiveKID() == b.ActiveKID() {
		t.Fatal("two managers produced the same kid")
	}
}
