package crypto

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aitho-corso-DMI-agenti-ai/mcp-a2a/internal/domain"
)

// ParsedToken is the decoded form of a compact JWS, kept alongside the
// raw signing input so the signature can still be checked.
type ParsedToken struct {
	KID          string
	Claims       map[string]any
	SigningInput string
	Signature    []byte
}

// SignRS256 builds a compact RS256 JWS over claims, tagged with kid.
func SignRS256(key *rsa.PrivateKey, kid string, claims map[string]any) (string, error) {
	if key == nil {
		return "", errors.New("private key is required")
	}
	header := map[string]string{"alg": domain.TokenAlg, "typ": "JWT", "kid": kid}
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return "", err
	}
	claimsJSON, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	signingInput := base64.RawURLEncoding.EncodeToString(headerJSON) + "." + base64.RawURLEncoding.EncodeToString(claimsJSON)
	digest := sha256.Sum256([]byte(signingInput))
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	if err != nil {
		return "", err
	}
	return signingInput + "." + base64.RawURLEncoding.EncodeToString(sig), nil
}

// ParseCompact splits and decodes a compact JWS without verifying it.
// It rejects tokens whose alg header is not RS256.
func ParseCompact(token string) (*ParsedToken, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, errors.New("invalid token format")
	}
	headerBytes, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, err
	}
	claimsBytes, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, err
	}
	signature, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, err
	}
	var header map[string]any
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return nil, err
	}
	if alg, _ := header["alg"].(string); alg != domain.TokenAlg {
		return nil, fmt.Errorf("unsupported token algorithm %q", header["alg"])
	}
	var claims map[string]any
	if err := json.Unmarshal(claimsBytes, &claims); err != nil {
		return nil, err
	}
	kid, _ := header["kid"].(string)
	return &ParsedToken{
		KID:          kid,
		Claims:       claims,
		SigningInput: parts[0] + "." + parts[1],
		Signature:    signature,
	}, nil
}

// VerifyRS256 checks sig over signingInput with the given public key.
func VerifyRS256(pub *rsa.PublicKey, signingInput string, sig []byte) error {
	if pub == nil {
		return errors.New("public key is required")
	}
	digest := sha256.Sum256([]byte(signingInput))
	return rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig)
}
