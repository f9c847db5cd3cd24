package usecase

import (
	"context"
	"crypto/rsa"
	"encoding/json"

	"github.com/aitho-corso-DMI-agenti-ai/mcp-a2a/internal/domain"
	cryptoinfra "github.com/aitho-corso-DMI-agenti-ai/mcp-a2a/internal/infra/crypto"
)

// CryptoService covers the canonical hashing and token primitives the
// notification usecases need.
type CryptoService interface {
	PayloadDigest(payload any) (string, error)
	ParseToken(token string) (*cryptoinfra.ParsedToken, error)
	VerifySignature(pub *rsa.PublicKey, signingInput string, sig []byte) error
}

// TokenSigner issues a signed compact token over claims with the current
// signing key, tagging it with that key's kid.
type TokenSigner interface {
	Sign(claims map[string]any) (string, error)
}

// KeyResolver resolves a verification key by kid.
type KeyResolver interface {
	ResolveKey(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

// PayloadSink consumes verified payloads. It is invoked exactly once per
// successfully verified envelope and never for rejected ones.
type PayloadSink interface {
	HandleVerifiedPayload(ctx context.Context, payload json.RawMessage)
}

// AuditEventRepository appends notification-path audit records.
type AuditEventRepository interface {
	Append(ctx context.Context, event domain.AuditEvent) (domain.AuditEvent, error)
}

// AuditEventLister reads back recent audit records, newest first, for
// diagnosis of rejected notifications.
type AuditEventLister interface {
	ListRecent(ctx context.Context, limit int) ([]domain.AuditEvent, error)
}
