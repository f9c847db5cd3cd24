package usecase

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"time"

	"github.com/aitho-corso-DMI-agenti-ai/mcp-a2a/internal/domain"
)

// DefaultFreshnessWindow is the maximum accepted envelope age when no
// window is configured.
const DefaultFreshnessWindow = 5 * time.Minute

// VerifyNotification validates an inbound envelope: key resolution,
// signature, payload digest reconciliation, freshness. All four checks
// run in that order and all four are mandatory; a valid signature alone
// proves neither integrity against the delivered body nor recency.
type VerifyNotification struct {
	Keys            KeyResolver
	Crypto          CryptoService
	FreshnessWindow time.Duration
	Clock           func() time.Time
}

// Execute returns the verified payload, or one of the domain error kinds:
// ErrKeyUnknown, ErrSignatureInvalid, ErrPayloadTampered,
// ErrStaleNotification (plus ErrKeySetFetch when the key set itself is
// unreachable and ErrInvalidEnvelope for malformed input).
func (uc *VerifyNotification) Execute(ctx context.Context, env domain.Envelope) (json.RawMessage, error) {
	if uc == nil || uc.Keys == nil || uc.Crypto == nil {
		return nil, errors.New("key resolver and crypto service required")
	}
	if env.Token == "" || len(env.Payload) == 0 {
		return nil, domain.ErrInvalidEnvelope
	}

	parsed, err := uc.Crypto.ParseToken(env.Token)
	if err != nil {
		return nil, domain.ErrSignatureInvalid
	}

	pub, err := uc.Keys.ResolveKey(ctx, parsed.KID)
	if err != nil {
		if errors.Is(err, domain.ErrKeySetFetch) {
			return nil, err
		}
		return nil, domain.ErrKeyUnknown
	}

	if err := uc.Crypto.VerifySignature(pub, parsed.SigningInput, parsed.Signature); err != nil {
		return nil, domain.ErrSignatureInvalid
	}

	claimed, _ := parsed.Claims[domain.ClaimPayloadSHA256].(string)
	digest, err := uc.Crypto.PayloadDigest(env.Payload)
	if err != nil {
		return nil, domain.ErrInvalidEnvelope
	}
	if claimed == "" || subtle.ConstantTimeCompare([]byte(claimed), []byte(digest)) != 1 {
		return nil, domain.ErrPayloadTampered
	}

	issuedAt, ok := numericDate(parsed.Claims[domain.ClaimIssuedAt])
	if !ok {
		return nil, domain.ErrStaleNotification
	}
	if uc.now().Sub(issuedAt) > uc.window() {
		return nil, domain.ErrStaleNotification
	}

	return env.Payload, nil
}

func (uc *VerifyNotification) window() time.Duration {
	if uc.FreshnessWindow > 0 {
		return uc.FreshnessWindow
	}
	return DefaultFreshnessWindow
}

func (uc *VerifyNotification) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock()
	}
	return time.Now()
}

func numericDate(value any) (time.Time, bool) {
	switch v := value.(type) {
	case float64:
		return time.Unix(int64(v), 0), true
	case int64:
		return time.Unix(v, 0), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return time.Time{}, false
		}
		return time.Unix(n, 0), true
	default:
		return time.Time{}, false
	}
}
