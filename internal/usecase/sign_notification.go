package usecase

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/aitho-corso-DMI-agenti-ai/mcp-a2a/internal/domain"
)

// SignNotification builds signed notification envelopes. Each call binds
// the payload digest and the signing instant into the token, so signing
// the same payload twice yields two distinct, independently verifiable
// envelopes.
type SignNotification struct {
	Signer TokenSigner
	Crypto CryptoService
	Clock  func() time.Time
}

func (uc *SignNotification) Execute(payload any) (domain.Envelope, error) {
	if uc == nil || uc.Signer == nil || uc.Crypto == nil {
		return domain.Envelope{}, errors.New("signer and crypto service required")
	}
	body, err := encodePayload(payload)
	if err != nil {
		return domain.Envelope{}, err
	}
	digest, err := uc.Crypto.PayloadDigest(body)
	if err != nil {
		return domain.Envelope{}, err
	}
	token, err := uc.Signer.Sign(map[string]any{
		domain.ClaimIssuedAt:      uc.now().Unix(),
		domain.ClaimPayloadSHA256: digest,
	})
	if err != nil {
		return domain.Envelope{}, err
	}
	return domain.Envelope{Payload: body, Token: token}, nil
}

func (uc *SignNotification) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock()
	}
	return time.Now()
}

func encodePayload(payload any) (json.RawMessage, error) {
	switch v := payload.(type) {
	case json.RawMessage:
		return v, nil
	case []byte:
		return json.RawMessage(v), nil
	default:
		return json.Marshal(payload)
	}
}
