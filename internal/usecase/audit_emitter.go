package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/aitho-corso-DMI-agenti-ai/mcp-a2a/internal/domain"
)

// AuditEmitter records notification-path outcomes. The rejection records
// keep the specific verification error kind; the HTTP layer deliberately
// does not.
type AuditEmitter struct {
	Repo  AuditEventRepository
	Clock func() time.Time
}

func NewAuditEmitter(repo AuditEventRepository, clock func() time.Time) *AuditEmitter {
	return &AuditEmitter{Repo: repo, Clock: clock}
}

func (e *AuditEmitter) Emit(ctx context.Context, event domain.AuditEvent) (domain.AuditEvent, error) {
	if e == nil || e.Repo == nil {
		return domain.AuditEvent{}, errors.New("audit repository required")
	}
	if event.EventType == "" || event.Result == "" {
		return domain.AuditEvent{}, errors.New("audit event missing required fields")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = e.now().UTC()
	} else {
		event.CreatedAt = event.CreatedAt.UTC()
	}
	return e.Repo.Append(ctx, event)
}

func (e *AuditEmitter) EmitNotificationVerified(ctx context.Context, kid, payloadSHA256, remoteAddr string) error {
	_, err := e.Emit(ctx, domain.AuditEvent{
		EventType:     domain.AuditEventNotificationVerified,
		Result:        domain.AuditResultSuccess,
		KID:           kid,
		PayloadSHA256: payloadSHA256,
		RemoteAddr:    remoteAddr,
	})
	return err
}

func (e *AuditEmitter) EmitNotificationRejected(ctx context.Context, kid, remoteAddr string, cause error) error {
	_, err := e.Emit(ctx, domain.AuditEvent{
		EventType:  domain.AuditEventNotificationRejected,
		Result:     domain.AuditResultFailure,
		ErrorCode:  RejectionCode(cause),
		KID:        kid,
		RemoteAddr: remoteAddr,
	})
	return err
}

func (e *AuditEmitter) EmitReceiverRegistered(ctx context.Context, callbackURL string, result domain.AuditResult, errorCode string) error {
	_, err := e.Emit(ctx, domain.AuditEvent{
		EventType:   domain.AuditEventReceiverRegistered,
		Result:      result,
		ErrorCode:   errorCode,
		CallbackURL: callbackURL,
	})
	return err
}

func (e *AuditEmitter) EmitKeyRotated(ctx context.Context, newKID string) error {
	_, err := e.Emit(ctx, domain.AuditEvent{
		EventType: domain.AuditEventKeyRotated,
		Result:    domain.AuditResultSuccess,
		KID:       newKID,
	})
	return err
}

func (e *AuditEmitter) now() time.Time {
	if e.Clock != nil {
		return e.Clock()
	}
	return time.Now()
}

// RejectionCode maps a verification failure to a stable audit code so the
// record distinguishes tampering from mere replay.
func RejectionCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrKeyUnknown):
		return "KEY_UNKNOWN"
	case errors.Is(err, domain.ErrSignatureInvalid):
		return "SIGNATURE_INVALID"
	case errors.Is(err, domain.ErrPayloadTampered):
		return "PAYLOAD_TAMPERED"
	case errors.Is(err, domain.ErrStaleNotification):
		return "STALE"
	case errors.Is(err, domain.ErrKeySetFetch):
		return "KEYSET_FETCH"
	case errors.Is(err, domain.ErrInvalidEnvelope):
		return "INVALID_ENVELOPE"
	default:
		return "INTERNAL"
	}
}
