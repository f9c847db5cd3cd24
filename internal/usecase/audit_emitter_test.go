package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aitho-corso-DMI-agenti-ai/mcp-a2a/internal/domain"
)

type recordingAuditRepo struct {
	events []domain.AuditEvent
	err    error
}

func (r *recordingAuditRepo) Append(_ context.Context, event domain.AuditEvent) (domain.AuditEvent, error) {
	if r.err != nil {
		return domain.AuditEvent{}, r.err
	}
	r.events = append(r.events, event)
	return event, nil
}

func TestAuditEmitter_RejectionRetainsErrorCode(t *testing.T) {
	repo := &recordingAuditRepo{}
	now := time.Unix(1700000000, 0)
	emitter := NewAuditEmitter(repo, func() time.Time { return now })

	if err := emitter.EmitNotificationRejected(context.Background(), "key-1", "10.0.0.1", domain.ErrPayloadTampered); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(repo.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(repo.events))
	}
	ev := repo.events[0]
	if ev.EventType != domain.AuditEventNotificationRejected {
		t.Fatalf("event type %q", ev.EventType)
	}
	if ev.ErrorCode != "PAYLOAD_TAMPERED" {
		t.Fatalf("error code %q, want PAYLOAD_TAMPERED", ev.ErrorCode)
	}
	if !ev.CreatedAt.Equal(now.UTC()) {
		t.Fatalf("created at %v, want %v", ev.CreatedAt, now.UTC())
	}
}

func TestAuditEmitter_RequiresEventType(t *testing.T) {
	emitter := NewAuditEmitter(&recordingAuditRepo{}, nil)
	if _, err := emitter.Emit(context.Background(), domain.AuditEvent{Result: domain.AuditResultSuccess}); err == nil {
		t.Fatal("expected error for missing event type")
	}
}

func TestRejectionCode(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{domain.ErrKeyUnknown, "KEY_UNKNOWN"},
		{domain.ErrSignatureInvalid, "SIGNATURE_INVALID"},
		{domain.ErrPayloadTampered, "PAYLOAD_TAMPERED"},
		{domain.ErrStaleNotification, "STALE"},
		{domain.ErrKeySetFetch, "KEYSET_FETCH"},
		{domain.ErrInvalidEnvelope, "INVALID_ENVELOPE"},
		{errors.New("boom"), "INTERNAL"},
	}
	for _, tc := range cases {
		if got := RejectionCode(tc.err); got != tc.want {
			t.Fatalf("RejectionCode(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
