package domain

import "time"

type AuditEventType string

const (
	AuditEventNotificationVerified AuditEventType = "notification_verified"
	AuditEventNotificationRejected AuditEventType = "notification_rejected"
	AuditEventReceiverRegistered   AuditEventType = "receiver_registered"
	AuditEventKeyRotated           AuditEventType = "key_rotated"
)

type AuditResult string

const (
	AuditResultSuccess AuditResult = "success"
	AuditResultFailure AuditResult = "failure"
)

// AuditEvent is the internal record of a notification-path outcome.
// ErrorCode retains the specific rejection kind; it is never echoed to
// the remote sender.
type AuditEvent struct {
	ID            string
	EventType     AuditEventType
	Result        AuditResult
	ErrorCode     string
	KID           string
	PayloadSHA256 string
	CallbackURL   string
	RemoteAddr    string
	CreatedAt     time.Time
}
