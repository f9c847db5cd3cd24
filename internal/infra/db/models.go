package db

import "time"

type AuditEventModel struct {
	ID            string    `gorm:"type:uuid;primaryKey"`
	EventType     string    `gorm:"index;not null"`
	Result        string    `gorm:"not null"`
	ErrorCode     string    `gorm:"index"`
	KID           string    `gorm:"index"`
	PayloadSHA256 string
	CallbackURL   string
	RemoteAddr    string
	CreatedAt     time.Time `gorm:"index;not null"`
}

func (AuditEventModel) TableName() string {
	return "notification_audit_events"
}
