package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aitho-corso-DMI-agenti-ai/mcp-a2a/internal/domain"
	"github.com/aitho-corso-DMI-agenti-ai/mcp-a2a/internal/usecase"
)

type AuditEventRepository struct {
	db *gorm.DB
}

var (
	_ usecase.AuditEventRepository = (*AuditEventRepository)(nil)
	_ usecase.AuditEventLister     = (*AuditEventRepository)(nil)
)

func NewAuditEventRepository(db *gorm.DB) *AuditEventRepository {
	return &AuditEventRepository{db: db}
}

func (r *AuditEventRepository) Append(ctx context.Context, event domain.AuditEvent) (domain.AuditEvent, error) {
	if r == nil || r.db == nil {
		return domain.AuditEvent{}, errDBUnavailable
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	} else {
		event.CreatedAt = event.CreatedAt.UTC()
	}
	model := AuditEventModel{
		ID:            event.ID,
		EventType:     string(event.EventType),
		Result:        string(event.Result),
		ErrorCode:     event.ErrorCode,
		KID:           event.KID,
		PayloadSHA256: event.PayloadSHA256,
		CallbackURL:   event.CallbackURL,
		RemoteAddr:    event.RemoteAddr,
		CreatedAt:     event.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.AuditEvent{}, err
	}
	return event, nil
}

func (r *AuditEventRepository) ListRecent(ctx context.Context, limit int) ([]domain.AuditEvent, error) {
	if r == nil || r.db == nil {
		return nil, errDBUnavailable
	}
	if limit <= 0 {
		limit = 100
	}
	var models []AuditEventModel
	if err := r.db.WithContext(ctx).Order("created_at desc").Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}
	events := make([]domain.AuditEvent, 0, len(models))
	for _, m := range models {
		events = append(events, domain.AuditEvent{
			ID:            m.ID,
			EventType:     domain.AuditEventType(m.EventType),
			Result:        domain.AuditResult(m.Result),
			ErrorCode:     m.ErrorCode,
			KID:           m.KID,
			PayloadSHA256: m.PayloadSHA256,
			CallbackURL:   m.CallbackURL,
			RemoteAddr:    m.RemoteAddr,
			CreatedAt:     m.CreatedAt,
		})
	}
	return events, nil
}
