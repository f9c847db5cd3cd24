package auditmem

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/aitho-corso-DMI-agenti-ai/mcp-a2a/internal/domain"
	"github.com/aitho-corso-DMI-agenti-ai/mcp-a2a/internal/usecase"
)

const defaultMaxEvents = 10000

// Repository keeps audit events in memory, bounded to the most recent
// maxEvents. Used when no database is configured.
type Repository struct {
	mu        sync.Mutex
	events    []domain.AuditEvent
	maxEvents int
}

func New() *Repository {
	return &Repository{maxEvents: defaultMaxEvents}
}

func (r *Repository) Append(_ context.Context, event domain.AuditEvent) (domain.AuditEvent, error) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	if len(r.events) > r.maxEvents {
		r.events = r.events[len(r.events)-r.maxEvents:]
	}
	return event, nil
}

func (r *Repository) List() []domain.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.AuditEvent, len(r.events))
	copy(out, r.events)
	return out
}

// ListRecent returns up to limit events, newest first.
func (r *Repository) ListRecent(_ context.Context, limit int) ([]domain.AuditEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.events)
	if limit > n {
		limit = n
	}
	out := make([]domain.AuditEvent, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, r.events[i])
	}
	return out, nil
}

var (
	_ usecase.AuditEventRepository = (*Repository)(nil)
	_ usecase.AuditEventLister     = (*Repository)(nil)
)
