package audit

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/entities"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Query filters an audit listing. Zero fields are ignored.
type Query struct {
	UserID    uint
	EventType entities.AuditEventType
	Since     time.Time
	Limit     int
	Offset    int
}

// LogEvent saves an audit event to the database.
func (r *Repository) LogEvent(ctx context.Context, event *entities.AuditEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(event).Error
}

// GetEvents retrieves paginated audit events, ordered by most recent first,
// together with the total number of matches.
func (r *Repository) GetEvents(ctx context.Context, q Query) ([]entities.AuditEvent, int64, error) {
	events := []entities.AuditEvent{}
	var total int64

	query := r.db.WithContext(ctx).Model(&entities.AuditEvent{})
	if q.UserID > 0 {
		query = query.Where("user_id = ?", q.UserID)
	}
	if q.EventType != "" {
		query = query.Where("event_type = ?", q.EventType)
	}
	if !q.Since.IsZero() {
		query = query.Where("created_at > ?", q.Since.UTC())
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	err := query.Order("id DESC").Limit(limit).Offset(offset).Find(&events).Error
	return events, total, err
}

// DeleteOldEvents removes audit events older than the specified time.
// Returns the number of deleted events.
func (r *Repository) DeleteOldEvents(ctx context.Context, olderThan time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("created_at < ?", olderThan.UTC()).Delete(&entities.AuditEvent{})
	return result.RowsAffected, result.Error
}
