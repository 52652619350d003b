// Package notifications stores reminder delivery attempts.
package notifications

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

// Record saves a delivery attempt.
func (r *Repository) Record(ctx context.Context, record *entities.NotificationRecord) error {
	if record.SentDate.IsZero() {
		record.SentDate = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(record).Error
}

// LastSent returns the most recent successful reminder of the given type for
// a lending, or nil if none was ever sent.
func (r *Repository) LastSent(ctx context.Context, lendingID uint, kind entities.NotificationType) (*entities.NotificationRecord, error) {
	var records []entities.NotificationRecord
	err := r.db.WithContext(ctx).
		Where("lending_id = ? AND type = ? AND status = ?", lendingID, kind, entities.NotificationStatusSent).
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	// Compared in Go: SQLite stores times as text and mixed offsets would not
	// order correctly.
	var latest *entities.NotificationRecord
	for i := range records {
		if latest == nil || records[i].SentDate.After(latest.SentDate) {
			latest = &records[i]
		}
	}
	return latest, nil
}

// Recent returns the newest records first.
func (r *Repository) Recent(ctx context.Context, limit int) ([]entities.NotificationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	records := []entities.NotificationRecord{}
	err := r.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&records).Error
	return records, err
}

// DeleteOlderThan removes records sent before the cutoff.
// Returns the number of deleted records.
func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("sent_date < ?", cutoff.UTC()).Delete(&entities.NotificationRecord{})
	return result.RowsAffected, result.Error
}
