package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"go.uber.org/zap"
)

const (
	QueueCleanupNotifications = "cleanup_notifications"
	QueueCleanupAuditEvents   = "cleanup_audit_events"

	DefaultNotificationRetentionDays = 180
	DefaultAuditRetentionDays        = 30
)

// NotificationCleaner deletes reminder records sent before a cutoff.
type NotificationCleaner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// AuditEventCleaner provides the ability to delete old audit events.
type AuditEventCleaner interface {
	DeleteOldEvents(ctx context.Context, retention time.Duration) (int64, error)
}

func cleanupQueueConfig(name string) backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        name,
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

func retentionFor(days, fallback int) time.Duration {
	if days <= 0 {
		days = fallback
	}
	return time.Duration(days) * 24 * time.Hour
}

// CleanupNotificationsTask removes notification records older than the
// retention period. Records inside the cooldown window are never removed:
// the dispatcher reads them to decide whether a reminder is due.
type CleanupNotificationsTask struct {
	RetentionDays int `json:"retention_days"`
}

func (t CleanupNotificationsTask) Config() backlite.QueueConfig {
	return cleanupQueueConfig(QueueCleanupNotifications)
}

// CleanupNotificationsProcessor creates a processor function for
// CleanupNotificationsTask. The effective retention is at least cooldown.
func CleanupNotificationsProcessor(cleaner NotificationCleaner, cooldown time.Duration, logger *zap.Logger) backlite.QueueProcessor[CleanupNotificationsTask] {
	return func(ctx context.Context, task CleanupNotificationsTask) error {
		if cleaner == nil {
			return fmt.Errorf("notification cleaner not configured")
		}

		retention := retentionFor(task.RetentionDays, DefaultNotificationRetentionDays)
		if retention < cooldown {
			logger.Warn("notification retention shorter than cooldown, keeping cooldown window",
				zap.Duration("requested", retention),
				zap.Duration("cooldown", cooldown))
			retention = cooldown
		}
		deleted, err := cleaner.DeleteOlderThan(ctx, time.Now().UTC().Add(-retention))
		if err != nil {
			return fmt.Errorf("cleanup notification records: %w", err)
		}

		logger.Info("cleaned up notification records",
			zap.Int64("deleted", deleted),
			zap.Duration("retention", retention))
		return nil
	}
}

// NewCleanupNotificationsQueue creates a backlite queue for notification cleanup tasks.
func NewCleanupNotificationsQueue(cleaner NotificationCleaner, cooldown time.Duration, logger *zap.Logger) backlite.Queue {
	return backlite.NewQueue(CleanupNotificationsProcessor(cleaner, cooldown, nopIfNil(logger)))
}

// CleanupAuditEventsTask removes audit events older than the configured retention period.
type CleanupAuditEventsTask struct {
	RetentionDays int `json:"retention_days"`
}

func (t CleanupAuditEventsTask) Config() backlite.QueueConfig {
	return cleanupQueueConfig(QueueCleanupAuditEvents)
}

// CleanupAuditEventsProcessor creates a processor function for CleanupAuditEventsTask.
func CleanupAuditEventsProcessor(cleaner AuditEventCleaner, logger *zap.Logger) backlite.QueueProcessor[CleanupAuditEventsTask] {
	return func(ctx context.Context, task CleanupAuditEventsTask) error {
		if cleaner == nil {
			return fmt.Errorf("audit event cleaner not configured")
		}

		retention := retentionFor(task.RetentionDays, DefaultAuditRetentionDays)
		deleted, err := cleaner.DeleteOldEvents(ctx, retention)
		if err != nil {
			return fmt.Errorf("cleanup audit events: %w", err)
		}

		logger.Info("cleaned up audit events",
			zap.Int64("deleted", deleted),
			zap.Duration("retention", retention))
		return nil
	}
}

// NewCleanupAuditEventsQueue creates a backlite queue for audit cleanup tasks.
func NewCleanupAuditEventsQueue(cleaner AuditEventCleaner, logger *zap.Logger) backlite.Queue {
	return backlite.NewQueue(CleanupAuditEventsProcessor(cleaner, nopIfNil(logger)))
}

func nopIfNil(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger.Named("tasks")
}
