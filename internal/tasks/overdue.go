package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"go.uber.org/zap"

	"github.com/mrlokans/library/internal/notifications"
)

const QueueSendOverdueReminders = "send_overdue_reminders"

// ReminderRunner runs one overdue reminder batch.
type ReminderRunner interface {
	Run(ctx context.Context) (notifications.BatchResult, error)
}

// SendOverdueRemindersTask runs a reminder batch outside the request path.
// It is not retried: per-lending failures are picked up by the next run anyway.
type SendOverdueRemindersTask struct{}

func (t SendOverdueRemindersTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        QueueSendOverdueReminders,
		MaxAttempts: 1,
		Timeout:     30 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   7 * 24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// SendOverdueRemindersProcessor creates a processor function for SendOverdueRemindersTask.
func SendOverdueRemindersProcessor(runner ReminderRunner, logger *zap.Logger) backlite.QueueProcessor[SendOverdueRemindersTask] {
	return func(ctx context.Context, _ SendOverdueRemindersTask) error {
		if runner == nil {
			return fmt.Errorf("reminder dispatcher not configured")
		}

		result, err := runner.Run(ctx)
		if err != nil {
			return fmt.Errorf("send overdue reminders: %w", err)
		}

		logger.Info("overdue reminders task finished",
			zap.Int("scanned", result.Scanned),
			zap.Int("sent", result.Sent),
			zap.Int("skipped", result.Skipped),
			zap.Int("failed", result.Failed))
		return nil
	}
}

// NewSendOverdueRemindersQueue creates a backlite queue for reminder batches.
func NewSendOverdueRemindersQueue(runner ReminderRunner, logger *zap.Logger) backlite.Queue {
	return backlite.NewQueue(SendOverdueRemindersProcessor(runner, nopIfNil(logger)))
}
