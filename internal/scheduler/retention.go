package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/mikestefanello/backlite"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mrlokans/library/internal/tasks"
)

// Enqueuer hands tasks to the background queue.
type Enqueuer interface {
	Enqueue(tasks ...backlite.Task) ([]string, error)
}

// RetentionScheduler periodically enqueues cleanup tasks for notification
// records and audit events. The deletes run on the task workers.
type RetentionScheduler struct {
	queue                     Enqueuer
	schedule                  string
	notificationRetentionDays int
	auditRetentionDays        int
	logger                    *zap.Logger

	cron       *cron.Cron
	mu         sync.Mutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

func NewRetentionScheduler(queue Enqueuer, schedule string, notificationRetentionDays, auditRetentionDays int, logger *zap.Logger) *RetentionScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetentionScheduler{
		queue:                     queue,
		schedule:                  schedule,
		notificationRetentionDays: notificationRetentionDays,
		auditRetentionDays:        auditRetentionDays,
		logger:                    logger.Named("scheduler.retention"),
	}
}

func (s *RetentionScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	c := newCron()
	if _, err := c.AddFunc(s.schedule, func() {
		if _, err := s.EnqueueCleanup(); err != nil {
			s.logger.Error("failed to enqueue cleanup tasks", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.schedule, err)
	}

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)
	s.cron = c
	s.cron.Start()
	s.isRunning = true

	s.logger.Info("retention scheduler started",
		zap.String("schedule", s.schedule),
		zap.String("description", DescribeSchedule(s.schedule)))

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

func (s *RetentionScheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	cancel := s.cancelFunc
	s.cancelFunc = nil
	c := s.cron
	s.mu.Unlock()

	cancel()
	<-c.Stop().Done()
	s.logger.Info("retention scheduler stopped")
}

func (s *RetentionScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// EnqueueCleanup adds one cleanup task per retained table and returns the task IDs.
func (s *RetentionScheduler) EnqueueCleanup() ([]string, error) {
	ids, err := s.queue.Enqueue(
		tasks.CleanupNotificationsTask{RetentionDays: s.notificationRetentionDays},
		tasks.CleanupAuditEventsTask{RetentionDays: s.auditRetentionDays},
	)
	if err != nil {
		return nil, err
	}
	s.logger.Info("cleanup tasks enqueued", zap.Strings("task_ids", ids))
	return ids, nil
}
