package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mrlokans/library/internal/notifications"
)

// DefaultRunTimeout bounds a single scheduled reminder batch.
const DefaultRunTimeout = 10 * time.Minute

// ReminderRunner runs one overdue reminder batch.
type ReminderRunner interface {
	Run(ctx context.Context) (notifications.BatchResult, error)
}

// Status is a point-in-time view of the scheduler for the admin API.
type Status struct {
	Running     bool                       `json:"running"`
	Paused      bool                       `json:"paused"`
	Schedule    string                     `json:"schedule"`
	Description string                     `json:"description"`
	NextRun     *time.Time                 `json:"nextRun,omitempty"`
	LastRun     *time.Time                 `json:"lastRun,omitempty"`
	LastResult  *notifications.BatchResult `json:"lastResult,omitempty"`
	LastError   string                     `json:"lastError,omitempty"`
}

// OverdueReminderScheduler periodically rescans the ledger and dispatches
// reminders. A paused scheduler keeps its cron entry but skips ticks.
type OverdueReminderScheduler struct {
	runner     ReminderRunner
	schedule   string
	runTimeout time.Duration
	logger     *zap.Logger

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc

	paused atomic.Bool

	lastMu     sync.RWMutex
	lastRun    *time.Time
	lastResult *notifications.BatchResult
	lastError  string
}

// NewOverdueReminderScheduler creates a scheduler for the given cron expression.
func NewOverdueReminderScheduler(runner ReminderRunner, schedule string, logger *zap.Logger) *OverdueReminderScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OverdueReminderScheduler{
		runner:     runner,
		schedule:   schedule,
		runTimeout: DefaultRunTimeout,
		logger:     logger.Named("scheduler.overdue"),
	}
}

// Start registers the cron job and starts ticking. It stops when ctx is done.
func (s *OverdueReminderScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if err := ValidateSchedule(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.schedule, err)
	}

	c := newCron()
	entryID, err := c.AddFunc(s.schedule, s.tick)
	if err != nil {
		return fmt.Errorf("failed to schedule overdue reminders: %w", err)
	}

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron = c
	s.entryID = entryID
	s.cron.Start()
	s.isRunning = true

	s.logger.Info("overdue reminder scheduler started",
		zap.String("schedule", s.schedule),
		zap.String("description", DescribeSchedule(s.schedule)),
		zap.Time("next_run", s.cron.Entry(entryID).Next))

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop stops ticking and waits for a running batch to finish.
func (s *OverdueReminderScheduler) Stop() {
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

	s.logger.Info("overdue reminder scheduler stopped")
}

// Pause makes scheduled ticks no-ops until Resume. RunNow still works.
func (s *OverdueReminderScheduler) Pause() {
	if !s.paused.Swap(true) {
		s.logger.Info("overdue reminder scheduler paused")
	}
}

func (s *OverdueReminderScheduler) Resume() {
	if s.paused.Swap(false) {
		s.logger.Info("overdue reminder scheduler resumed")
	}
}

// RunNow runs one batch synchronously, regardless of the paused state.
func (s *OverdueReminderScheduler) RunNow(ctx context.Context) (notifications.BatchResult, error) {
	result, err := s.runner.Run(ctx)
	s.record(result, err)
	return result, err
}

func (s *OverdueReminderScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

func (s *OverdueReminderScheduler) IsPaused() bool {
	return s.paused.Load()
}

// NextRunTime returns when the next tick fires, or nil when stopped.
func (s *OverdueReminderScheduler) NextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	entry := s.cron.Entry(s.entryID)
	if !entry.Valid() {
		return nil
	}
	next := entry.Next
	return &next
}

// Status reports the scheduler state and the outcome of the last batch.
func (s *OverdueReminderScheduler) Status() Status {
	status := Status{
		Running:     s.IsRunning(),
		Paused:      s.IsPaused(),
		Schedule:    s.schedule,
		Description: DescribeSchedule(s.schedule),
		NextRun:     s.NextRunTime(),
	}

	s.lastMu.RLock()
	defer s.lastMu.RUnlock()
	status.LastRun = s.lastRun
	status.LastResult = s.lastResult
	status.LastError = s.lastError
	return status
}

func (s *OverdueReminderScheduler) tick() {
	if s.IsPaused() {
		s.logger.Debug("overdue reminder tick skipped (paused)")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
	defer cancel()

	result, err := s.RunNow(ctx)
	if err != nil {
		s.logger.Error("scheduled overdue reminder run failed", zap.Error(err))
	}
	if result.Failed > 0 {
		s.logger.Warn("some overdue reminders failed", zap.Int("failed", result.Failed))
	}
}

func (s *OverdueReminderScheduler) record(result notifications.BatchResult, err error) {
	now := time.Now().UTC()

	s.lastMu.Lock()
	defer s.lastMu.Unlock()
	s.lastRun = &now
	if err != nil {
		s.lastResult = nil
		s.lastError = err.Error()
		return
	}
	s.lastResult = &result
	s.lastError = ""
}
