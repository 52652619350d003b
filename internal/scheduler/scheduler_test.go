package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mrlokans/library/internal/notifications"
	"github.com/mrlokans/library/internal/tasks"
)

type countingRunner struct {
	mu     sync.Mutex
	calls  int
	result notifications.BatchResult
	err    error
}

func (r *countingRunner) Run(ctx context.Context) (notifications.BatchResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.result, r.err
}

func (r *countingRunner) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestValidateSchedule(t *testing.T) {
	tests := []struct {
		schedule string
		wantErr  bool
	}{
		{"0 * * * *", false},
		{"*/15 * * * *", false},
		{"@hourly", false},
		{"30 3 * * *", false},
		{"", true},
		{"invalid", true},
		{"0 0 0 * * *", true},
		{"60 * * * *", true},
	}

	for _, tt := range tests {
		t.Run(tt.schedule, func(t *testing.T) {
			err := ValidateSchedule(tt.schedule)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDescribeSchedule(t *testing.T) {
	assert.Equal(t, "Every hour at :00", DescribeSchedule("0 * * * *"))
	assert.Equal(t, "Daily at 03:30", DescribeSchedule("30 3 * * *"))
	assert.Equal(t, "Custom schedule: 5 4 * * 1", DescribeSchedule("5 4 * * 1"))
}

func TestNextRun(t *testing.T) {
	from := time.Date(2024, 3, 1, 10, 15, 0, 0, time.UTC)

	next, err := NextRun("0 * * * *", from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC), next)

	_, err = NextRun("bogus", from)
	assert.Error(t, err)
}

func TestOverdueReminderScheduler_StartStop(t *testing.T) {
	s := NewOverdueReminderScheduler(&countingRunner{}, "0 * * * *", zap.NewNop())

	assert.False(t, s.IsRunning())
	assert.Nil(t, s.NextRunTime())

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	require.NoError(t, s.Start(context.Background()), "second start is a no-op")

	next := s.NextRunTime()
	require.NotNil(t, next)
	assert.True(t, next.After(time.Now()))
	assert.Equal(t, 0, next.Minute())

	s.Stop()
	assert.False(t, s.IsRunning())
	assert.Nil(t, s.NextRunTime())

	s.Stop()

	require.NoError(t, s.Start(context.Background()), "can restart after stop")
	assert.True(t, s.IsRunning())
	s.Stop()
}

func TestOverdueReminderScheduler_InvalidSchedule(t *testing.T) {
	s := NewOverdueReminderScheduler(&countingRunner{}, "not a schedule", zap.NewNop())

	err := s.Start(context.Background())
	assert.ErrorContains(t, err, "invalid cron schedule")
	assert.False(t, s.IsRunning())
}

func TestOverdueReminderScheduler_StopsWithContext(t *testing.T) {
	s := NewOverdueReminderScheduler(&countingRunner{}, "@hourly", zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	cancel()

	assert.Eventually(t, func() bool { return !s.IsRunning() }, 2*time.Second, 10*time.Millisecond)
}

func TestOverdueReminderScheduler_PauseSkipsTicks(t *testing.T) {
	runner := &countingRunner{}
	s := NewOverdueReminderScheduler(runner, "0 * * * *", zap.NewNop())

	s.Pause()
	assert.True(t, s.IsPaused())
	s.tick()
	assert.Equal(t, 0, runner.Calls())

	_, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, runner.Calls(), "manual runs ignore pause")

	s.Resume()
	assert.False(t, s.IsPaused())
	s.tick()
	assert.Equal(t, 2, runner.Calls())
}

func TestOverdueReminderScheduler_StatusTracksLastRun(t *testing.T) {
	runner := &countingRunner{result: notifications.BatchResult{Scanned: 3, Sent: 2, Failed: 1}}
	s := NewOverdueReminderScheduler(runner, "0 * * * *", zap.NewNop())

	status := s.Status()
	assert.Nil(t, status.LastRun)
	assert.Equal(t, "Every hour at :00", status.Description)

	result, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Sent)

	status = s.Status()
	require.NotNil(t, status.LastRun)
	require.NotNil(t, status.LastResult)
	assert.Equal(t, 1, status.LastResult.Failed)
	assert.Empty(t, status.LastError)

	runner.err = errors.New("database is locked")
	_, err = s.RunNow(context.Background())
	require.Error(t, err)

	status = s.Status()
	assert.Nil(t, status.LastResult)
	assert.Equal(t, "database is locked", status.LastError)
}

type fakeEnqueuer struct {
	enqueued []backlite.Task
	err      error
}

func (f *fakeEnqueuer) Enqueue(ts ...backlite.Task) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.enqueued = append(f.enqueued, ts...)
	ids := make([]string, len(ts))
	for i := range ts {
		ids[i] = "task-" + string(rune('a'+i))
	}
	return ids, nil
}

func TestRetentionScheduler_EnqueueCleanup(t *testing.T) {
	queue := &fakeEnqueuer{}
	s := NewRetentionScheduler(queue, "30 3 * * *", 180, 30, zap.NewNop())

	ids, err := s.EnqueueCleanup()
	require.NoError(t, err)
	assert.Len(t, ids, 2)
	assert.Equal(t, []backlite.Task{
		tasks.CleanupNotificationsTask{RetentionDays: 180},
		tasks.CleanupAuditEventsTask{RetentionDays: 30},
	}, queue.enqueued)

	queue.err = errors.New("queue closed")
	_, err = s.EnqueueCleanup()
	assert.Error(t, err)
}

func TestRetentionScheduler_StartStop(t *testing.T) {
	s := NewRetentionScheduler(&fakeEnqueuer{}, "30 3 * * *", 180, 30, zap.NewNop())

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	s.Stop()
	assert.False(t, s.IsRunning())

	bad := NewRetentionScheduler(&fakeEnqueuer{}, "bad", 1, 1, zap.NewNop())
	assert.Error(t, bad.Start(context.Background()))
	assert.False(t, bad.IsRunning())
}
