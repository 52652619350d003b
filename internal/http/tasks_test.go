package http

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/library/internal/tasks"
)

func TestTasksController_ListTypes(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/tasks/types", env.librarianToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[struct {
		TaskTypes []tasks.TaskType `json:"taskTypes"`
	}](t, w)

	var names []string
	for _, tt := range resp.TaskTypes {
		names = append(names, tt.Type)
	}
	assert.ElementsMatch(t, []string{
		tasks.QueueSendOverdueReminders,
		tasks.QueueCleanupNotifications,
		tasks.QueueCleanupAuditEvents,
	}, names)
}

func TestTasksController_Run(t *testing.T) {
	t.Run("enqueues with default retention", func(t *testing.T) {
		env := newTestEnv(t)

		w := env.do(t, http.MethodPost, "/api/tasks/cleanup_audit_events/run", env.adminToken, nil)
		require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
		assert.JSONEq(t, `{"taskId":"task-1","type":"cleanup_audit_events","message":"Task enqueued"}`, w.Body.String())

		require.Len(t, env.queue.enqueued, 1)
		task, ok := env.queue.enqueued[0].(tasks.CleanupAuditEventsTask)
		require.True(t, ok)
		assert.Equal(t, 30, task.RetentionDays)
	})

	t.Run("retention override", func(t *testing.T) {
		env := newTestEnv(t)

		w := env.do(t, http.MethodPost, "/api/tasks/cleanup_notifications/run", env.adminToken, map[string]any{"retention_days": 10})
		require.Equal(t, http.StatusAccepted, w.Code)

		require.Len(t, env.queue.enqueued, 1)
		task, ok := env.queue.enqueued[0].(tasks.CleanupNotificationsTask)
		require.True(t, ok)
		assert.Equal(t, 10, task.RetentionDays)
	})

	t.Run("unknown type", func(t *testing.T) {
		env := newTestEnv(t)

		w := env.do(t, http.MethodPost, "/api/tasks/enrich_everything/run", env.adminToken, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "unknown task type: enrich_everything", messageOf(t, w))
		assert.Empty(t, env.queue.enqueued)
	})

	t.Run("negative retention", func(t *testing.T) {
		env := newTestEnv(t)

		w := env.do(t, http.MethodPost, "/api/tasks/cleanup_notifications/run", env.adminToken, map[string]any{"retention_days": -1})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("retention inside the reminder cooldown", func(t *testing.T) {
		env := newTestEnv(t)

		w := env.do(t, http.MethodPost, "/api/tasks/cleanup_notifications/run", env.adminToken, map[string]any{"retention_days": 1})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "retention_days must cover the reminder cooldown of 168h0m0s", messageOf(t, w))
		assert.Empty(t, env.queue.enqueued)
	})

	t.Run("admin only", func(t *testing.T) {
		env := newTestEnv(t)

		w := env.do(t, http.MethodPost, "/api/tasks/cleanup_notifications/run", env.librarianToken, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Empty(t, env.queue.enqueued)
	})
}

func TestTasksController_Status(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/tasks/task-1", env.librarianToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"task-1","status":"pending"}`, w.Body.String())
}
