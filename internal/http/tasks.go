package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/tasks"
)

// TasksController handles task queue management endpoints.
type TasksController struct {
	queue    TaskQueue
	registry TaskRegistry
}

// NewTasksController creates a new TasksController.
func NewTasksController(queue TaskQueue, registry TaskRegistry) *TasksController {
	return &TasksController{queue: queue, registry: registry}
}

// ListTaskTypes handles GET /api/tasks/types
// Returns the list of available task types that can be triggered.
func (tc *TasksController) ListTaskTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"taskTypes": tc.registry.Types(),
	})
}

// GetTaskStatus handles GET /api/tasks/:id
func (tc *TasksController) GetTaskStatus(c *gin.Context) {
	taskID := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, err := tc.queue.Status(ctx, taskID)
	if err != nil {
		respondInternalError(c, err, "task status")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     taskID,
		"status": tasks.StatusString(status),
	})
}

// RunTask handles POST /api/tasks/:type/run
// Enqueues a task of the given type and answers 202 with its id.
func (tc *TasksController) RunTask(c *gin.Context) {
	taskType := c.Param("type")

	var req tasks.RunRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, "Invalid request body")
			return
		}
	}

	task, err := tc.registry.Build(taskType, req)
	if err != nil {
		respondError(c, err, "build task")
		return
	}

	ids, err := tc.queue.Enqueue(task)
	if err != nil {
		respondInternalError(c, err, "enqueue task")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"taskId":  ids[0],
		"type":    taskType,
		"message": "Task enqueued",
	})
}
