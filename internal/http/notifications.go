package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/notifications"
)

const (
	msgEmailNotConfigured = "Email configuration is missing"
	defaultRecentLimit    = 50
	maxRecentLimit        = 500
)

type NotificationsController struct {
	reminders ReminderRunner
	records   NotificationLister
	scheduler ReminderScheduler
}

// NewNotificationsController creates the controller. reminders and scheduler
// are nil when mail is not configured.
func NewNotificationsController(reminders ReminderRunner, records NotificationLister, scheduler ReminderScheduler) *NotificationsController {
	return &NotificationsController{
		reminders: reminders,
		records:   records,
		scheduler: scheduler,
	}
}

// DispatchResponse reports the outcome of a manual reminder run.
type DispatchResponse struct {
	Message string `json:"message"`
	notifications.BatchResult
}

// SendOverdueNotifications handles POST /api/notifications/send-overdue-notifications
// Answers 207 when some reminders could not be delivered.
func (nc *NotificationsController) SendOverdueNotifications(c *gin.Context) {
	if nc.reminders == nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: msgEmailNotConfigured})
		return
	}

	result, err := nc.reminders.Run(c.Request.Context())
	if err != nil {
		respondError(c, err, "send overdue notifications")
		return
	}

	switch {
	case result.Scanned == 0:
		c.JSON(http.StatusOK, DispatchResponse{Message: "No overdue readers found", BatchResult: result})
	case result.Failed > 0:
		c.JSON(http.StatusMultiStatus, DispatchResponse{Message: "Some emails failed to send", BatchResult: result})
	default:
		c.JSON(http.StatusOK, DispatchResponse{Message: "Overdue emails sent successfully", BatchResult: result})
	}
}

// GetNotifications handles GET /api/notifications
// Returns the most recent delivery attempts, newest first.
func (nc *NotificationsController) GetNotifications(c *gin.Context) {
	limit := queryInt(c, "limit", defaultRecentLimit)
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	records, err := nc.records.Recent(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err, "list notifications")
		return
	}
	c.JSON(http.StatusOK, records)
}

// SchedulerStatus handles GET /api/notifications/scheduler
func (nc *NotificationsController) SchedulerStatus(c *gin.Context) {
	if nc.scheduler == nil {
		c.JSON(http.StatusOK, gin.H{"configured": false, "running": false})
		return
	}
	c.JSON(http.StatusOK, nc.scheduler.Status())
}

// PauseScheduler handles POST /api/notifications/scheduler/pause
func (nc *NotificationsController) PauseScheduler(c *gin.Context) {
	if nc.scheduler == nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: msgEmailNotConfigured})
		return
	}
	nc.scheduler.Pause()
	c.JSON(http.StatusOK, nc.scheduler.Status())
}

// ResumeScheduler handles POST /api/notifications/scheduler/resume
func (nc *NotificationsController) ResumeScheduler(c *gin.Context) {
	if nc.scheduler == nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: msgEmailNotConfigured})
		return
	}
	nc.scheduler.Resume()
	c.JSON(http.StatusOK, nc.scheduler.Status())
}
