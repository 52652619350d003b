package tasks

import (
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/library/internal/apperr"
)

// TaskType describes a task that can be triggered on demand.
type TaskType struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Queue       string `json:"queue"`
}

// RunRequest carries optional parameters for a manually triggered task.
type RunRequest struct {
	RetentionDays int `json:"retention_days,omitempty" form:"retention_days"`
}

// RegistryOptions selects the available tasks and their defaults.
type RegistryOptions struct {
	// Reminders is false when mail is not configured.
	Reminders                 bool
	NotificationRetentionDays int
	// NotificationCooldown is the shortest notification retention accepted.
	NotificationCooldown time.Duration
	AuditRetentionDays   int
}

// Registry maps task type names to task builders.
type Registry struct {
	types    []TaskType
	builders map[string]func(RunRequest) (backlite.Task, error)
}

func NewRegistry(opts RegistryOptions) *Registry {
	r := &Registry{builders: make(map[string]func(RunRequest) (backlite.Task, error))}

	if opts.Reminders {
		r.add(TaskType{
			Type:        QueueSendOverdueReminders,
			Description: "Email reminders for lendings past the overdue threshold",
			Queue:       QueueSendOverdueReminders,
		}, func(RunRequest) (backlite.Task, error) {
			return SendOverdueRemindersTask{}, nil
		})
	}

	r.add(TaskType{
		Type:        QueueCleanupNotifications,
		Description: "Delete old notification records",
		Queue:       QueueCleanupNotifications,
	}, func(req RunRequest) (backlite.Task, error) {
		days := pick(req.RetentionDays, opts.NotificationRetentionDays)
		if days > 0 && time.Duration(days)*24*time.Hour < opts.NotificationCooldown {
			return nil, apperr.New(apperr.ErrValidation,
				fmt.Sprintf("retention_days must cover the reminder cooldown of %s", opts.NotificationCooldown))
		}
		return CleanupNotificationsTask{RetentionDays: days}, nil
	})

	r.add(TaskType{
		Type:        QueueCleanupAuditEvents,
		Description: "Delete audit events past the retention period",
		Queue:       QueueCleanupAuditEvents,
	}, func(req RunRequest) (backlite.Task, error) {
		return CleanupAuditEventsTask{RetentionDays: pick(req.RetentionDays, opts.AuditRetentionDays)}, nil
	})

	return r
}

func (r *Registry) add(t TaskType, build func(RunRequest) (backlite.Task, error)) {
	r.types = append(r.types, t)
	r.builders[t.Type] = build
}

// Types lists the task types in registration order.
func (r *Registry) Types() []TaskType {
	out := make([]TaskType, len(r.types))
	copy(out, r.types)
	return out
}

// Build creates a task of the named type.
func (r *Registry) Build(taskType string, req RunRequest) (backlite.Task, error) {
	build, ok := r.builders[taskType]
	if !ok {
		return nil, apperr.New(apperr.ErrValidation, fmt.Sprintf("unknown task type: %s", taskType))
	}
	if req.RetentionDays < 0 {
		return nil, apperr.New(apperr.ErrValidation, "retention_days must not be negative")
	}
	return build(req)
}

func pick(requested, fallback int) int {
	if requested > 0 {
		return requested
	}
	return fallback
}
