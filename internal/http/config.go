package http

import (
	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/database"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Database *database.Database
	Books    BookStore
	Readers  ReaderStore
	Lending  LendingService
	Auditor  CatalogAuditor
	AuditLog AuditLog

	// Authentication
	AuthController *auth.AuthController
	AuthMiddleware *auth.Middleware

	// Notifications. Reminders is nil when mail is not configured.
	Reminders     ReminderRunner
	Notifications NotificationLister
	Scheduler     ReminderScheduler

	// Task queue (optional)
	TaskQueue    TaskQueue
	TaskRegistry TaskRegistry

	// CORS origin of the admin frontend
	ClientOrigin  string
	SecureCookies bool

	// Application info
	Version string
}
