package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/library/internal/audit"
	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/database/books"
	"github.com/mrlokans/library/internal/database/lendings"
	notificationrepo "github.com/mrlokans/library/internal/database/notifications"
	"github.com/mrlokans/library/internal/database/readers"
	"github.com/mrlokans/library/internal/database/users"
	"github.com/mrlokans/library/internal/http"
	"github.com/mrlokans/library/internal/lending"
	"github.com/mrlokans/library/internal/mailer"
	"github.com/mrlokans/library/internal/notifications"
	"github.com/mrlokans/library/internal/scheduler"
	"github.com/mrlokans/library/internal/tasks"
)

// =============================================================================
// Data Access Layer
// =============================================================================

var _ http.BookStore = (*books.Repository)(nil)
var _ http.ReaderStore = (*readers.Repository)(nil)
var _ http.NotificationLister = (*notificationrepo.Repository)(nil)

var _ lending.BookFinder = (*books.Repository)(nil)
var _ lending.ReaderFinder = (*readers.Repository)(nil)
var _ lending.LendingStore = (*lendings.Repository)(nil)

var _ notifications.LendingSource = (*lendings.Repository)(nil)
var _ notifications.RecordStore = (*notificationrepo.Repository)(nil)

var _ auth.UserStore = (*users.Repository)(nil)

// =============================================================================
// Domain Services
// =============================================================================

var _ http.LendingService = (*lending.Service)(nil)

// ReminderRunner implementations
var _ http.ReminderRunner = (*notifications.Dispatcher)(nil)
var _ tasks.ReminderRunner = (*notifications.Dispatcher)(nil)
var _ scheduler.ReminderRunner = (*notifications.Dispatcher)(nil)

var _ http.ReminderScheduler = (*scheduler.OverdueReminderScheduler)(nil)

// =============================================================================
// Audit Trail
// =============================================================================

var _ http.CatalogAuditor = (*audit.Service)(nil)
var _ http.AuditLog = (*audit.Service)(nil)
var _ lending.Auditor = (*audit.Service)(nil)
var _ notifications.Auditor = (*audit.Service)(nil)
var _ auth.Auditor = (*audit.Service)(nil)

// =============================================================================
// Background Work
// =============================================================================

var _ http.TaskQueue = (*tasks.Client)(nil)
var _ http.TaskRegistry = (*tasks.Registry)(nil)
var _ scheduler.Enqueuer = (*tasks.Client)(nil)

var _ tasks.NotificationCleaner = (*notificationrepo.Repository)(nil)
var _ tasks.AuditEventCleaner = (*audit.Service)(nil)

// =============================================================================
// External Services
// =============================================================================

var _ mailer.Mailer = (*mailer.SMTPMailer)(nil)
