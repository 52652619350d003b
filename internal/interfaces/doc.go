// Package interfaces documents the core abstractions used throughout the application.
//
// # Interface Categories
//
// ## Data Access Interfaces
//
//   - BookStore, ReaderStore: catalog CRUD (internal/http/stores.go)
//   - BookFinder, ReaderFinder, LendingStore: what the lending service needs
//     from storage (internal/lending/interfaces.go)
//   - LendingSource, RecordStore: open lendings and delivery history for the
//     reminder dispatcher (internal/notifications/dispatcher.go)
//   - UserStore: staff accounts and refresh token versions (internal/auth/service.go)
//
// ## Service Interfaces
//
//   - LendingService: borrow, return and listings (internal/http/stores.go)
//   - ReminderRunner: one reminder batch; implemented by notifications.Dispatcher
//     and consumed by the HTTP layer, the scheduler and the task queue
//   - ReminderScheduler: status and pause/resume of the cron scheduler
//   - Mailer: outbound email (internal/mailer/mailer.go)
//
// ## Audit Interfaces
//
// Each consumer declares the narrow slice of audit.Service it uses:
// CatalogAuditor and AuditLog (http), Auditor (lending, notifications, auth)
// and AuditEventCleaner (tasks).
//
// ## Background Work
//
//   - TaskQueue, TaskRegistry: manual task triggering over HTTP
//   - Enqueuer: how the retention scheduler hands work to the task queue
//   - NotificationCleaner, AuditEventCleaner: retention targets
//
// # Adding a Background Task
//
//  1. Define a task struct with a Config() method in internal/tasks
//  2. Write a processor and a New...Queue constructor next to it
//  3. Register the queue in internal/entrypoint and add it to tasks.NewRegistry
//
// Compile-time checks for all of the above live in checks.go.
package interfaces
