package http

import (
	"context"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/library/internal/database/audit"
	"github.com/mrlokans/library/internal/database/books"
	"github.com/mrlokans/library/internal/database/readers"
	"github.com/mrlokans/library/internal/entities"
	"github.com/mrlokans/library/internal/lending"
	"github.com/mrlokans/library/internal/notifications"
	"github.com/mrlokans/library/internal/scheduler"
	"github.com/mrlokans/library/internal/tasks"
)

// This file consolidates the interfaces the HTTP controllers depend on.
// Each controller takes only what it uses.

// --- Catalog ---

type BookStore interface {
	List(ctx context.Context) ([]entities.Book, error)
	GetByID(ctx context.Context, id uint) (*entities.Book, error)
	Create(ctx context.Context, book *entities.Book) error
	Update(ctx context.Context, id uint, update books.Update) (*entities.Book, error)
	Delete(ctx context.Context, id uint) (*entities.Book, error)
}

type ReaderStore interface {
	List(ctx context.Context) ([]entities.Reader, error)
	GetByID(ctx context.Context, id uint) (*entities.Reader, error)
	Create(ctx context.Context, reader *entities.Reader) error
	Update(ctx context.Context, id uint, update readers.Update) (*entities.Reader, error)
	Delete(ctx context.Context, id uint) (*entities.Reader, error)
}

// CatalogAuditor records catalog changes. Implementations must not block.
type CatalogAuditor interface {
	LogCatalog(ctx context.Context, action, entityType string, entityID uint, name string)
}

// --- Lending ---

type LendingService interface {
	CreateLending(ctx context.Context, readerID, bookID string) (*entities.Lending, error)
	ReturnLending(ctx context.Context, lendingID string) (*entities.Lending, error)
	ListLendings(ctx context.Context, filter lending.Filter) ([]entities.Lending, error)
	ListOverdue(ctx context.Context) ([]entities.Lending, error)
}

// --- Notifications ---

type ReminderRunner interface {
	Run(ctx context.Context) (notifications.BatchResult, error)
}

type NotificationLister interface {
	Recent(ctx context.Context, limit int) ([]entities.NotificationRecord, error)
}

type ReminderScheduler interface {
	Status() scheduler.Status
	Pause()
	Resume()
}

// --- Tasks ---

type TaskQueue interface {
	Enqueue(tasks ...backlite.Task) ([]string, error)
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
}

type TaskRegistry interface {
	Types() []tasks.TaskType
	Build(taskType string, req tasks.RunRequest) (backlite.Task, error)
}

// --- Audit ---

type AuditLog interface {
	GetEvents(ctx context.Context, q audit.Query) ([]entities.AuditEvent, int64, error)
}
