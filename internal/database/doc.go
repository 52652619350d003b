// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup, goose migrations
//	├── migrations/      # Embedded SQL migrations
//	├── books/           # Catalog book CRUD
//	├── readers/         # Reader CRUD
//	├── lendings/        # Atomic borrow and return, joined reads
//	├── notifications/   # Reminder delivery records
//	├── users/           # Staff accounts and login state
//	├── audit/           # Audit trail
//	└── dbtest/          # Migrated temporary databases for tests
//
// # Using Sub-packages
//
// Each sub-package provides a Repository type with domain-specific operations:
//
//	db, err := database.NewDatabase("./library.db")
//
//	booksRepo := books.NewRepository(db.DB)
//	lendingsRepo := lendings.NewRepository(db.DB)
//
//	book, err := booksRepo.GetByID(ctx, 1)
//	err = lendingsRepo.Create(ctx, lending, lendings.CreateOptions{})
//
// # Concurrency
//
// The connection string makes every transaction start with BEGIN IMMEDIATE,
// so writers are serialized by SQLite and wait on the busy timeout. Stock
// changes are conditional updates whose affected-row count decides the
// outcome; no read-then-write happens outside a transaction.
//
// # Schema Changes
//
// Add a new numbered file under migrations/ with goose Up and Down sections.
// Migrations run on startup and through the "migrate" command.
package database
