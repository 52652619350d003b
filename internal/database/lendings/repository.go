// Package lendings provides the atomic ledger operations: borrowing with a
// conditional stock decrement, returning with a conditional state change, and
// joined reads.
//
// Every write that touches both a lending and a book quantity runs inside one
// transaction so callers never observe one without the other.
package lendings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/apperr"
	"github.com/mrlokans/library/internal/entities"
)

const (
	msgLendingNotFound  = "Lending record not found"
	msgBookNotFound     = "Book not found"
	msgOutOfStock       = "Book is out of stock"
	msgAlreadyReturned  = "Book already returned"
	msgDuplicateLending = "Reader already has an open lending for this book"
)

// Repository handles all lending database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new lendings repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Filter narrows a lending listing. Zero fields are ignored.
type Filter struct {
	ReaderID uint
	BookID   uint
}

// CreateOptions tunes borrow-time policy.
type CreateOptions struct {
	// PreventDuplicateOpen rejects the borrow when the reader already holds an
	// open lending for the same book.
	PreventDuplicateOpen bool
}

// Create takes one copy of the book off the shelf and inserts the lending.
//
// The decrement is conditional on quantity > 0 and its row count decides the
// outcome, so concurrent borrows of the last copy produce exactly one success.
// If the insert fails the decrement is rolled back with it.
func (r *Repository) Create(ctx context.Context, lending *entities.Lending, opts CreateOptions) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if opts.PreventDuplicateOpen {
			var open int64
			err := tx.Model(&entities.Lending{}).
				Where("reader_id = ? AND book_id = ? AND returned = ?", lending.ReaderID, lending.BookID, false).
				Count(&open).Error
			if err != nil {
				return fmt.Errorf("failed to check open lendings: %w", err)
			}
			if open > 0 {
				return apperr.New(apperr.ErrDuplicateLending, msgDuplicateLending)
			}
		}

		result := tx.Model(&entities.Book{}).
			Where("id = ? AND quantity > 0", lending.BookID).
			UpdateColumn("quantity", gorm.Expr("quantity - 1"))
		if result.Error != nil {
			return fmt.Errorf("failed to decrement book quantity: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&entities.Book{}).Where("id = ?", lending.BookID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return apperr.New(apperr.ErrNotFound, msgBookNotFound)
			}
			return apperr.New(apperr.ErrOutOfStock, msgOutOfStock)
		}

		if err := tx.Omit("Reader", "Book").Create(lending).Error; err != nil {
			return fmt.Errorf("failed to create lending: %w", err)
		}
		return nil
	})
}

// ReturnResult describes the outcome of a successful return.
type ReturnResult struct {
	Lending *entities.Lending
	// BookRestocked is false when the referenced book no longer exists and the
	// quantity increment was skipped.
	BookRestocked bool
}

// MarkReturned closes an open lending and puts the copy back on the shelf.
//
// The state change is conditional on returned = false, so a lending can only
// be closed once even under concurrent calls.
func (r *Repository) MarkReturned(ctx context.Context, id uint, at time.Time) (*ReturnResult, error) {
	var res ReturnResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lending entities.Lending
		if err := tx.First(&lending, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.ErrNotFound, msgLendingNotFound)
			}
			return err
		}

		result := tx.Model(&entities.Lending{}).
			Where("id = ? AND returned = ?", id, false).
			Updates(map[string]any{
				"returned":    true,
				"return_date": at,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to mark lending returned: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return apperr.New(apperr.ErrAlreadyReturned, msgAlreadyReturned)
		}

		restock := tx.Model(&entities.Book{}).
			Where("id = ?", lending.BookID).
			UpdateColumn("quantity", gorm.Expr("quantity + 1"))
		if restock.Error != nil {
			return fmt.Errorf("failed to increment book quantity: %w", restock.Error)
		}
		res.BookRestocked = restock.RowsAffected > 0

		lending.Returned = true
		lending.ReturnDate = &at
		res.Lending = &lending
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// GetByID retrieves a lending with its reader and book snapshots.
func (r *Repository) GetByID(ctx context.Context, id uint) (*entities.Lending, error) {
	var lending entities.Lending
	err := r.withSnapshots(ctx).First(&lending, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.ErrNotFound, msgLendingNotFound)
		}
		return nil, err
	}
	return &lending, nil
}

// GetByToken retrieves a lending by its public token.
func (r *Repository) GetByToken(ctx context.Context, token string) (*entities.Lending, error) {
	var lending entities.Lending
	err := r.withSnapshots(ctx).Where("token = ?", token).First(&lending).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.ErrNotFound, msgLendingNotFound)
		}
		return nil, err
	}
	return &lending, nil
}

// List returns lendings in insertion order, joined with their current reader
// and book. Dangling references produce nil snapshots.
func (r *Repository) List(ctx context.Context, filter Filter) ([]entities.Lending, error) {
	query := r.withSnapshots(ctx)
	if filter.ReaderID != 0 {
		query = query.Where("reader_id = ?", filter.ReaderID)
	}
	if filter.BookID != 0 {
		query = query.Where("book_id = ?", filter.BookID)
	}

	lendings := []entities.Lending{}
	err := query.Order("id ASC").Find(&lendings).Error
	return lendings, err
}

// ListOpen returns all lendings that have not been returned.
func (r *Repository) ListOpen(ctx context.Context) ([]entities.Lending, error) {
	lendings := []entities.Lending{}
	err := r.withSnapshots(ctx).
		Where("returned = ?", false).
		Order("due_date ASC, id ASC").
		Find(&lendings).Error
	return lendings, err
}

func (r *Repository) withSnapshots(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Reader").Preload("Book")
}
