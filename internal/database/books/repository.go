// Package books provides database operations for the book catalog.
//
// # Usage
//
//	repo := books.NewRepository(db)
//	book, err := repo.GetByID(ctx, id)
package books

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/apperr"
	"github.com/mrlokans/library/internal/entities"
)

const (
	msgNotFound  = "Book not found"
	msgDuplicate = "Book with this id already exists"
)

// Repository handles all book database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Update holds the fields of a partial book update. Nil fields are left alone.
type Update struct {
	Code      *string
	Title     *string
	Author    *string
	Genre     *string
	Language  *string
	Quantity  *int
	Available *bool
}

func (u Update) columns() map[string]any {
	cols := make(map[string]any)
	if u.Code != nil {
		cols["code"] = *u.Code
	}
	if u.Title != nil {
		cols["title"] = *u.Title
	}
	if u.Author != nil {
		cols["author"] = *u.Author
	}
	if u.Genre != nil {
		cols["genre"] = *u.Genre
	}
	if u.Language != nil {
		cols["language"] = *u.Language
	}
	if u.Quantity != nil {
		cols["quantity"] = *u.Quantity
	}
	if u.Available != nil {
		cols["available"] = *u.Available
	}
	return cols
}

// List returns all books in insertion order.
func (r *Repository) List(ctx context.Context) ([]entities.Book, error) {
	books := []entities.Book{}
	err := r.db.WithContext(ctx).Order("id ASC").Find(&books).Error
	return books, err
}

// GetByID retrieves a book by its storage ID.
func (r *Repository) GetByID(ctx context.Context, id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.WithContext(ctx).First(&book, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.ErrNotFound, msgNotFound)
		}
		return nil, err
	}
	return &book, nil
}

// Create inserts a new book. The catalog code must be unique.
func (r *Repository) Create(ctx context.Context, book *entities.Book) error {
	err := r.db.WithContext(ctx).Create(book).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.New(apperr.ErrConflict, msgDuplicate)
	}
	return err
}

// Update applies a partial update and returns the stored book.
func (r *Repository) Update(ctx context.Context, id uint, update Update) (*entities.Book, error) {
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}

	if cols := update.columns(); len(cols) > 0 {
		err := r.db.WithContext(ctx).Model(&entities.Book{ID: id}).Updates(cols).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.New(apperr.ErrConflict, msgDuplicate)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to update book: %w", err)
		}
	}

	return r.GetByID(ctx, id)
}

// Delete removes a book permanently. Lendings that reference it are kept.
func (r *Repository) Delete(ctx context.Context, id uint) (*entities.Book, error) {
	book, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	result := r.db.WithContext(ctx).Delete(&entities.Book{}, id)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, apperr.New(apperr.ErrNotFound, msgNotFound)
	}
	return book, nil
}
