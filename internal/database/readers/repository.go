// Package readers provides database operations for library members.
package readers

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/apperr"
	"github.com/mrlokans/library/internal/entities"
)

const (
	msgNotFound  = "Reader not found"
	msgDuplicate = "Reader with this id already exists"
)

// Repository handles all reader database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new readers repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Update holds the fields of a partial reader update. Nil fields are left alone.
type Update struct {
	Code    *string
	Name    *string
	Email   *string
	Phone   *string
	Address *string
}

func (u Update) columns() map[string]any {
	cols := make(map[string]any)
	if u.Code != nil {
		cols["code"] = *u.Code
	}
	if u.Name != nil {
		cols["name"] = *u.Name
	}
	if u.Email != nil {
		cols["email"] = *u.Email
	}
	if u.Phone != nil {
		cols["phone"] = *u.Phone
	}
	if u.Address != nil {
		cols["address"] = *u.Address
	}
	return cols
}

// List returns all readers in insertion order.
func (r *Repository) List(ctx context.Context) ([]entities.Reader, error) {
	readers := []entities.Reader{}
	err := r.db.WithContext(ctx).Order("id ASC").Find(&readers).Error
	return readers, err
}

// GetByID retrieves a reader by storage ID.
func (r *Repository) GetByID(ctx context.Context, id uint) (*entities.Reader, error) {
	var reader entities.Reader
	err := r.db.WithContext(ctx).First(&reader, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.ErrNotFound, msgNotFound)
		}
		return nil, err
	}
	return &reader, nil
}

// Create inserts a new reader.
func (r *Repository) Create(ctx context.Context, reader *entities.Reader) error {
	err := r.db.WithContext(ctx).Create(reader).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.New(apperr.ErrConflict, msgDuplicate)
	}
	return err
}

// Update applies a partial update and returns the stored reader.
func (r *Repository) Update(ctx context.Context, id uint, update Update) (*entities.Reader, error) {
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}

	if cols := update.columns(); len(cols) > 0 {
		err := r.db.WithContext(ctx).Model(&entities.Reader{ID: id}).Updates(cols).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.New(apperr.ErrConflict, msgDuplicate)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to update reader: %w", err)
		}
	}

	return r.GetByID(ctx, id)
}

// Delete removes a reader permanently without checking for open lendings.
func (r *Repository) Delete(ctx context.Context, id uint) (*entities.Reader, error) {
	reader, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).Delete(&entities.Reader{}, id).Error; err != nil {
		return nil, err
	}
	return reader, nil
}
