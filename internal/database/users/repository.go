// Package users provides database operations for staff accounts.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	user, err := repo.GetByEmail(ctx, email)
package users

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
	msgNotFound  = "User not found"
	msgDuplicate = "User with this email already exists"
)

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user. Emails are unique.
func (r *Repository) Create(ctx context.Context, user *entities.User) error {
	err := r.db.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.New(apperr.ErrConflict, msgDuplicate)
	}
	return err
}

// CreateFirst inserts the user only if no user exists yet.
// Returns ErrConflict when the table is already populated.
func (r *Repository) CreateFirst(ctx context.Context, user *entities.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&entities.User{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperr.New(apperr.ErrConflict, "Setup already completed")
		}
		return tx.Create(user).Error
	})
}

// GetByID retrieves a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uint) (*entities.User, error) {
	var user entities.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.ErrNotFound, msgNotFound)
		}
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by email address.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	var user entities.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.ErrNotFound, msgNotFound)
		}
		return nil, err
	}
	return &user, nil
}

// List returns all users in creation order.
func (r *Repository) List(ctx context.Context) ([]entities.User, error) {
	users := []entities.User{}
	err := r.db.WithContext(ctx).Order("id ASC").Find(&users).Error
	return users, err
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.User{}).Count(&count).Error
	return count, err
}

// RecordFailedLogin increments the failure counter and locks the account for
// lockFor once maxAttempts is reached. Returns the updated user.
func (r *Repository) RecordFailedLogin(ctx context.Context, id uint, maxAttempts int, lockFor time.Duration, now time.Time) (*entities.User, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user entities.User
		if err := tx.First(&user, id).Error; err != nil {
			return err
		}

		cols := map[string]any{"failed_login_count": user.FailedLoginCount + 1}
		if maxAttempts > 0 && user.FailedLoginCount+1 >= maxAttempts {
			cols["locked_until"] = now.Add(lockFor).UTC()
			cols["failed_login_count"] = 0
		}
		return tx.Model(&entities.User{ID: id}).Updates(cols).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record failed login: %w", err)
	}
	return r.GetByID(ctx, id)
}

// RecordSuccessfulLogin clears the failure state and stamps the login time.
func (r *Repository) RecordSuccessfulLogin(ctx context.Context, id uint, now time.Time) error {
	return r.db.WithContext(ctx).Model(&entities.User{ID: id}).Updates(map[string]any{
		"failed_login_count": 0,
		"locked_until":       nil,
		"last_login_at":      now.UTC(),
	}).Error
}

// BumpTokenVersion invalidates every refresh token issued to the user.
func (r *Repository) BumpTokenVersion(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Model(&entities.User{ID: id}).
		UpdateColumn("token_version", gorm.Expr("token_version + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.New(apperr.ErrNotFound, msgNotFound)
	}
	return nil
}
