package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/library/internal/apperr"
	"github.com/mrlokans/library/internal/database/dbtest"
	"github.com/mrlokans/library/internal/entities"
)

func newUser(email string) *entities.User {
	return &entities.User{
		Name:         "Staff",
		Email:        email,
		PasswordHash: "hash",
		Role:         entities.UserRoleLibrarian,
	}
}

func TestRepository_CreateAndLookup(t *testing.T) {
	repo := NewRepository(dbtest.New(t).DB)
	ctx := context.Background()

	user := newUser("staff@example.com")
	require.NoError(t, repo.Create(ctx, user))
	assert.NotZero(t, user.ID)

	byEmail, err := repo.GetByEmail(ctx, "staff@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	byID, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "staff@example.com", byID.Email)

	_, err = repo.GetByEmail(ctx, "nobody@example.com")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.Equal(t, "User not found", apperr.Message(err, ""))

	err = repo.Create(ctx, newUser("staff@example.com"))
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRepository_CreateFirst(t *testing.T) {
	repo := NewRepository(dbtest.New(t).DB)
	ctx := context.Background()

	require.NoError(t, repo.CreateFirst(ctx, newUser("admin@example.com")))

	err := repo.CreateFirst(ctx, newUser("second@example.com"))
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRepository_LoginState(t *testing.T) {
	repo := NewRepository(dbtest.New(t).DB)
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	user := newUser("staff@example.com")
	require.NoError(t, repo.Create(ctx, user))

	got, err := repo.RecordFailedLogin(ctx, user.ID, 3, 15*time.Minute, now)
	require.NoError(t, err)
	assert.Equal(t, 1, got.FailedLoginCount)
	assert.Nil(t, got.LockedUntil)

	_, err = repo.RecordFailedLogin(ctx, user.ID, 3, 15*time.Minute, now)
	require.NoError(t, err)
	got, err = repo.RecordFailedLogin(ctx, user.ID, 3, 15*time.Minute, now)
	require.NoError(t, err)
	require.NotNil(t, got.LockedUntil)
	assert.True(t, got.LockedUntil.Equal(now.Add(15*time.Minute)))
	assert.Equal(t, 0, got.FailedLoginCount)

	require.NoError(t, repo.RecordSuccessfulLogin(ctx, user.ID, now))
	got, err = repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, got.LockedUntil)
	require.NotNil(t, got.LastLoginAt)
}

func TestRepository_BumpTokenVersion(t *testing.T) {
	repo := NewRepository(dbtest.New(t).DB)
	ctx := context.Background()

	user := newUser("staff@example.com")
	require.NoError(t, repo.Create(ctx, user))

	require.NoError(t, repo.BumpTokenVersion(ctx, user.ID))
	require.NoError(t, repo.BumpTokenVersion(ctx, user.ID))

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TokenVersion)

	err = repo.BumpTokenVersion(ctx, 999)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}
