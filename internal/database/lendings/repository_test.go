package lendings

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/apperr"
	"github.com/mrlokans/library/internal/database/dbtest"
	"github.com/mrlokans/library/internal/entities"
)

type fixture struct {
	db     *gorm.DB
	repo   *Repository
	book   *entities.Book
	reader *entities.Reader
}

func setup(t *testing.T, quantity int) *fixture {
	t.Helper()
	db := dbtest.New(t).DB

	book := &entities.Book{Code: "B1", Title: "Dune", Author: "Frank Herbert", Genre: "SF", Language: "en", Quantity: quantity, Available: true}
	require.NoError(t, db.Create(book).Error)
	reader := &entities.Reader{Code: "R1", Name: "Paul", Email: "paul@example.com", Phone: "1", Address: "Arrakis"}
	require.NoError(t, db.Create(reader).Error)

	return &fixture{db: db, repo: NewRepository(db), book: book, reader: reader}
}

func (f *fixture) newLending() *entities.Lending {
	now := time.Now().UTC()
	return &entities.Lending{
		Token:        uuid.NewString(),
		ReaderID:     f.reader.ID,
		BookID:       f.book.ID,
		BorrowedDate: now,
		DueDate:      now.Add(14 * 24 * time.Hour),
	}
}

func (f *fixture) quantity(t *testing.T) int {
	t.Helper()
	var book entities.Book
	require.NoError(t, f.db.First(&book, f.book.ID).Error)
	return book.Quantity
}

func (f *fixture) lendingCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&entities.Lending{}).Count(&count).Error)
	return count
}

func TestRepository_CreateDecrementsQuantity(t *testing.T) {
	f := setup(t, 2)
	ctx := context.Background()

	lending := f.newLending()
	require.NoError(t, f.repo.Create(ctx, lending, CreateOptions{}))

	assert.NotZero(t, lending.ID)
	assert.Equal(t, 1, f.quantity(t))
	assert.Equal(t, int64(1), f.lendingCount(t))
}

func TestRepository_CreateOutOfStock(t *testing.T) {
	f := setup(t, 0)

	err := f.repo.Create(context.Background(), f.newLending(), CreateOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrOutOfStock))
	assert.Equal(t, "Book is out of stock", apperr.Message(err, ""))

	assert.Equal(t, 0, f.quantity(t))
	assert.Zero(t, f.lendingCount(t))
}

func TestRepository_CreateMissingBook(t *testing.T) {
	f := setup(t, 1)
	lending := f.newLending()
	lending.BookID = 999

	err := f.repo.Create(context.Background(), lending, CreateOptions{})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.Zero(t, f.lendingCount(t))
}

func TestRepository_CreateInsertFailureRollsBackDecrement(t *testing.T) {
	f := setup(t, 2)
	ctx := context.Background()

	first := f.newLending()
	require.NoError(t, f.repo.Create(ctx, first, CreateOptions{}))

	// Reusing the token violates the unique index after the decrement ran.
	second := f.newLending()
	second.Token = first.Token
	require.Error(t, f.repo.Create(ctx, second, CreateOptions{}))

	assert.Equal(t, 1, f.quantity(t))
	assert.Equal(t, int64(1), f.lendingCount(t))
}

func TestRepository_CreateDuplicatePolicy(t *testing.T) {
	f := setup(t, 3)
	ctx := context.Background()

	require.NoError(t, f.repo.Create(ctx, f.newLending(), CreateOptions{}))

	t.Run("permissive by default", func(t *testing.T) {
		require.NoError(t, f.repo.Create(ctx, f.newLending(), CreateOptions{}))
	})

	t.Run("strict mode rejects second open lending", func(t *testing.T) {
		err := f.repo.Create(ctx, f.newLending(), CreateOptions{PreventDuplicateOpen: true})
		assert.True(t, errors.Is(err, apperr.ErrDuplicateLending))
		assert.Equal(t, 1, f.quantity(t))
	})
}

func TestRepository_ConcurrentCreateLastCopy(t *testing.T) {
	f := setup(t, 1)
	ctx := context.Background()

	const attempts = 8
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		successes  int
		outOfStock int
		other      []error
	)

	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			err := f.repo.Create(ctx, f.newLending(), CreateOptions{})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, apperr.ErrOutOfStock):
				outOfStock++
			default:
				other = append(other, err)
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Empty(t, other)
	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, outOfStock)
	assert.Equal(t, 0, f.quantity(t))
	assert.Equal(t, int64(1), f.lendingCount(t))
}

func TestRepository_MarkReturned(t *testing.T) {
	f := setup(t, 1)
	ctx := context.Background()

	lending := f.newLending()
	require.NoError(t, f.repo.Create(ctx, lending, CreateOptions{}))
	require.Equal(t, 0, f.quantity(t))

	returnedAt := time.Now().UTC()
	res, err := f.repo.MarkReturned(ctx, lending.ID, returnedAt)
	require.NoError(t, err)
	assert.True(t, res.BookRestocked)
	assert.True(t, res.Lending.Returned)
	require.NotNil(t, res.Lending.ReturnDate)
	assert.WithinDuration(t, returnedAt, *res.Lending.ReturnDate, time.Second)
	assert.Equal(t, 1, f.quantity(t))

	t.Run("second return is rejected without restocking", func(t *testing.T) {
		_, err := f.repo.MarkReturned(ctx, lending.ID, time.Now().UTC())
		assert.True(t, errors.Is(err, apperr.ErrAlreadyReturned))
		assert.Equal(t, "Book already returned", apperr.Message(err, ""))
		assert.Equal(t, 1, f.quantity(t))
	})

	t.Run("missing lending", func(t *testing.T) {
		_, err := f.repo.MarkReturned(ctx, 999, time.Now().UTC())
		assert.True(t, errors.Is(err, apperr.ErrNotFound))
	})
}

func TestRepository_MarkReturnedDeletedBook(t *testing.T) {
	f := setup(t, 1)
	ctx := context.Background()

	lending := f.newLending()
	require.NoError(t, f.repo.Create(ctx, lending, CreateOptions{}))
	require.NoError(t, f.db.Delete(&entities.Book{}, f.book.ID).Error)

	res, err := f.repo.MarkReturned(ctx, lending.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, res.BookRestocked)
	assert.True(t, res.Lending.Returned)
}

func TestRepository_ConcurrentReturn(t *testing.T) {
	f := setup(t, 1)
	ctx := context.Background()

	lending := f.newLending()
	require.NoError(t, f.repo.Create(ctx, lending, CreateOptions{}))

	const attempts = 5
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.repo.MarkReturned(ctx, lending.ID, time.Now().UTC())
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, already int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, apperr.ErrAlreadyReturned):
			already++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, attempts-1, already)
	assert.Equal(t, 1, f.quantity(t))
}

func TestRepository_ListAndLookups(t *testing.T) {
	f := setup(t, 5)
	ctx := context.Background()

	other := &entities.Reader{Code: "R2", Name: "Chani", Email: "chani@example.com", Phone: "2", Address: "Sietch Tabr"}
	require.NoError(t, f.db.Create(other).Error)

	first := f.newLending()
	require.NoError(t, f.repo.Create(ctx, first, CreateOptions{}))
	second := f.newLending()
	second.ReaderID = other.ID
	require.NoError(t, f.repo.Create(ctx, second, CreateOptions{}))

	all, err := f.repo.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.ID, all[0].ID)
	require.NotNil(t, all[0].Reader)
	require.NotNil(t, all[0].Book)
	assert.Equal(t, "R1", all[0].Reader.Code)
	assert.Equal(t, "B1", all[0].Book.Code)

	byReader, err := f.repo.List(ctx, Filter{ReaderID: other.ID})
	require.NoError(t, err)
	require.Len(t, byReader, 1)
	assert.Equal(t, second.ID, byReader[0].ID)

	byBook, err := f.repo.List(ctx, Filter{BookID: 999})
	require.NoError(t, err)
	assert.Empty(t, byBook)

	got, err := f.repo.GetByToken(ctx, first.Token)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	_, err = f.repo.GetByToken(ctx, "missing")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	_, err = f.repo.MarkReturned(ctx, first.ID, time.Now().UTC())
	require.NoError(t, err)

	open, err := f.repo.ListOpen(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, second.ID, open[0].ID)
}

func TestRepository_ListDanglingReference(t *testing.T) {
	f := setup(t, 1)
	ctx := context.Background()

	lending := f.newLending()
	require.NoError(t, f.repo.Create(ctx, lending, CreateOptions{}))
	require.NoError(t, f.db.Delete(&entities.Reader{}, f.reader.ID).Error)

	got, err := f.repo.GetByID(ctx, lending.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Reader)
	assert.NotNil(t, got.Book)
}
