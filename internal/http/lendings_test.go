package http

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/library/internal/database/lendings"
	"github.com/mrlokans/library/internal/entities"
)

func TestLendingsController_LendAndReturn(t *testing.T) {
	env := newTestEnv(t)
	reader := env.seedReader(t, "R1")
	book := env.seedBook(t, "B1", 1)

	w := env.do(t, http.MethodPost, "/api/lendings/lend", env.librarianToken, map[string]any{
		"readerId": reader.ID,
		"bookId":   fmt.Sprint(book.ID),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	lent := decode[entities.Lending](t, w)
	assert.NotEmpty(t, lent.Token)
	assert.Equal(t, reader.ID, lent.ReaderID)
	assert.False(t, lent.Returned)
	assert.False(t, lent.Overdue)
	require.NotNil(t, lent.Book)
	assert.Equal(t, 0, lent.Book.Quantity)

	w = env.do(t, http.MethodPost, "/api/lendings/lend", env.librarianToken, map[string]any{
		"readerId": reader.ID,
		"bookId":   book.ID,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Book is out of stock", messageOf(t, w))

	w = env.do(t, http.MethodPut, "/api/lendings/return/"+lent.Token, env.librarianToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[ReturnResponse](t, w)
	assert.Equal(t, "Book returned successfully", resp.Message)
	require.NotNil(t, resp.Lending)
	assert.True(t, resp.Lending.Returned)
	assert.NotNil(t, resp.Lending.ReturnDate)

	stored, err := env.books.GetByID(context.Background(), book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Quantity)

	w = env.do(t, http.MethodPut, "/api/lendings/return/"+lent.Token, env.librarianToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Book already returned", messageOf(t, w))

	w = env.do(t, http.MethodPut, fmt.Sprintf("/api/lendings/return/%d", lent.ID), env.librarianToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLendingsController_LendValidation(t *testing.T) {
	env := newTestEnv(t)
	book := env.seedBook(t, "B1", 1)

	tests := []struct {
		name    string
		body    any
		code    int
		message string
	}{
		{"empty body", map[string]any{}, http.StatusBadRequest, "readerId and bookId are required"},
		{"malformed ids", map[string]any{"readerId": "abc", "bookId": "1"}, http.StatusBadRequest, "Invalid readerId or bookId format"},
		{"unknown reader", map[string]any{"readerId": 999, "bookId": book.ID}, http.StatusNotFound, "Reader not found"},
		{"not an object", []int{1, 2}, http.StatusBadRequest, "Invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/lendings/lend", env.librarianToken, tt.body)
			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, tt.message, messageOf(t, w))
		})
	}
}

func TestLendingsController_LendMissingIDsHaveDetails(t *testing.T) {
	env := newTestEnv(t)
	env.seedBook(t, "B1", 1)

	w := env.do(t, http.MethodPost, "/api/lendings/lend", env.librarianToken, map[string]any{})
	require.Equal(t, http.StatusBadRequest, w.Code)

	resp := decode[ErrorResponse](t, w)
	assert.Equal(t, "readerId and bookId are required", resp.Message)
	assert.Contains(t, resp.Details, FieldDetail{Field: "readerId", Rule: "required"})
	assert.Contains(t, resp.Details, FieldDetail{Field: "bookId", Rule: "required"})

	w = env.do(t, http.MethodPost, "/api/lendings/lend", env.librarianToken, map[string]any{"readerId": nil, "bookId": 1})
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp = decode[ErrorResponse](t, w)
	assert.Equal(t, []FieldDetail{{Field: "readerId", Rule: "required"}}, resp.Details)
}

func TestLendingsController_Listing(t *testing.T) {
	env := newTestEnv(t)
	reader := env.seedReader(t, "R1")
	book := env.seedBook(t, "B1", 2)
	other := env.seedBook(t, "B2", 1)

	for _, b := range []*entities.Book{book, other} {
		w := env.do(t, http.MethodPost, "/api/lendings/lend", env.librarianToken, map[string]any{
			"readerId": reader.ID,
			"bookId":   b.ID,
		})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := env.do(t, http.MethodGet, "/api/lendings", env.librarianToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]entities.Lending](t, w), 2)

	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/lendings/reader/%d", reader.ID), env.librarianToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]entities.Lending](t, w), 2)

	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/lendings/book/%d", other.ID), env.librarianToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]entities.Lending](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, other.ID, list[0].BookID)

	w = env.do(t, http.MethodGet, fmt.Sprintf("/api/lendings?bookId=%d", book.ID), env.librarianToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]entities.Lending](t, w), 1)

	w = env.do(t, http.MethodGet, "/api/lendings/book/999", env.librarianToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "No lendings found for this book", messageOf(t, w))

	w = env.do(t, http.MethodGet, "/api/lendings/reader/xyz", env.librarianToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid readerId format", messageOf(t, w))
}

func TestLendingsController_EmptyListIsNotAnError(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/lendings", env.librarianToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	w = env.do(t, http.MethodGet, "/api/lendings/overdue", env.librarianToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestLendingsController_Overdue(t *testing.T) {
	env := newTestEnv(t)
	reader := env.seedReader(t, "R1")
	book := env.seedBook(t, "B1", 2)

	now := time.Now().UTC()
	past := &entities.Lending{
		Token:        uuid.NewString(),
		ReaderID:     reader.ID,
		BookID:       book.ID,
		BorrowedDate: now.Add(-20 * 24 * time.Hour),
		DueDate:      now.Add(-6*24*time.Hour - time.Hour),
	}
	require.NoError(t, lendings.NewRepository(env.db.DB).Create(context.Background(), past, lendings.CreateOptions{}))

	w := env.do(t, http.MethodPost, "/api/lendings/lend", env.librarianToken, map[string]any{
		"readerId": reader.ID,
		"bookId":   book.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodGet, "/api/lendings/overdue", env.librarianToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	list := decode[[]entities.Lending](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, past.Token, list[0].Token)
	assert.True(t, list[0].Overdue)
	assert.Equal(t, 6, list[0].DaysOverdue)
}

func TestLendingsController_ReturnUnknown(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPut, "/api/lendings/return/"+uuid.NewString(), env.librarianToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Lending record not found", messageOf(t, w))

	w = env.do(t, http.MethodPut, "/api/lendings/return/not-a-token", env.librarianToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
