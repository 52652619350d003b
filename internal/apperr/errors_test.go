package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_KindMatching(t *testing.T) {
	err := New(ErrOutOfStock, "Book is out of stock")

	assert.True(t, errors.Is(err, ErrOutOfStock))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "Book is out of stock", err.Error())
}

func TestError_WrapKeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := Wrap(ErrTransport, "send reminder", cause)

	assert.True(t, errors.Is(err, ErrTransport))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "send reminder: dial tcp: timeout", err.Error())
}

func TestError_MatchesThroughFmtWrapping(t *testing.T) {
	err := fmt.Errorf("create lending: %w", New(ErrNotFound, "Reader not found"))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "Reader not found", Message(err, "fallback"))
}

func TestMessage_Fallback(t *testing.T) {
	assert.Equal(t, "fallback", Message(errors.New("boom"), "fallback"))
	assert.Equal(t, "fallback", Message(New(ErrNotFound, ""), "fallback"))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{New(ErrValidation, "x"), 400},
		{New(ErrInvalidReference, "x"), 400},
		{New(ErrOutOfStock, "x"), 400},
		{New(ErrAlreadyReturned, "x"), 400},
		{New(ErrDuplicateLending, "x"), 400},
		{New(ErrConflict, "x"), 400},
		{New(ErrNotFound, "x"), 404},
		{fmt.Errorf("wrapped: %w", New(ErrNoResults, "x")), 404},
		{New(ErrUnauthorized, "x"), 401},
		{New(ErrForbidden, "x"), 403},
		{New(ErrLocked, "x"), 423},
		{New(ErrRateLimited, "x"), 429},
		{Wrap(ErrTransport, "x", errors.New("smtp")), 500},
		{errors.New("boom"), 500},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}
