package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Is(t *testing.T) {
	err := fmt.Errorf("ranking: %w", Input("query must not be blank"))

	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.False(t, errors.Is(err, ErrNoResultsAvailable))
}

func TestAppError_StatusCode(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{ErrInvalidInput, http.StatusBadRequest},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrNotFound, http.StatusNotFound},
		{ErrConflict, http.StatusConflict},
		{ErrBackendUnavailable, http.StatusServiceUnavailable},
		{ErrNoResultsAvailable, http.StatusServiceUnavailable},
		{Internal("boom", nil), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.err.Code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.StatusCode())
		})
	}
}

func TestWithCause_DoesNotMutateSentinel(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := ErrNoResultsAvailable.WithCause(cause)

	assert.Nil(t, ErrNoResultsAvailable.Cause)
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrNoResultsAvailable)
}

func TestFrom(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", NotFound("recipe"))
	assert.Equal(t, CodeNotFound, From(wrapped).Code)

	plain := errors.New("unexpected")
	got := From(plain)
	assert.Equal(t, CodeInternal, got.Code)
	assert.ErrorIs(t, got, plain)
}
