package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfwise/shelfwise-server/internal/errors"
)

func TestCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code errors.Code
		want int
	}{
		{errors.CodeValidation, http.StatusBadRequest},
		{errors.CodeNotFound, http.StatusNotFound},
		{errors.CodeAlreadyExists, http.StatusConflict},
		{errors.CodeConflict, http.StatusConflict},
		{errors.CodeUnauthorized, http.StatusUnauthorized},
		{errors.CodeInvalidCredentials, http.StatusUnauthorized},
		{errors.CodeMissingToken, http.StatusUnauthorized},
		{errors.CodeInvalidToken, http.StatusUnauthorized},
		{errors.CodeForbidden, http.StatusForbidden},
		{errors.CodeRateLimited, http.StatusTooManyRequests},
		{errors.CodeInternal, http.StatusInternalServerError},
		{errors.Code("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}

func TestError_IsMatchesByCode(t *testing.T) {
	err := errors.InvalidToken("token was superseded")

	assert.True(t, errors.Is(err, errors.ErrInvalidToken))
	assert.False(t, errors.Is(err, errors.ErrMissingToken))

	wrapped := fmt.Errorf("refresh: %w", err)
	assert.True(t, errors.Is(wrapped, errors.ErrInvalidToken))
}

func TestError_WithCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := errors.Internal("failed to save").WithCause(cause)

	assert.Equal(t, "failed to save: disk full", err.Error())
	assert.True(t, stderrors.Is(err, cause))

	var domainErr *errors.Error
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, errors.CodeInternal, domainErr.Code)
}

func TestError_WithDetailsDoesNotMutate(t *testing.T) {
	base := errors.Validation("invalid input")
	detailed := base.WithDetails(map[string]string{"isbn": "must be 13 digits"})

	assert.Nil(t, base.Details)
	assert.NotNil(t, detailed.Details)
	assert.Equal(t, base.Message, detailed.Message)
}
