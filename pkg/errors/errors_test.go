package errors

import (
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(cause, ErrInternal)

	require.NotNil(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrInternal.Code, err.Code)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrInternal))
}

func TestSentinelPredicates(t *testing.T) {
	assert.True(t, IsNotFound(ErrNotFound.WithDetail("rule_id", "abc")))
	assert.True(t, IsValidation(ErrValidation.WithDetail("message", "bad field")))
	assert.True(t, IsConflict(ErrConflict))

	assert.False(t, IsNotFound(stderrors.New("plain")))
	assert.False(t, IsValidation(ErrNotFound))
}

func TestWithDetailDoesNotMutateSentinel(t *testing.T) {
	derived := ErrValidation.WithDetail("message", "specific problem")

	assert.Equal(t, "specific problem", derived.Details["message"])
	assert.Empty(t, ErrValidation.Details)
}

func TestRetryability(t *testing.T) {
	assert.False(t, ErrValidation.IsRetryable())
	assert.False(t, ErrNotFound.IsRetryable())
	assert.True(t, ErrInternal.IsRetryable())
	assert.True(t, ErrServiceUnavailable.IsRetryable())

	assert.True(t, ErrValidation.IsFatal())
	assert.False(t, ErrInternal.IsFatal())

	forced := ErrInternal.AsFatal()
	assert.True(t, forced.IsFatal())
	assert.False(t, forced.IsRetryable())
}

func TestToHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, ToHTTPStatus(ErrNotFound))
	assert.Equal(t, http.StatusBadRequest, ToHTTPStatus(ErrValidation))
	assert.Equal(t, http.StatusInternalServerError, ToHTTPStatus(stderrors.New("plain")))

	wrapped := Wrap(stderrors.New("boom"), ErrServiceUnavailable)
	assert.Equal(t, http.StatusServiceUnavailable, ToHTTPStatus(wrapped))
}

func TestToErrorResponse(t *testing.T) {
	response := ToErrorResponse(ErrValidation.WithDetail("message", "tag must not be empty"))

	assert.Equal(t, "VALIDATION_ERROR", response["error_code"])
	details, ok := response["details"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "tag must not be empty", details["message"])
}

func TestToErrorResponse_PlainError(t *testing.T) {
	response := ToErrorResponse(stderrors.New("boom"))
	assert.Equal(t, "INTERNAL_ERROR", response["error_code"])
}
