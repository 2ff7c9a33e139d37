package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	typed := Clone(ErrValidation, "userName is required")
	wrapped := fmt.Errorf("outer: %w", typed)

	got := FromError(wrapped)
	require.NotNil(t, got)
	assert.Equal(t, http.StatusBadRequest, got.Status)
	assert.Equal(t, "userName is required", got.Message)
	assert.Equal(t, "validation failed", ErrValidation.Message)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	cause := errors.New("connection refused")
	got := FromError(cause)
	require.NotNil(t, got)
	assert.Equal(t, http.StatusInternalServerError, got.Status)
	assert.Equal(t, "connection refused", got.Detail())
	assert.ErrorIs(t, got, cause)
	assert.Nil(t, FromError(nil))
}

func TestInternal(t *testing.T) {
	err := Internal(errors.New("boom"), "Failed to fetch declarations")
	assert.Equal(t, "Failed to fetch declarations: boom", err.Error())
	assert.Equal(t, ErrInternal.Code, err.Code)
	assert.Equal(t, "", ErrValidation.Detail())
}
