package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError(t *testing.T) {
	err := NewValidationError("aRoomName", "is required")

	assert.Equal(t, "validation failed for field aRoomName: is required", err.Error())
	assert.True(t, IsValidation(err))
	assert.False(t, IsPersistence(err))
	assert.Equal(t, "validation failed: bad input", NewValidationError("", "bad input").Error())
}

func TestPersistenceErrorWrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewPersistenceError("insert connection", cause)

	require.Error(t, err)
	assert.True(t, IsPersistence(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "insert connection")

	wrapped := fmt.Errorf("outer: %w", err)
	var pe *PersistenceError
	require.True(t, errors.As(wrapped, &pe))
	assert.Equal(t, "insert connection", pe.Op)
}

func TestPersistenceErrorNilStaysNil(t *testing.T) {
	assert.NoError(t, NewPersistenceError("noop", nil))
}

func TestPersistenceErrorNotDoubleWrapped(t *testing.T) {
	inner := NewPersistenceError("list mappings", errors.New("boom"))
	outer := NewPersistenceError("list mappings", inner)
	assert.Same(t, inner, outer)
}

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("department mapping", uint(7))

	assert.Equal(t, "department mapping with ID 7 not found", err.Error())
	assert.True(t, IsNotFound(err))
	assert.False(t, IsValidation(err))
}
