package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneKeepsIdentity(t *testing.T) {
	cloned := Clone(ErrNotFound, "student not found")

	assert.Equal(t, "student not found", cloned.Message)
	assert.True(t, errors.Is(cloned, ErrNotFound))
	assert.False(t, errors.Is(cloned, ErrConflict))
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	raw := fmt.Errorf("boom")
	appErr := FromError(raw)

	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.ErrorIs(t, appErr, raw)
}

func TestFromErrorPreservesTyped(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", Validation(nil, "month is required"))
	appErr := FromError(wrapped)

	assert.Equal(t, ErrValidation.Code, appErr.Code)
	assert.Equal(t, "month is required", appErr.Message)
}
