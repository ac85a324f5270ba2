package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneKeepsIdentity(t *testing.T) {
	err := Clone(ErrCapacityFull, "course is full")
	assert.True(t, errors.Is(err, ErrCapacityFull))
	assert.False(t, errors.Is(err, ErrInvalidState))
	assert.Equal(t, http.StatusConflict, err.Status)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(fmt.Errorf("boom"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, "internal server error: boom", appErr.Error())

	wrapped := fmt.Errorf("outer: %w", Clone(ErrForbidden, "nope"))
	assert.Equal(t, "nope", FromError(wrapped).Message)
	assert.Nil(t, FromError(nil))
}
