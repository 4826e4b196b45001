package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfWrappedError(t *testing.T) {
	base := NotFound("order %d not found", 7)
	wrapped := fmt.Errorf("cancel: %w", base)

	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindNotFound))
	assert.False(t, Is(wrapped, KindForbidden))
	assert.Equal(t, "order 7 not found", base.Error())
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("boom")))
	assert.False(t, Is(nil, KindNotFound))
}

func TestExternalKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := External(cause, "failed to store image")

	assert.Equal(t, "failed to store image", err.Error())
	assert.ErrorIs(t, err, cause)
}
