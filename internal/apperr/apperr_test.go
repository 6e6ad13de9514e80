package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	err := New(KindConflict, "insufficient stock")
	assert.Equal(t, KindConflict, KindOf(err))
	assert.True(t, Is(err, KindConflict))
	assert.False(t, Is(err, KindNotFound))

	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, KindUnknown, KindOf(nil))
}

func TestKindSurvivesWrapping(t *testing.T) {
	inner := New(KindNotFound, "payment not found")
	wrapped := fmt.Errorf("processing webhook: %w", inner)

	assert.True(t, Is(wrapped, KindNotFound))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindProvider, "bkash token grant", cause)

	assert.True(t, Is(err, KindProvider))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "bkash token grant")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "validation", KindValidation.String())
	assert.Equal(t, "conflict", KindConflict.String())
	assert.Equal(t, "unknown", KindUnknown.String())
}
