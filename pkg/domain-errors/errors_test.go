package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	base := New(CodeNotFound, "period not loaded")
	wrapped := Wrap(base, CodeUnavailable, "load registrations")

	assert.True(t, HasCode(base, CodeNotFound))
	assert.True(t, HasCode(wrapped, CodeUnavailable))
	assert.True(t, HasCode(wrapped, CodeNotFound))
	assert.True(t, HasCode(fmt.Errorf("outer: %w", wrapped), CodeNotFound))
	assert.False(t, HasCode(errors.New("plain"), CodeNotFound))
	assert.False(t, HasCode(nil, CodeNotFound))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeInvalidInput, CodeOf(New(CodeInvalidInput, "bad")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
	assert.Equal(t, CodeDataQuality, CodeOf(fmt.Errorf("ctx: %w", New(CodeDataQuality, "dup"))))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, CodeInternal, "nothing"))
}

func TestErrorMessage(t *testing.T) {
	err := Wrap(errors.New("connection refused"), CodeUnavailable, "load rules")
	assert.Equal(t, "load rules: connection refused", err.Error())
	assert.Equal(t, "x must be positive", Newf(CodeInvalidInput, "%s must be positive", "x").Error())
}
