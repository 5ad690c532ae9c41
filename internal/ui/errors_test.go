package ui

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cdstail/cdstail/internal/api"
)

func TestNewAPIError(t *testing.T) {
	t.Run("unauthorized becomes auth error", func(t *testing.T) {
		err := NewAPIError(fmt.Errorf("failed to load node run: %w", api.ErrUnauthorized))

		assert.Equal(t, ErrorTypeAuth, err.Type)
		assert.ErrorIs(t, err, api.ErrUnauthorized)
	})

	t.Run("other errors stay api errors", func(t *testing.T) {
		err := NewAPIError(errors.New("API error (500): boom"))

		assert.Equal(t, ErrorTypeAPI, err.Type)
		assert.True(t, err.SuppressUsage)
		assert.False(t, err.SilentExit)
	})
}

func TestIsUserCancelled(t *testing.T) {
	assert.True(t, IsUserCancelled(NewUserCancelledError()))
	assert.True(t, IsUserCancelled(fmt.Errorf("step: %w", NewUserCancelledError())))
	assert.False(t, IsUserCancelled(NewValidationError(errors.New("bad"))))
	assert.False(t, IsUserCancelled(errors.New("plain")))
}
