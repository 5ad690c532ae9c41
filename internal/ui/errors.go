package ui

import (
	"errors"
	"fmt"

	"github.com/cdstail/cdstail/internal/api"
)

// ErrorType defines the category of error for proper handling
type ErrorType int

const (
	ErrorTypeUserCancelled ErrorType = iota // Ctrl+C, 'q' - silent exit
	ErrorTypeValidation                     // Bad arguments or selectors
	ErrorTypeAPI                            // Network/API
	ErrorTypeAuth                           // Missing or rejected session
	ErrorTypeConfiguration                  // Config issues
	ErrorTypeInternal                       // Unexpected
)

// UIError carries how an error raised inside a bubbletea model should be
// presented once cobra gets it back.
type UIError struct {
	Err           error
	Type          ErrorType
	SuppressUsage bool // Don't show Cobra usage message
	SilentExit    bool // Already rendered in the UI, or should be silent
}

func (e *UIError) Error() string {
	return e.Err.Error()
}

func (e *UIError) Unwrap() error {
	return e.Err
}

func NewUserCancelledError() *UIError {
	return &UIError{
		Err:           fmt.Errorf("cancelled by user"),
		Type:          ErrorTypeUserCancelled,
		SuppressUsage: true,
		SilentExit:    true,
	}
}

func NewValidationError(err error) *UIError {
	return &UIError{Err: err, Type: ErrorTypeValidation, SuppressUsage: true}
}

// NewAPIError classifies err, turning a rejected session into an auth error
func NewAPIError(err error) *UIError {
	if errors.Is(err, api.ErrUnauthorized) {
		return NewAuthError(err)
	}
	return &UIError{Err: err, Type: ErrorTypeAPI, SuppressUsage: true}
}

func NewAuthError(err error) *UIError {
	return &UIError{Err: err, Type: ErrorTypeAuth, SuppressUsage: true}
}

func NewConfigurationError(err error) *UIError {
	return &UIError{Err: err, Type: ErrorTypeConfiguration, SuppressUsage: true}
}

func NewInternalError(err error) *UIError {
	return &UIError{Err: err, Type: ErrorTypeInternal, SuppressUsage: true}
}

// IsUserCancelled reports whether err is (or wraps) a user cancellation
func IsUserCancelled(err error) bool {
	var uiErr *UIError
	return errors.As(err, &uiErr) && uiErr.Type == ErrorTypeUserCancelled
}
