package service

import "errors"

var (
	// ErrInvalidCredentials is returned for an unknown email or a wrong password
	// alike, so callers cannot tell which one failed.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailTaken is returned when registering an address already in use.
	ErrEmailTaken = errors.New("email already exists")
	// ErrInvalidResetToken is returned for unknown, expired or used reset tokens.
	ErrInvalidResetToken = errors.New("reset token is invalid or expired")
	// ErrNotFound is returned for events that do not exist or belong to another user.
	ErrNotFound = errors.New("event not found")
)

// ValidationError describes a rejected form field. Nothing is persisted when
// one is returned.
type ValidationError struct {
	// Field is the form field the message belongs to.
	Field string
	// Message is shown next to the field.
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
