package services

import "errors"

var (
	// ErrEmailTaken is returned when registering with an email that
	// already belongs to an account (case-insensitive match).
	ErrEmailTaken = errors.New("a user with this email already exists")

	// ErrInvalidCredentials covers both an unknown email and a wrong
	// password so that login failures never confirm account existence.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrUserNotFound is returned when a token's subject no longer
	// maps to a stored account.
	ErrUserNotFound = errors.New("user not found")

	// ErrTaskNotFound covers both a nonexistent task id and a task
	// owned by someone else; callers cannot tell the two apart.
	ErrTaskNotFound = errors.New("task not found")
)

// ValidationError reports a rejected input with a client-facing message.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func validationErr(msg string) error { return &ValidationError{Message: msg} }
