// Package apperror defines the domain errors the service layer returns.
//
// Services never speak HTTP. They return one of these errors and the handler
// layer maps the sentinel found with errors.Is onto a status code.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// Machine-readable codes for the cases a client branches on.
const (
	CodeEmailAlreadyExists = "EMAIL_ALREADY_EXISTS"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
)

type AppError struct {
	Err     error  // sentinel, matched with errors.Is
	Message string // human-readable message, safe to show to the user
	Field   string // optional: input field that caused the error
	Code    string // optional: machine-readable code
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// EmailTaken is returned by signup when the email is already registered.
// It is a validation error (400) carrying a code, so clients can tell it apart
// from a malformed form.
func EmailTaken(email string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: fmt.Sprintf("email %s is already registered", email),
		Field:   "email",
		Code:    CodeEmailAlreadyExists,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized returns an AppError for a missing or rejected identity.
// HTTP handlers map this to 401 Unauthorized.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// InvalidCredentials is returned by login for an unknown email or a wrong password.
// Both cases share one message so the response does not reveal which emails exist.
func InvalidCredentials() *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: "invalid email or password",
		Code:    CodeInvalidCredentials,
	}
}
