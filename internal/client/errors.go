package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed call.
type Kind int

const (
	// KindNetwork means no response arrived (DNS, refused connection, timeout).
	KindNetwork Kind = iota + 1
	// KindClient is a 4xx answer.
	KindClient
	// KindServer is a 5xx answer.
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindClient:
		return "client"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// Error is returned by every Client method that fails.
// Code and Message come from the server's error body when there is one.
type Error struct {
	Kind    Kind
	Status  int
	Code    string
	Message string
	Field   string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindNetwork:
		return fmt.Sprintf("client: no response from server: %v", e.Err)
	case e.Message != "":
		return fmt.Sprintf("client: %d %s: %s", e.Status, e.Code, e.Message)
	default:
		return fmt.Sprintf("client: unexpected status %d", e.Status)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func statusIs(err error, status int) bool {
	var e *Error
	return errors.As(err, &e) && e.Status == status
}

func IsUnauthorized(err error) bool { return statusIs(err, http.StatusUnauthorized) }
func IsForbidden(err error) bool    { return statusIs(err, http.StatusForbidden) }
func IsNotFound(err error) bool     { return statusIs(err, http.StatusNotFound) }
func IsConflict(err error) bool     { return statusIs(err, http.StatusConflict) }
func IsValidation(err error) bool   { return statusIs(err, http.StatusBadRequest) }

// IsNetwork reports whether the request never got an answer.
func IsNetwork(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindNetwork
}

// kindFor maps a status code to a Kind.
func kindFor(status int) Kind {
	if status >= 500 {
		return KindServer
	}
	return KindClient
}
