package api

import (
	"errors"
	"fmt"
)

// Code categorizes client-visible failures (the taxonomy every caller
// switches on).
type Code string

const (
	// CodeConnectivity: no response reached the client. Terminal for the
	// operation; never retried automatically.
	CodeConnectivity Code = "CONNECTIVITY_FAILURE"

	// CodeUnauthenticated: no valid identity is present. The caller must
	// send the user to login.
	CodeUnauthenticated Code = "UNAUTHENTICATED"

	// CodeSessionExpired: the identity was invalidated mid-session by a
	// 401 on a non-login call. Same redirect as Unauthenticated, different
	// message.
	CodeSessionExpired Code = "SESSION_EXPIRED"

	// CodeInvalidCredentials: 401 on the login call itself. A caller-level
	// error, not a session event.
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"

	// CodeRemoteRejected: the server answered with a failure status other
	// than 401/404. The message is surfaced verbatim.
	CodeRemoteRejected Code = "REMOTE_REJECTED"
)

// Error is a classified call failure.
type Error struct {
	Code    Code
	Status  int    // HTTP status, 0 when no response arrived
	Message string // human-readable; for RemoteRejected, the server's words
	Err     error  // underlying cause, optional
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewConnectivityError wraps a transport-level failure.
func NewConnectivityError(cause error) *Error {
	return &Error{
		Code:    CodeConnectivity,
		Message: "server unreachable - check your connection and that the server is running",
		Err:     cause,
	}
}

// NewUnauthenticatedError reports a missing or expired local identity.
func NewUnauthenticatedError() *Error {
	return &Error{
		Code:    CodeUnauthenticated,
		Message: "not signed in",
	}
}

func newSessionExpiredError() *Error {
	return &Error{
		Code:    CodeSessionExpired,
		Status:  401,
		Message: "session expired - sign in again",
	}
}

// codeIs reports whether err is an *Error carrying the given code.
// Uses errors.As to handle wrapped errors.
func codeIs(err error, code Code) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}

// IsConnectivity reports a connectivity-class failure.
func IsConnectivity(err error) bool { return codeIs(err, CodeConnectivity) }

// IsSessionExpired reports a mid-session 401 teardown.
func IsSessionExpired(err error) bool { return codeIs(err, CodeSessionExpired) }

// IsUnauthenticated reports a missing local identity.
func IsUnauthenticated(err error) bool { return codeIs(err, CodeUnauthenticated) }

// IsInvalidCredentials reports a rejected login.
func IsInvalidCredentials(err error) bool { return codeIs(err, CodeInvalidCredentials) }

// IsRemoteRejected reports a non-401/404 server failure.
func IsRemoteRejected(err error) bool { return codeIs(err, CodeRemoteRejected) }
