package api

import (
	"errors"
	"fmt"
)

// ErrUnauthenticated is returned, without touching the network, when a
// protected endpoint is called and no session credential is available.
var ErrUnauthenticated = errors.New("You are not logged in.")

// ErrProfileMissing is a successful profile reply without a profile.
var ErrProfileMissing = errors.New("Profile not found.")

// HTTPError is a non-success response from the backend.
type HTTPError struct {
	Status int
	// Detail is the server's detail field, or "Error {status}" when absent.
	Detail string
}

func (e *HTTPError) Error() string {
	return e.Detail
}

// TransportError wraps a failure to reach the backend or read its reply.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func fallbackDetail(status int) string {
	return fmt.Sprintf("Error %d", status)
}
