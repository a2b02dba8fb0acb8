package banter

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the client and session engine.
var (
	// ErrAuthRequired means no bearer credential was available for a remote call.
	ErrAuthRequired = errors.New("authentication required")

	// ErrThreadNotFound is the soft not-found condition: callers degrade to an
	// empty state instead of surfacing it.
	ErrThreadNotFound = errors.New("thread not found")

	// ErrEmptySend is returned when a send carries neither text nor attachment.
	ErrEmptySend = errors.New("message text or attachment required")

	// ErrBusy is returned when an operation is rejected because a conflicting
	// one is already in flight.
	ErrBusy = errors.New("operation already in progress")
)

// APIError is a non-2xx response from the remote service.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote error %d", e.Status)
	}
	return fmt.Sprintf("remote error %d: %s", e.Status, e.Message)
}

// ThreadCreationError means the remote service did not mint a thread id.
type ThreadCreationError struct {
	Err error
}

func (e *ThreadCreationError) Error() string {
	if e.Err == nil {
		return "thread creation failed"
	}
	return "thread creation failed: " + e.Err.Error()
}

func (e *ThreadCreationError) Unwrap() error { return e.Err }

// AttachmentRejectedError is a user-facing validation failure. It never
// reaches the network and is not logged as a bug.
type AttachmentRejectedError struct {
	Reason string
}

func (e *AttachmentRejectedError) Error() string { return "attachment rejected: " + e.Reason }

// AttachmentReadError means the underlying file read failed.
type AttachmentReadError struct {
	Err error
}

func (e *AttachmentReadError) Error() string { return "attachment read failed: " + e.Err.Error() }

func (e *AttachmentReadError) Unwrap() error { return e.Err }

// RemoteSendError wraps a failed /chat/send call. Always a hard failure: the
// optimistic user turn stays visible, only the assistant reply is missing.
type RemoteSendError struct {
	Err error
}

func (e *RemoteSendError) Error() string { return "send failed: " + e.Err.Error() }

func (e *RemoteSendError) Unwrap() error { return e.Err }

// IsSoft reports whether err is a condition that should degrade to an
// empty-but-valid state with no user-visible alert.
func IsSoft(err error) bool {
	return errors.Is(err, ErrThreadNotFound)
}
