package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrLocalIO is returned when a local file cannot be opened, read or written,
	// or when an upload source is empty. Not retryable within the call.
	ErrLocalIO = errors.New("storage: local io error")
	// ErrUploadRejected is returned when a connected endpoint or the chain refused
	// to commit the upload. The caller may retry the whole operation.
	ErrUploadRejected = errors.New("storage: upload rejected")
	// ErrIntegrityVerificationFailed is returned when downloaded bytes do not hash
	// back to the requested root. Unverified bytes are never returned.
	ErrIntegrityVerificationFailed = errors.New("storage: integrity verification failed")
	// ErrNotFound is returned when the root is unknown to the network.
	ErrNotFound = errors.New("storage: not found")
	// ErrMalformedPayload is returned when downloaded content is not the
	// expected encoding (e.g. not JSON).
	ErrMalformedPayload = errors.New("storage: malformed payload")
	// ErrInvalidArgument is returned when a required caller argument is missing.
	ErrInvalidArgument = errors.New("storage: invalid argument")
	// ErrInvalidRoot is returned when a root identifier cannot be parsed.
	ErrInvalidRoot = errors.New("storage: invalid root")
)

// IsNotFound reports whether err means the requested content does not exist.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// OpError records the operation, the phase it failed in and the endpoint in
// use at that moment.
type OpError struct {
	Op       string
	Phase    Phase
	Endpoint string
	Err      error
}

func (e *OpError) Error() string {
	if e.Endpoint == "" {
		return fmt.Sprintf("storage: %s failed during %s: %v", e.Op, e.Phase, e.Err)
	}
	return fmt.Sprintf("storage: %s via %s failed during %s: %v", e.Op, e.Endpoint, e.Phase, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }
