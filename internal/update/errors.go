package update

import (
	"errors"
	"fmt"
)

// ErrConflictExceeded reports that the bounded conflict retry budget ran out.
// The published session has been rolled back to the pre-optimistic snapshot.
var ErrConflictExceeded = errors.New("session update conflict retries exhausted")

// ErrNoSession reports that Apply was called before a session was loaded.
var ErrNoSession = errors.New("no session loaded")

// TransportError wraps a network or storage failure surfaced while talking to
// the authority. Transport failures roll back and are never retried here; the
// caller decides user messaging.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("session update transport failure during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
