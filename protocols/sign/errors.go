package sign

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionSetupTimeout is returned when the parties did not all become ready.
	ErrSessionSetupTimeout = errors.New("sign: session setup timed out")
	// ErrInvalidSignature is returned when the produced signature does not verify against the tss public key.
	ErrInvalidSignature = errors.New("sign: invalid signature")
	// ErrMissingAuthentication is returned when no authentication signatures were provided.
	ErrMissingAuthentication = errors.New("sign: missing authentication signatures")
	ErrInvalidRequest        = errors.New("sign: invalid request")
)

// Error is returned by a session, and records the state in which it failed.
type Error struct {
	// State is the last state the session successfully reached.
	State State
	// Err is the underlying error
	Err error
}

func (e Error) Error() string {
	return fmt.Sprintf("sign: %s: %s", e.State, e.Err)
}

func (e Error) Unwrap() error {
	return e.Err
}
