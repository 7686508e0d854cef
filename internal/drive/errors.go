package drive

import (
	"errors"
	"fmt"
)

// ErrAuthExpired is returned when the remote store rejects the credential.
// A 401-class response is the sole signal; callers must invalidate the
// stored credential and not retry with it.
var ErrAuthExpired = errors.New("drive: credential expired or revoked")

// ErrNoCredential is returned before any network I/O when no credential
// is available.
var ErrNoCredential = errors.New("drive: no credential")

// TransportError is any non-auth failure talking to the remote store.
// Status is 0 for network-level errors.
type TransportError struct {
	Status int
	Op     string
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("drive: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("drive: %s: unexpected status %d", e.Op, e.Status)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsAuthExpired reports whether err (or anything it wraps) is the
// credential-expiry signal.
func IsAuthExpired(err error) bool {
	return errors.Is(err, ErrAuthExpired)
}
