package forwarder

import (
	"errors"
	"fmt"
)

// TransportError means the connection to the listener failed: it could not
// be established, or a write to it did not complete.
type TransportError struct {
	Op string

	// ChunkIndex is the index of the chunk being written, if Op is "write".
	ChunkIndex uint64

	// Written is the amount of bytes of the chunk that were accepted before
	// the failure.
	Written int

	Err error
}

var _ error = (*TransportError)(nil)

func (e *TransportError) Error() string {
	if e.Op == OpWrite {
		return fmt.Sprintf("transport %s failed at chunk #%d (after %d bytes of it): %v", e.Op, e.ChunkIndex, e.Written, e.Err)
	}
	return fmt.Sprintf("transport %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

const (
	OpDial  = "dial"
	OpWrite = "write"
)

func IsTransportError(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}
