// Package capture defines the pull-based contract between whatever produces
// raw PCM audio (a helper process, a sound device) and the code forwarding it.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Chunk is a block of raw interleaved PCM bytes. Its position in the stream
// is its only identity.
type Chunk []byte

// ErrEndOfStream is returned by Source.NextChunk when the producer has
// nothing more to give. It is not a failure.
var ErrEndOfStream = io.EOF

// Source yields audio chunks on demand.
//
// NextChunk blocks until the next chunk is available; that wait is what
// paces the consumer to the device's production rate. A returned chunk is
// either full-sized or, only right before ErrEndOfStream, shorter; it is
// never empty. The returned slice may be reused by the next NextChunk call.
// Any failure of the underlying device or process is reported as a
// *CaptureError and is terminal.
//
// The context is used for logging; NextChunk is not interrupted by its
// cancellation.
type Source interface {
	io.Closer
	NextChunk(ctx context.Context) (Chunk, error)
}

// CaptureError means the capture device or process became unavailable.
type CaptureError struct {
	Err error
}

var _ error = (*CaptureError)(nil)

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture failed: %v", e.Err)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// IsCaptureError reports whether err is or wraps a *CaptureError.
func IsCaptureError(err error) bool {
	var captureErr *CaptureError
	return errors.As(err, &captureErr)
}
