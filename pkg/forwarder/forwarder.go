// Package forwarder moves audio chunks from a capture source to a connection.
//
// The loop is strictly sequential: a chunk is pulled only after the previous
// one was completely accepted by the connection. There is no queue in
// between, so a slow network stalls the pulling and, through it, the
// capture.
package forwarder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/audiosender/pkg/capture"
)

type Reason uint

const (
	ReasonUndefined = Reason(iota)
	ReasonEndOfStream
	ReasonCancelled
	ReasonCaptureFailed
	ReasonTransportFailed
)

func (r Reason) String() string {
	switch r {
	case ReasonUndefined:
		return "<undefined>"
	case ReasonEndOfStream:
		return "end_of_stream"
	case ReasonCancelled:
		return "cancelled"
	case ReasonCaptureFailed:
		return "capture_failed"
	case ReasonTransportFailed:
		return "transport_failed"
	default:
		return fmt.Sprintf("<unknown_reason_%d>", uint(r))
	}
}

// Result describes how a run ended.
type Result struct {
	Reason Reason

	// Chunks is the amount of chunks completely written.
	Chunks uint64

	// Bytes is the amount of bytes written, including a partially written
	// chunk.
	Bytes uint64
}

type deadlineSetter interface {
	SetWriteDeadline(t time.Time) error
}

type Forwarder struct {
	Config
}

func New(opts ...Option) *Forwarder {
	return &Forwarder{
		Config: Options(opts).config(),
	}
}

// Run pulls chunks from src and writes each of them completely to conn,
// in order, until src ends, either side fails, or ctx is cancelled.
//
// Cancellation is observed between chunks only: a write in progress is
// completed, and a chunk pulled after the cancellation is not sent.
// Cancellation and the end of the stream are not errors, and neither is a
// failure of src observed after the cancellation. A failure of src
// is returned as a *capture.CaptureError, a failure of conn as a
// *TransportError.
//
// Run does not close src or conn.
func (f *Forwarder) Run(
	ctx context.Context,
	src capture.Source,
	conn io.Writer,
) (_ Result, _err error) {
	logger.Debugf(ctx, "Run")
	var result Result
	defer func() { logger.Debugf(ctx, "/Run: %#+v %v", result, _err) }()

	deadliner, _ := conn.(deadlineSetter)
	for {
		if ctx.Err() != nil {
			result.Reason = ReasonCancelled
			return result, nil
		}

		logger.Tracef(ctx, "NextChunk")
		chunk, err := src.NextChunk(ctx)
		logger.Tracef(ctx, "/NextChunk: %d %v", len(chunk), err)
		if err != nil {
			if errors.Is(err, capture.ErrEndOfStream) {
				result.Reason = ReasonEndOfStream
				return result, nil
			}
			if ctx.Err() != nil {
				// the capture was stopped along with us (e.g. the same Ctrl-C)
				logger.Debugf(ctx, "the capture source failed after the cancellation: %v", err)
				result.Reason = ReasonCancelled
				return result, nil
			}
			result.Reason = ReasonCaptureFailed
			if !capture.IsCaptureError(err) {
				err = &capture.CaptureError{Err: err}
			}
			return result, err
		}
		if len(chunk) == 0 {
			// a well-behaved source never does that, but an empty chunk
			// cannot be told apart from the end of the stream on the wire
			logger.Warnf(ctx, "the capture source returned an empty chunk, treating it as the end of the stream")
			result.Reason = ReasonEndOfStream
			return result, nil
		}

		if ctx.Err() != nil {
			logger.Debugf(ctx, "cancelled while waiting for chunk #%d, dropping it", result.Chunks)
			result.Reason = ReasonCancelled
			return result, nil
		}

		if deadliner != nil && f.WriteTimeout > 0 {
			if err := deadliner.SetWriteDeadline(time.Now().Add(f.WriteTimeout)); err != nil {
				result.Reason = ReasonTransportFailed
				return result, &TransportError{Op: OpWrite, ChunkIndex: result.Chunks, Err: fmt.Errorf("unable to set the write deadline: %w", err)}
			}
		}

		logger.Tracef(ctx, "WriteFull")
		n, err := WriteFull(conn, chunk, f.MaxStalledWrites)
		logger.Tracef(ctx, "/WriteFull: %d %v", n, err)
		result.Bytes += uint64(n)
		if err != nil {
			result.Reason = ReasonTransportFailed
			return result, &TransportError{Op: OpWrite, ChunkIndex: result.Chunks, Written: n, Err: err}
		}
		result.Chunks++
	}
}
