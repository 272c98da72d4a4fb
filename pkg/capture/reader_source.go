package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/facebookincubator/go-belt/tool/logger"
)

const (
	DefaultChunkSize = 4096
)

// ReaderSource cuts an io.Reader into fixed-size chunks.
//
// The backing reader is expected to block while waiting for data. A short
// final chunk is delivered as-is (neither padded nor dropped).
type ReaderSource struct {
	Reader io.Reader

	// Closer, if set, is called by Close to release the reader.
	Closer io.Closer

	buffer      []byte
	terminalErr error
	chunks      atomic.Uint64
	bytes       atomic.Uint64
	closeOnce   sync.Once
	closeErr    error
}

var _ Source = (*ReaderSource)(nil)

func NewReaderSource(
	reader io.Reader,
	chunkSize uint,
) (*ReaderSource, error) {
	if chunkSize == 0 {
		return nil, fmt.Errorf("the chunk size must be positive")
	}
	s := &ReaderSource{
		Reader: reader,
		buffer: make([]byte, chunkSize),
	}
	if closer, ok := reader.(io.Closer); ok {
		s.Closer = closer
	}
	return s, nil
}

func (s *ReaderSource) NextChunk(ctx context.Context) (Chunk, error) {
	if s.terminalErr != nil {
		return nil, s.terminalErr
	}

	n, err := io.ReadFull(s.Reader, s.buffer)
	logger.Tracef(ctx, "ReadFull: %d %v", n, err)
	switch {
	case err == nil:
	case errors.Is(err, io.ErrUnexpectedEOF):
		// the last chunk; the next call reports the end of the stream
		s.terminalErr = ErrEndOfStream
	case errors.Is(err, io.EOF):
		s.terminalErr = ErrEndOfStream
		return nil, s.terminalErr
	default:
		s.terminalErr = &CaptureError{Err: fmt.Errorf("unable to read: %w", err)}
		return nil, s.terminalErr
	}

	s.chunks.Add(1)
	s.bytes.Add(uint64(n))
	return s.buffer[:n], nil
}

// ChunkSize returns the size of a full chunk.
func (s *ReaderSource) ChunkSize() uint {
	return uint(len(s.buffer))
}

// Stats returns the amount of chunks and bytes pulled so far. It is safe
// to call concurrently with NextChunk.
func (s *ReaderSource) Stats() (chunks uint64, bytes uint64) {
	return s.chunks.Load(), s.bytes.Load()
}

func (s *ReaderSource) Close() error {
	s.closeOnce.Do(func() {
		if s.terminalErr == nil {
			s.terminalErr = &CaptureError{Err: io.ErrClosedPipe}
		}
		if s.Closer != nil {
			s.closeErr = s.Closer.Close()
		}
	})
	return s.closeErr
}
