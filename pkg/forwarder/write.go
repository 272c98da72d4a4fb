package forwarder

import (
	"io"
)

const (
	DefaultMaxStalledWrites = 16
)

// WriteFull writes the whole b to w, issuing more Write calls while w
// accepts only a part of it. A writer that repeatedly accepts nothing
// without reporting an error fails with io.ErrShortWrite.
func WriteFull(w io.Writer, b []byte, maxStalledWrites uint) (int, error) {
	var (
		written int
		stalled uint
	)
	for written < len(b) {
		n, err := w.Write(b[written:])
		if n < 0 || n > len(b)-written {
			return written, io.ErrShortWrite
		}
		written += n
		if err != nil {
			return written, err
		}
		if n > 0 {
			stalled = 0
			continue
		}
		stalled++
		if stalled >= maxStalledWrites {
			return written, io.ErrShortWrite
		}
	}
	return written, nil
}
