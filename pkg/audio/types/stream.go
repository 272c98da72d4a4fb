package types

import (
	"io"
)

type Stream interface {
	io.Closer
}

type RecordStream interface {
	Stream

	// Error returns the error the stream was terminated with, if any.
	Error() error
}
