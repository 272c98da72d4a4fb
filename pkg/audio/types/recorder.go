package types

import (
	"context"
	"io"
)

type RecorderPCM interface {
	io.Closer
	Ping(context.Context) error

	// PreferredPCMFormat returns the sample format the backend is able to
	// deliver without a conversion on our side.
	PreferredPCMFormat() PCMFormat

	RecordPCM(
		ctx context.Context,
		sampleRate SampleRate,
		channels Channel,
		format PCMFormat,
		writer io.Writer,
	) (RecordStream, error)
}

// DeviceSelector is implemented by recorders that are able to record from
// a device other than the default one.
type DeviceSelector interface {
	SelectDevice(name string) error
}
