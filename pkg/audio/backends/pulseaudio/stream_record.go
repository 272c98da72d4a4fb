package pulseaudio

import (
	"fmt"
	"sync"

	"github.com/jfreymuth/pulse"
	"github.com/xaionaro-go/audiosender/pkg/audio/types"
)

type RecordStream struct {
	PulseStream *pulse.RecordStream
	closeOnce   sync.Once
}

var _ types.RecordStream = (*RecordStream)(nil)

func newRecordStream(
	pulseStream *pulse.RecordStream,
) *RecordStream {
	return &RecordStream{
		PulseStream: pulseStream,
	}
}

func (stream *RecordStream) Error() error {
	return stream.PulseStream.Error()
}

func (stream *RecordStream) Close() (err error) {
	stream.closeOnce.Do(func() {
		defer func() {
			r := recover()
			if r != nil {
				err = fmt.Errorf("got a panic: %v", r)
			}
		}()
		stream.PulseStream.Stop()
		stream.PulseStream.Close()
	})
	return
}
