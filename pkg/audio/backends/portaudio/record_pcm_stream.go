package portaudio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
	"unsafe"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/gordonklaus/portaudio"
	"github.com/xaionaro-go/audiosender/pkg/audio/types"
	"github.com/xaionaro-go/observability"
)

const (
	RecordBufferSize = time.Millisecond * 20
)

type RecordPCMStream struct {
	PortAudioStream *portaudio.Stream
	Buffer          []byte
	Writer          io.Writer
	CancelFunc      context.CancelFunc
	WaitGroup       sync.WaitGroup

	locker    sync.Mutex
	err       error
	closeOnce sync.Once
}

var _ types.RecordStream = (*RecordPCMStream)(nil)

func newRecordPCMStream[T any](
	ctx context.Context,
	device *portaudio.DeviceInfo,
	sampleRate types.SampleRate,
	channels types.Channel,
) (*RecordPCMStream, error) {
	framesPerBuffer := int(RecordBufferSize.Seconds() * float64(sampleRate))
	if framesPerBuffer == 0 {
		framesPerBuffer = 1
	}

	var sample T
	buf := make([]T, framesPerBuffer*int(channels))
	logger.Debugf(ctx, "newRecordPCMStream: %T, %d, %d %s(%d)", sample, sampleRate, channels, RecordBufferSize, framesPerBuffer)
	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: int(channels),
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      float64(sampleRate),
		FramesPerBuffer: framesPerBuffer,
	}, buf)
	if err != nil {
		return nil, err
	}

	// the writer receives the very same memory portaudio fills in
	ptr := unsafe.SliceData(buf)
	bytesBuf := unsafe.Slice((*byte)(unsafe.Pointer(ptr)), len(buf)*int(unsafe.Sizeof(sample)))

	logger.Debugf(ctx, "input bytes buffer size: %d", len(bytesBuf))
	return &RecordPCMStream{
		PortAudioStream: stream,
		Buffer:          bytesBuf,
	}, nil
}

func (s *RecordPCMStream) init(
	ctx context.Context,
	writer io.Writer,
) error {
	s.Writer = writer
	ctx, s.CancelFunc = context.WithCancel(ctx)

	err := s.PortAudioStream.Start()
	if err != nil {
		s.CancelFunc()
		return fmt.Errorf("unable to start the stream: %w", err)
	}

	s.WaitGroup.Add(1)
	observability.Go(ctx, func() {
		defer s.WaitGroup.Done()
		defer s.CancelFunc()
		err := s.loop(ctx)
		s.locker.Lock()
		defer s.locker.Unlock()
		s.err = err
	})
	return nil
}

func (s *RecordPCMStream) loop(
	ctx context.Context,
) (_ret error) {
	logger.Debugf(ctx, "loop")
	defer func() { logger.Debugf(ctx, "/loop: %v", _ret) }()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		logger.Tracef(ctx, "Read")
		err := s.PortAudioStream.Read()
		logger.Tracef(ctx, "/Read: %v", err)
		switch {
		case err == nil:
		case errors.Is(err, portaudio.InputOverflowed):
			logger.Warnf(ctx, "input overflowed, some samples are lost")
		default:
			return fmt.Errorf("unable to read: %w", err)
		}

		logger.Tracef(ctx, "Write")
		n, err := s.Writer.Write(s.Buffer)
		logger.Tracef(ctx, "/Write: %d %v", n, err)
		if err != nil {
			return fmt.Errorf("unable to write: %w", err)
		}
		if n != len(s.Buffer) {
			return fmt.Errorf("invalid write length: %d != %d", n, len(s.Buffer))
		}
	}
}

func (s *RecordPCMStream) Error() error {
	s.locker.Lock()
	defer s.locker.Unlock()
	return s.err
}

func (s *RecordPCMStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.CancelFunc()
		err = s.PortAudioStream.Abort()
		s.WaitGroup.Wait()
		if closeErr := s.PortAudioStream.Close(); err == nil {
			err = closeErr
		}
	})
	return err
}
