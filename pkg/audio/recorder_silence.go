package audio

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/audiosender/pkg/audio/registry"
	"github.com/xaionaro-go/observability"
)

const (
	SilenceBackendName = "silence"
	silencePeriod      = 20 * time.Millisecond
)

func init() {
	registry.RegisterRecorderFactory(SilenceBackendName, -1, RecorderPCMSilenceFactory{})
}

type RecorderPCMSilenceFactory struct{}

func (RecorderPCMSilenceFactory) NewRecorderPCM() (RecorderPCM, error) {
	return RecorderPCMSilence{}, nil
}

// RecorderPCMSilence is a capture backend without a device: it produces
// zero samples at the real-time rate. It is useful to check the link to
// a listener.
type RecorderPCMSilence struct{}

var _ RecorderPCM = RecorderPCMSilence{}

func (RecorderPCMSilence) Close() error {
	return nil
}

func (RecorderPCMSilence) Ping(context.Context) error {
	return nil
}

func (RecorderPCMSilence) PreferredPCMFormat() PCMFormat {
	return PCMFormatS16LE
}

func (RecorderPCMSilence) RecordPCM(
	ctx context.Context,
	sampleRate SampleRate,
	channels Channel,
	format PCMFormat,
	writer io.Writer,
) (RecordStream, error) {
	frameSize := format.Size() * uint(channels)
	if frameSize == 0 || sampleRate == 0 {
		return nil, fmt.Errorf("invalid format: %s/%dHz/%dch", format, sampleRate, channels)
	}
	framesPerPeriod := uint(silencePeriod.Seconds() * float64(sampleRate))
	if framesPerPeriod == 0 {
		framesPerPeriod = 1
	}

	ctx, cancelFn := context.WithCancel(ctx)
	s := &SilenceStream{
		cancelFn: cancelFn,
		buf:      make([]byte, framesPerPeriod*frameSize),
	}
	s.waitGroup.Add(1)
	observability.Go(ctx, func() {
		defer s.waitGroup.Done()
		err := s.loop(ctx, writer)
		logger.Debugf(ctx, "the silence loop ended: %v", err)
		s.locker.Lock()
		defer s.locker.Unlock()
		s.err = err
	})
	return s, nil
}

type SilenceStream struct {
	cancelFn  context.CancelFunc
	waitGroup sync.WaitGroup
	buf       []byte
	locker    sync.Mutex
	err       error
}

var _ RecordStream = (*SilenceStream)(nil)

func (s *SilenceStream) loop(
	ctx context.Context,
	writer io.Writer,
) error {
	t := time.NewTicker(silencePeriod)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
		n, err := writer.Write(s.buf)
		if err != nil {
			return fmt.Errorf("unable to write: %w", err)
		}
		if n != len(s.buf) {
			return fmt.Errorf("invalid write length: %d != %d", n, len(s.buf))
		}
	}
}

func (s *SilenceStream) Error() error {
	s.locker.Lock()
	defer s.locker.Unlock()
	return s.err
}

func (s *SilenceStream) Close() error {
	s.cancelFn()
	s.waitGroup.Wait()
	return nil
}
