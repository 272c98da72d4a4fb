// Package device implements capture.Source on top of a sound device
// recorder (PulseAudio, PortAudio, ...).
//
// Recorder backends push samples into an io.Writer from their own thread;
// the source connects them to the pull side through an io.Pipe, which has no
// buffer: a backend write blocks until the consumer pulls, so the consumer's
// pace propagates back to the device.
package device

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/audiosender/pkg/audio"
	"github.com/xaionaro-go/audiosender/pkg/audio/resampler"
	"github.com/xaionaro-go/audiosender/pkg/audio/types"
	"github.com/xaionaro-go/audiosender/pkg/capture"
	"github.com/xaionaro-go/observability"
)

var streamErrorPollInterval = 100 * time.Millisecond

type Config struct {
	// Backend is the name of the recorder backend; empty means the first
	// working one.
	Backend string

	// Device is the backend-specific name of the input device; empty means
	// the default one.
	Device string

	Format    types.Format
	ChunkSize uint
}

type Source struct {
	*capture.ReaderSource
	Recorder *audio.Recorder
	Stream   audio.RecordStream

	pipeReader *io.PipeReader
	pipeWriter *io.PipeWriter
	cancelFn   context.CancelFunc
	waitGroup  sync.WaitGroup
	closeOnce  sync.Once
	closeErr   error
}

var _ capture.Source = (*Source)(nil)

// New opens the recorder backend described by cfg and starts recording.
func New(
	ctx context.Context,
	cfg Config,
) (*Source, error) {
	var (
		recorder *audio.Recorder
		err      error
	)
	if cfg.Backend == "" {
		recorder, err = audio.NewRecorderAuto(ctx)
	} else {
		recorder, err = audio.NewRecorderByName(ctx, cfg.Backend)
	}
	if err != nil {
		return nil, &capture.CaptureError{Err: err}
	}

	s, err := NewFromRecorder(ctx, recorder, cfg)
	if err != nil {
		recorder.Close()
		return nil, err
	}
	return s, nil
}

// NewFromRecorder starts recording with the given recorder. On success the
// source owns the recorder and closes it in Close.
func NewFromRecorder(
	ctx context.Context,
	recorder *audio.Recorder,
	cfg Config,
) (_ *Source, _err error) {
	logger.Debugf(ctx, "device.NewFromRecorder(%T, %#+v)", recorder.RecorderPCM, cfg)
	defer func() { logger.Debugf(ctx, "/device.NewFromRecorder(%T, %#+v): %v", recorder.RecorderPCM, cfg, _err) }()

	if cfg.Device != "" {
		selector, ok := recorder.RecorderPCM.(types.DeviceSelector)
		if !ok {
			return nil, &capture.CaptureError{Err: fmt.Errorf("recorder %T does not support selecting a device", recorder.RecorderPCM)}
		}
		if err := selector.SelectDevice(cfg.Device); err != nil {
			return nil, &capture.CaptureError{Err: fmt.Errorf("unable to select device '%s': %w", cfg.Device, err)}
		}
	}

	recordFormat := cfg.Format
	if preferred := recorder.PreferredPCMFormat(); preferred != types.PCMFormatUndefined {
		recordFormat.PCMFormat = preferred
	}

	pipeReader, pipeWriter := io.Pipe()
	var reader io.Reader = pipeReader
	if recordFormat != cfg.Format {
		logger.Debugf(ctx, "converting %s to %s", recordFormat, cfg.Format)
		r, err := resampler.NewResampler(recordFormat, pipeReader, cfg.Format)
		if err != nil {
			return nil, fmt.Errorf("unable to initialize a format converter: %w", err)
		}
		reader = r
	}

	readerSource, err := capture.NewReaderSource(reader, cfg.ChunkSize)
	if err != nil {
		return nil, err
	}
	readerSource.Closer = nil

	stream, err := recorder.RecordPCM(ctx, recordFormat.SampleRate, recordFormat.Channels, recordFormat.PCMFormat, pipeWriter)
	if err != nil {
		return nil, &capture.CaptureError{Err: fmt.Errorf("unable to start recording: %w", err)}
	}

	ctx, cancelFn := context.WithCancel(ctx)
	s := &Source{
		ReaderSource: readerSource,
		Recorder:     recorder,
		Stream:       stream,
		pipeReader:   pipeReader,
		pipeWriter:   pipeWriter,
		cancelFn:     cancelFn,
	}
	s.waitGroup.Add(1)
	observability.Go(ctx, func() {
		defer s.waitGroup.Done()
		s.watchStream(ctx)
	})
	return s, nil
}

// watchStream propagates a failure of the recording stream to the pull
// side, otherwise a consumer would wait for samples forever.
func (s *Source) watchStream(ctx context.Context) {
	t := time.NewTicker(streamErrorPollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		if err := s.Stream.Error(); err != nil {
			logger.Debugf(ctx, "the recording stream failed: %v", err)
			s.pipeWriter.CloseWithError(&capture.CaptureError{Err: fmt.Errorf("the recording stream failed: %w", err)})
			return
		}
	}
}

func (s *Source) Close() error {
	s.closeOnce.Do(func() {
		var mErr *multierror.Error
		s.cancelFn()
		s.ReaderSource.Close()
		// unblocks a backend write in progress
		s.pipeReader.CloseWithError(io.ErrClosedPipe)
		if err := s.Stream.Close(); err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("unable to close the recording stream: %w", err))
		}
		s.pipeWriter.Close()
		s.waitGroup.Wait()
		if err := s.Recorder.Close(); err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("unable to close the recorder: %w", err))
		}
		s.closeErr = mErr.ErrorOrNil()
	})
	return s.closeErr
}
