package audio

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/audiosender/pkg/audio/registry"
)

type Recorder struct {
	RecorderPCM
}

func NewRecorder(recorderPCM RecorderPCM) *Recorder {
	return &Recorder{
		RecorderPCM: recorderPCM,
	}
}

var (
	lastSuccessfulRecorderFactory       registry.RecorderPCMFactory
	lastSuccessfulRecorderFactoryLocker sync.Mutex
)

func getLastSuccessfulRecorderFactory() registry.RecorderPCMFactory {
	lastSuccessfulRecorderFactoryLocker.Lock()
	defer lastSuccessfulRecorderFactoryLocker.Unlock()
	return lastSuccessfulRecorderFactory
}

// NewRecorderByName initializes the recorder backend registered as the given
// name and makes sure it is able to reach a capture device.
func NewRecorderByName(
	ctx context.Context,
	name string,
) (*Recorder, error) {
	factory, err := registry.RecorderFactoryByName(name)
	if err != nil {
		return nil, err
	}
	recorder, err := newRecorderFromFactory(ctx, factory)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize the recorder backend '%s': %w", name, err)
	}
	return recorder, nil
}

// NewRecorderAuto tries the registered backends, the highest priority first,
// and returns the first one that works.
func NewRecorderAuto(
	ctx context.Context,
) (*Recorder, error) {
	factory := getLastSuccessfulRecorderFactory()
	if factory != nil {
		recorder, err := newRecorderFromFactory(ctx, factory)
		if err == nil {
			return recorder, nil
		}
		logger.Debugf(ctx, "the previously successful recorder factory %T does not work anymore: %v", factory, err)
	}

	var mErr *multierror.Error
	for _, factory := range registry.RecorderFactories() {
		recorder, err := newRecorderFromFactory(ctx, factory)
		if err != nil {
			mErr = multierror.Append(mErr, err)
			continue
		}

		lastSuccessfulRecorderFactoryLocker.Lock()
		defer lastSuccessfulRecorderFactoryLocker.Unlock()
		lastSuccessfulRecorderFactory = factory
		return recorder, nil
	}

	if mErr == nil {
		return nil, fmt.Errorf("no recorder backends are compiled in")
	}
	return nil, fmt.Errorf("was unable to initialize any PCM recorder: %w", mErr.ErrorOrNil())
}

func newRecorderFromFactory(
	ctx context.Context,
	factory registry.RecorderPCMFactory,
) (*Recorder, error) {
	recorder, err := factory.NewRecorderPCM()
	logger.Debugf(ctx, "initializing recorder %T result is %v", recorder, err)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize %T: %w", factory, err)
	}

	err = recorder.Ping(ctx)
	logger.Debugf(ctx, "pinging PCM recorder %T result is %v", recorder, err)
	if err != nil {
		recorder.Close()
		return nil, fmt.Errorf("unable to ping %T: %w", recorder, err)
	}

	return NewRecorder(recorder), nil
}

func (a *Recorder) RecordPCM(
	ctx context.Context,
	sampleRate SampleRate,
	channels Channel,
	pcmFormat PCMFormat,
	pcmWriter io.Writer,
) (RecordStream, error) {
	return a.RecorderPCM.RecordPCM(
		ctx,
		sampleRate,
		channels,
		pcmFormat,
		pcmWriter,
	)
}
