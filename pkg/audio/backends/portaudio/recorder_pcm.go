package portaudio

import (
	"context"
	"fmt"
	"io"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/gordonklaus/portaudio"
	"github.com/xaionaro-go/audiosender/pkg/audio/types"
)

type RecorderPCM struct {
	// DeviceName is the name of the input device to record from; empty
	// means the default input device.
	DeviceName string
}

var (
	_ types.RecorderPCM    = (*RecorderPCM)(nil)
	_ types.DeviceSelector = (*RecorderPCM)(nil)
)

func NewRecorderPCM() (*RecorderPCM, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	return &RecorderPCM{}, nil
}

func (*RecorderPCM) Close() error {
	return portaudio.Terminate()
}

func (r *RecorderPCM) Ping(
	ctx context.Context,
) error {
	info, err := r.device()
	if err != nil {
		return err
	}
	logger.Debugf(ctx, "device info: %#+v", info)

	if devices, err := portaudio.Devices(); err == nil {
		for idx, device := range devices {
			logger.Tracef(ctx, "devices[%d]: %#+v", idx, device)
		}
	}
	return nil
}

func (r *RecorderPCM) SelectDevice(name string) error {
	r.DeviceName = name
	_, err := r.device()
	return err
}

func (r *RecorderPCM) device() (*portaudio.DeviceInfo, error) {
	if r.DeviceName == "" {
		return portaudio.DefaultInputDevice()
	}
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("unable to get the list of devices: %w", err)
	}
	for _, device := range devices {
		if device.Name == r.DeviceName && device.MaxInputChannels > 0 {
			return device, nil
		}
	}
	return nil, fmt.Errorf("input device '%s' not found", r.DeviceName)
}

func (*RecorderPCM) PreferredPCMFormat() types.PCMFormat {
	return types.PCMFormatS16LE
}

func (r *RecorderPCM) RecordPCM(
	ctx context.Context,
	sampleRate types.SampleRate,
	channels types.Channel,
	format types.PCMFormat,
	writer io.Writer,
) (types.RecordStream, error) {
	device, err := r.device()
	if err != nil {
		return nil, err
	}

	var s *RecordPCMStream
	switch format {
	case types.PCMFormatU8:
		s, err = newRecordPCMStream[uint8](ctx, device, sampleRate, channels)
	case types.PCMFormatS16LE:
		s, err = newRecordPCMStream[int16](ctx, device, sampleRate, channels)
	case types.PCMFormatFloat32LE:
		s, err = newRecordPCMStream[float32](ctx, device, sampleRate, channels)
	case types.PCMFormatS32LE:
		s, err = newRecordPCMStream[int32](ctx, device, sampleRate, channels)
	default:
		return nil, fmt.Errorf("do not know how to start a stream for PCM format %s", format)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to open a stream: %w", err)
	}

	if err := s.init(ctx, writer); err != nil {
		s.PortAudioStream.Close()
		return nil, fmt.Errorf("unable to post-initialize the stream: %w", err)
	}
	return s, nil
}
