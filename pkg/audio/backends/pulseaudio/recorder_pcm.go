package pulseaudio

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
	"github.com/xaionaro-go/audiosender/pkg/audio/types"
)

const (
	RecordLatency = 20 * time.Millisecond
)

type RecorderPCM struct {
	PulseClient *pulse.Client

	// SourceName is the PulseAudio source to record from; empty means the
	// default source. A "<sink>.monitor" source records what is being played.
	SourceName string
}

var (
	_ types.RecorderPCM    = (*RecorderPCM)(nil)
	_ types.DeviceSelector = (*RecorderPCM)(nil)
)

func NewRecorderPCM() (*RecorderPCM, error) {
	c, err := pulse.NewClient(pulse.ClientApplicationName("audiosender"))
	if err != nil {
		return nil, fmt.Errorf("unable to open a client to Pulse: %w", err)
	}
	return &RecorderPCM{
		PulseClient: c,
	}, nil
}

func (r *RecorderPCM) Close() error {
	r.PulseClient.Close()
	return nil
}

func (r *RecorderPCM) Ping(ctx context.Context) error {
	source, err := r.source()
	if err != nil {
		return err
	}
	logger.Debugf(ctx, "pulse source: %s (%s)", source.ID(), source.Name())
	return nil
}

func (r *RecorderPCM) SelectDevice(name string) error {
	r.SourceName = name
	_, err := r.source()
	return err
}

func (r *RecorderPCM) source() (*pulse.Source, error) {
	if r.SourceName == "" {
		source, err := r.PulseClient.DefaultSource()
		if err != nil {
			return nil, fmt.Errorf("unable to get the default source: %w", err)
		}
		return source, nil
	}
	source, err := r.PulseClient.SourceByID(r.SourceName)
	if err != nil {
		return nil, fmt.Errorf("unable to find source '%s': %w", r.SourceName, err)
	}
	return source, nil
}

func (*RecorderPCM) PreferredPCMFormat() types.PCMFormat {
	return types.PCMFormatS16LE
}

func (r *RecorderPCM) RecordPCM(
	ctx context.Context,
	sampleRate types.SampleRate,
	channels types.Channel,
	format types.PCMFormat,
	rawWriter io.Writer,
) (_ types.RecordStream, _err error) {
	logger.Debugf(ctx, "RecordPCM(%d, %d, %s)", sampleRate, channels, format)
	defer func() { logger.Debugf(ctx, "/RecordPCM(%d, %d, %s): %v", sampleRate, channels, format, _err) }()

	writer, err := newPulseWriter(format, rawWriter)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize a writer for Pulse: %w", err)
	}

	var chanMap proto.ChannelMap
	switch channels {
	case 1:
		chanMap = proto.ChannelMap{proto.ChannelMono}
	case 2:
		chanMap = proto.ChannelMap{proto.ChannelLeft, proto.ChannelRight}
	default:
		return nil, fmt.Errorf("do not know how to configure %d channels", channels)
	}

	source, err := r.source()
	if err != nil {
		return nil, err
	}

	stream, err := r.PulseClient.NewRecord(
		writer,
		pulse.RecordSource(source),
		pulse.RecordSampleRate(int(sampleRate)),
		pulse.RecordChannels(chanMap),
		pulse.RecordLatency(RecordLatency.Seconds()),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize a recording: %w", err)
	}

	stream.Start()
	if stream.Error() != nil {
		stream.Close()
		return nil, fmt.Errorf("an error occurred during recording: %w", stream.Error())
	}

	return newRecordStream(stream), nil
}

type pulseWriter struct {
	pulseFormat byte
	io.Writer
}

func newPulseWriter(pcmFormat types.PCMFormat, writer io.Writer) (*pulseWriter, error) {
	var pulseFormat byte
	switch pcmFormat {
	case types.PCMFormatU8:
		pulseFormat = proto.FormatUint8
	case types.PCMFormatS16LE:
		pulseFormat = proto.FormatInt16LE
	case types.PCMFormatS16BE:
		pulseFormat = proto.FormatInt16BE
	case types.PCMFormatS32LE:
		pulseFormat = proto.FormatInt32LE
	case types.PCMFormatS32BE:
		pulseFormat = proto.FormatInt32BE
	case types.PCMFormatFloat32LE:
		pulseFormat = proto.FormatFloat32LE
	case types.PCMFormatFloat32BE:
		pulseFormat = proto.FormatFloat32BE
	default:
		return nil, fmt.Errorf("received an unexpected format: %v", pcmFormat)
	}
	return &pulseWriter{
		pulseFormat: pulseFormat,
		Writer:      writer,
	}, nil
}

var _ pulse.Writer = (*pulseWriter)(nil)

func (w pulseWriter) Format() byte {
	return w.pulseFormat
}
