package types

import (
	"fmt"
	"strings"
)

type SampleRate uint32

type Channel uint32

type PCMFormat uint

const (
	PCMFormatUndefined = PCMFormat(iota)
	PCMFormatU8
	PCMFormatS16LE
	PCMFormatS16BE
	PCMFormatS24LE
	PCMFormatS24BE
	PCMFormatS32LE
	PCMFormatS32BE
	PCMFormatS64LE
	PCMFormatS64BE
	PCMFormatFloat32LE
	PCMFormatFloat32BE
	PCMFormatFloat64LE
	PCMFormatFloat64BE
	endOfPCMFormat
)

// Size returns the size of a single sample in bytes (of one channel).
func (f PCMFormat) Size() uint {
	switch f {
	case PCMFormatU8:
		return 1
	case PCMFormatS16LE, PCMFormatS16BE:
		return 2
	case PCMFormatS24LE, PCMFormatS24BE:
		return 3
	case PCMFormatS32LE, PCMFormatS32BE, PCMFormatFloat32LE, PCMFormatFloat32BE:
		return 4
	case PCMFormatS64LE, PCMFormatS64BE, PCMFormatFloat64LE, PCMFormatFloat64BE:
		return 8
	default:
		return 0
	}
}

func (f PCMFormat) String() string {
	switch f {
	case PCMFormatUndefined:
		return "<undefined>"
	case PCMFormatU8:
		return "u8"
	case PCMFormatS16LE:
		return "s16le"
	case PCMFormatS16BE:
		return "s16be"
	case PCMFormatS24LE:
		return "s24le"
	case PCMFormatS24BE:
		return "s24be"
	case PCMFormatS32LE:
		return "s32le"
	case PCMFormatS32BE:
		return "s32be"
	case PCMFormatS64LE:
		return "s64le"
	case PCMFormatS64BE:
		return "s64be"
	case PCMFormatFloat32LE:
		return "f32le"
	case PCMFormatFloat32BE:
		return "f32be"
	case PCMFormatFloat64LE:
		return "f64le"
	case PCMFormatFloat64BE:
		return "f64be"
	default:
		return fmt.Sprintf("<unknown_format_%d>", uint(f))
	}
}

// Set implements pflag.Value.
func (f *PCMFormat) Set(s string) error {
	s = strings.ToLower(strings.TrimSpace(s))
	for candidate := PCMFormatUndefined + 1; candidate < endOfPCMFormat; candidate++ {
		if candidate.String() == s {
			*f = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown PCM format '%s'", s)
}

// Type implements pflag.Value.
func (PCMFormat) Type() string {
	return "pcm-format"
}

// Format is the full description of an interleaved PCM stream.
type Format struct {
	SampleRate SampleRate
	Channels   Channel
	PCMFormat  PCMFormat
}

// FrameSize returns the size of one interleaved frame (one sample of every channel) in bytes.
func (f Format) FrameSize() uint {
	return f.PCMFormat.Size() * uint(f.Channels)
}

// BytesPerSecond returns the data rate of the stream.
func (f Format) BytesPerSecond() uint64 {
	return uint64(f.FrameSize()) * uint64(f.SampleRate)
}

func (f Format) String() string {
	return fmt.Sprintf("%s/%dHz/%dch", f.PCMFormat, f.SampleRate, f.Channels)
}
