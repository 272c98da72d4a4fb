package process

import (
	"fmt"
	"runtime"

	"github.com/xaionaro-go/audiosender/pkg/audio/types"
)

// Command is an external utility which writes raw PCM to its stdout.
type Command struct {
	Path string
	Args []string
}

func (c Command) String() string {
	return fmt.Sprintf("%s %v", c.Path, c.Args)
}

// DefaultFFmpegInput returns the ffmpeg input format and device used to
// capture audio on the current platform when nothing is configured.
func DefaultFFmpegInput() (inputFormat string, device string) {
	switch runtime.GOOS {
	case "linux":
		return "pulse", "default"
	case "darwin":
		return "avfoundation", ":0"
	case "windows":
		// dshow has no default device, it has to be named: "audio=<name>"
		return "dshow", ""
	default:
		return "alsa", "default"
	}
}

// FFmpegCommand builds an ffmpeg invocation that captures from the given
// input and writes raw interleaved PCM of the given format to stdout.
func FFmpegCommand(
	inputFormat string,
	device string,
	format types.Format,
) (Command, error) {
	defaultInputFormat, defaultDevice := DefaultFFmpegInput()
	if inputFormat == "" {
		inputFormat = defaultInputFormat
		if device == "" {
			device = defaultDevice
		}
	}
	if device == "" {
		return Command{}, fmt.Errorf("no capture device is specified for ffmpeg input format '%s'", inputFormat)
	}

	switch format.PCMFormat {
	case types.PCMFormatU8,
		types.PCMFormatS16LE, types.PCMFormatS16BE,
		types.PCMFormatS24LE, types.PCMFormatS24BE,
		types.PCMFormatS32LE, types.PCMFormatS32BE,
		types.PCMFormatFloat32LE, types.PCMFormatFloat32BE,
		types.PCMFormatFloat64LE, types.PCMFormatFloat64BE:
	default:
		return Command{}, fmt.Errorf("ffmpeg cannot output PCM format %s", format.PCMFormat)
	}
	if format.Channels == 0 || format.SampleRate == 0 {
		return Command{}, fmt.Errorf("invalid output format %s", format)
	}

	return Command{
		Path: "ffmpeg",
		Args: []string{
			"-hide_banner",
			"-nostdin",
			"-loglevel", "warning",
			"-f", inputFormat,
			"-i", device,
			"-vn",
			"-ac", fmt.Sprintf("%d", format.Channels),
			"-ar", fmt.Sprintf("%d", format.SampleRate),
			"-f", format.PCMFormat.String(),
			"-acodec", "pcm_" + format.PCMFormat.String(),
			"pipe:1",
		},
	}, nil
}
