package process

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/audiosender/pkg/audio/types"
)

func TestFFmpegCommand(t *testing.T) {
	format := types.Format{SampleRate: 22050, Channels: 2, PCMFormat: types.PCMFormatS16LE}

	cmd, err := FFmpegCommand("dshow", "audio=Stereo Mix", format)
	require.NoError(t, err)
	assert.Equal(t, "ffmpeg", cmd.Path)
	assert.Equal(t, []string{
		"-hide_banner",
		"-nostdin",
		"-loglevel", "warning",
		"-f", "dshow",
		"-i", "audio=Stereo Mix",
		"-vn",
		"-ac", "2",
		"-ar", "22050",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"pipe:1",
	}, cmd.Args)

	_, err = FFmpegCommand("dshow", "", format)
	assert.Error(t, err)

	_, err = FFmpegCommand("pulse", "default", types.Format{SampleRate: 22050, Channels: 2, PCMFormat: types.PCMFormatS64LE})
	assert.Error(t, err)

	_, err = FFmpegCommand("pulse", "default", types.Format{SampleRate: 0, Channels: 2, PCMFormat: types.PCMFormatS16LE})
	assert.Error(t, err)
}
