package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/audiosender/pkg/audio/types"
	"github.com/xaionaro-go/audiosender/pkg/session"
)

func loadArgs(t *testing.T, args ...string) (Config, error) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(flags)
	require.NoError(t, flags.Parse(args))
	return Load(flags, flags.Args())
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := loadArgs(t, "10.123.224.192")
	require.NoError(t, err)

	assert.Equal(t, session.Endpoint{Host: "10.123.224.192", Port: 9999}, cfg.Endpoint)
	assert.Equal(t, uint(4096), cfg.ChunkSize)
	assert.Equal(t, types.Format{SampleRate: 22050, Channels: 2, PCMFormat: types.PCMFormatS16LE}, cfg.Format)
	assert.Equal(t, CaptureFFmpeg, cfg.Capture)
	assert.Equal(t, session.DefaultDialTimeout, cfg.DialTimeout)
	assert.Equal(t, time.Duration(0), cfg.WriteTimeout)
	assert.Equal(t, logger.LevelInfo, cfg.LogLevel)
}

func TestLoadFlags(t *testing.T) {
	cfg, err := loadArgs(t,
		"--host", "3ds.lan",
		"--port", "1234",
		"--chunk-size", "8192",
		"--sample-rate", "48000",
		"--channels", "1",
		"--pcm-format", "f32le",
		"--capture", "device",
		"--backend", "pulseaudio",
		"--device", "alsa_output.pci.monitor",
		"--write-timeout", "2s",
		"--log-level", "debug",
	)
	require.NoError(t, err)

	assert.Equal(t, session.Endpoint{Host: "3ds.lan", Port: 1234}, cfg.Endpoint)
	assert.Equal(t, uint(8192), cfg.ChunkSize)
	assert.Equal(t, types.Format{SampleRate: 48000, Channels: 1, PCMFormat: types.PCMFormatFloat32LE}, cfg.Format)
	assert.Equal(t, CaptureDevice, cfg.Capture)
	assert.Equal(t, "pulseaudio", cfg.Backend)
	assert.Equal(t, "alsa_output.pci.monitor", cfg.Device)
	assert.Equal(t, 2*time.Second, cfg.WriteTimeout)
	assert.Equal(t, logger.LevelDebug, cfg.LogLevel)

	deviceCfg := cfg.DeviceConfig()
	assert.Equal(t, cfg.Format, deviceCfg.Format)
	assert.Equal(t, cfg.ChunkSize, deviceCfg.ChunkSize)

	opener, err := cfg.SourceOpener()
	require.NoError(t, err)
	assert.NotNil(t, opener)
}

func TestLoadPositionalPortOverridesFlag(t *testing.T) {
	cfg, err := loadArgs(t, "--port", "1234", "3ds.lan:5555")
	require.NoError(t, err)
	assert.Equal(t, session.Endpoint{Host: "3ds.lan", Port: 5555}, cfg.Endpoint)

	cfg, err = loadArgs(t, "--port", "1234", "3ds.lan")
	require.NoError(t, err)
	assert.Equal(t, session.Endpoint{Host: "3ds.lan", Port: 1234}, cfg.Endpoint)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("AUDIOSENDER_HOST", "from-env")
	t.Setenv("AUDIOSENDER_CHUNK_SIZE", "1024")

	cfg, err := loadArgs(t)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Endpoint.Host)
	assert.Equal(t, uint(1024), cfg.ChunkSize)

	// an explicit flag wins over the environment
	cfg, err = loadArgs(t, "--chunk-size", "2048")
	require.NoError(t, err)
	assert.Equal(t, uint(2048), cfg.ChunkSize)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audiosender.yaml")
	require.NoError(t, os.WriteFile(path, []byte("host: from-file\nport: 4321\nsample-rate: 44100\n"), 0o600))

	cfg, err := loadArgs(t, "--config", path)
	require.NoError(t, err)
	assert.Equal(t, session.Endpoint{Host: "from-file", Port: 4321}, cfg.Endpoint)
	assert.Equal(t, types.SampleRate(44100), cfg.Format.SampleRate)

	_, err = loadArgs(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalid(t *testing.T) {
	for name, args := range map[string][]string{
		"no_host":            {},
		"two_positionals":    {"a", "b"},
		"unaligned_chunk":    {"--chunk-size", "4097", "host"},
		"zero_chunk":         {"--chunk-size", "0", "host"},
		"zero_channels":      {"--channels", "0", "host"},
		"zero_sample_rate":   {"--sample-rate", "0", "host"},
		"unknown_capture":    {"--capture", "telepathy", "host"},
		"unknown_pcm_format": {"--pcm-format", "mp3", "host"},
		"bad_log_level":      {"--log-level", "loud", "host"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := loadArgs(t, args...)
			assert.Error(t, err)
		})
	}

	_, err := loadArgs(t)
	assert.ErrorIs(t, err, ErrNoHost)
}

func TestFFmpegCommand(t *testing.T) {
	cfg, err := loadArgs(t, "--ffmpeg-path", "/opt/ffmpeg/bin/ffmpeg", "--ffmpeg-input-format", "alsa", "--device", "hw:0", "host")
	require.NoError(t, err)

	cmd, err := cfg.FFmpegCommand()
	require.NoError(t, err)
	assert.Equal(t, "/opt/ffmpeg/bin/ffmpeg", cmd.Path)
	assert.Contains(t, cmd.Args, "alsa")
	assert.Contains(t, cmd.Args, "hw:0")
	assert.Contains(t, cmd.Args, "22050")
}

func TestLoadCapture(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(flags)
	require.NoError(t, flags.Parse([]string{"--channels", "1"}))

	cfg, err := LoadCapture(flags)
	require.NoError(t, err)
	assert.Equal(t, "", cfg.Endpoint.Host)
	assert.Equal(t, types.Channel(1), cfg.Format.Channels)

	flags = pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(flags)
	require.NoError(t, flags.Parse([]string{"--chunk-size", "3"}))
	_, err = LoadCapture(flags)
	assert.Error(t, err)
}

func TestValidateUndefinedPCMFormat(t *testing.T) {
	cfg := Config{
		Endpoint:  session.Endpoint{Host: "3ds.lan", Port: session.DefaultPort},
		ChunkSize: 4096,
		Format:    types.Format{SampleRate: 22050, Channels: 2},
		Capture:   CaptureFFmpeg,
	}
	var err error
	require.NotPanics(t, func() { err = cfg.Validate() })
	assert.Error(t, err)

	cfg.Format.PCMFormat = types.PCMFormatS16LE
	assert.NoError(t, cfg.Validate())
}
