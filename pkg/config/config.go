// Package config collects the settings of a streaming session from command
// line flags, AUDIOSENDER_* environment variables and an optional config
// file, in this order of precedence.
package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/xaionaro-go/audiosender/pkg/audio/types"
	"github.com/xaionaro-go/audiosender/pkg/capture"
	"github.com/xaionaro-go/audiosender/pkg/capture/device"
	"github.com/xaionaro-go/audiosender/pkg/capture/process"
	"github.com/xaionaro-go/audiosender/pkg/session"
)

const (
	EnvPrefix = "AUDIOSENDER"

	CaptureFFmpeg = "ffmpeg"
	CaptureDevice = "device"

	DefaultSampleRate = 22050
	DefaultChannels   = 2
)

const (
	keyConfig            = "config"
	keyHost              = "host"
	keyPort              = "port"
	keyChunkSize         = "chunk-size"
	keySampleRate        = "sample-rate"
	keyChannels          = "channels"
	keyPCMFormat         = "pcm-format"
	keyCapture           = "capture"
	keyBackend           = "backend"
	keyDevice            = "device"
	keyFFmpegPath        = "ffmpeg-path"
	keyFFmpegInputFormat = "ffmpeg-input-format"
	keyDialTimeout       = "dial-timeout"
	keyWriteTimeout      = "write-timeout"
	keyLogLevel          = "log-level"
)

var ErrNoHost = errors.New("the listener host is not specified")

type Config struct {
	Endpoint     session.Endpoint
	DialTimeout  time.Duration
	WriteTimeout time.Duration

	ChunkSize uint
	Format    types.Format

	// Capture is either CaptureFFmpeg or CaptureDevice.
	Capture string

	// Backend is the recorder backend for CaptureDevice; empty means auto.
	Backend string

	// Device is the ffmpeg input device or the recorder device name.
	Device string

	FFmpegPath        string
	FFmpegInputFormat string

	LogLevel logger.Level
}

// AddFlags registers the flags of all the settings.
func AddFlags(flags *pflag.FlagSet) {
	flags.String(keyConfig, "", "path to a config file (yaml, json or toml)")
	flags.String(keyHost, "", "the listener host; may also be given as the positional argument 'host[:port]'")
	flags.Uint16(keyPort, session.DefaultPort, "the listener port")
	flags.Uint(keyChunkSize, capture.DefaultChunkSize, "the amount of bytes moved per read/write cycle")
	flags.Uint32(keySampleRate, DefaultSampleRate, "sample rate (agreed with the listener out of band)")
	flags.Uint32(keyChannels, DefaultChannels, "amount of interleaved channels")
	flags.String(keyPCMFormat, types.PCMFormatS16LE.String(), "sample format on the wire")
	flags.String(keyCapture, CaptureFFmpeg, "capture method: 'ffmpeg' (helper process) or 'device' (direct device access)")
	flags.String(keyBackend, "", "recorder backend for --capture=device (empty means auto)")
	flags.String(keyDevice, "", "capture device (ffmpeg input device, or PulseAudio source / PortAudio device name)")
	flags.String(keyFFmpegPath, "ffmpeg", "path to the ffmpeg executable")
	flags.String(keyFFmpegInputFormat, "", "ffmpeg input format (empty means the platform default)")
	flags.Duration(keyDialTimeout, session.DefaultDialTimeout, "timeout for connecting to the listener")
	flags.Duration(keyWriteTimeout, 0, "timeout for sending one chunk (0 means no timeout)")
	flags.String(keyLogLevel, logger.LevelInfo.String(), "log level")
}

// Load resolves the settings. positionalArgs may contain a single
// "host[:port]" argument overriding --host and --port.
func Load(
	flags *pflag.FlagSet,
	positionalArgs []string,
) (Config, error) {
	cfg, err := load(flags, positionalArgs)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadCapture resolves the settings for tools that only capture and
// do not connect anywhere.
func LoadCapture(flags *pflag.FlagSet) (Config, error) {
	cfg, err := load(flags, nil)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.ValidateCapture(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func load(
	flags *pflag.FlagSet,
	positionalArgs []string,
) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		return Config{}, fmt.Errorf("unable to bind the flags: %w", err)
	}

	if configPath := v.GetString(keyConfig); configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("unable to read config file '%s': %w", configPath, err)
		}
	}

	cfg := Config{
		Endpoint: session.Endpoint{
			Host: v.GetString(keyHost),
			Port: v.GetUint16(keyPort),
		},
		DialTimeout:  v.GetDuration(keyDialTimeout),
		WriteTimeout: v.GetDuration(keyWriteTimeout),
		ChunkSize:    v.GetUint(keyChunkSize),
		Format: types.Format{
			SampleRate: types.SampleRate(v.GetUint32(keySampleRate)),
			Channels:   types.Channel(v.GetUint32(keyChannels)),
		},
		Capture:           strings.ToLower(v.GetString(keyCapture)),
		Backend:           v.GetString(keyBackend),
		Device:            v.GetString(keyDevice),
		FFmpegPath:        v.GetString(keyFFmpegPath),
		FFmpegInputFormat: v.GetString(keyFFmpegInputFormat),
	}

	if err := cfg.Format.PCMFormat.Set(v.GetString(keyPCMFormat)); err != nil {
		return Config{}, err
	}
	if err := cfg.LogLevel.Set(v.GetString(keyLogLevel)); err != nil {
		return Config{}, fmt.Errorf("unable to parse the log level: %w", err)
	}

	switch len(positionalArgs) {
	case 0:
	case 1:
		endpoint, err := session.ParseEndpoint(positionalArgs[0])
		if err != nil {
			return Config{}, err
		}
		if _, _, err := net.SplitHostPort(positionalArgs[0]); err != nil {
			// no port in the argument
			endpoint.Port = cfg.Endpoint.Port
		}
		cfg.Endpoint = endpoint
	default:
		return Config{}, fmt.Errorf("expected at most one positional argument (host[:port]), got %d", len(positionalArgs))
	}
	return cfg, nil
}

func (cfg Config) Validate() error {
	if cfg.Endpoint.Host == "" {
		return ErrNoHost
	}
	if err := cfg.Endpoint.Validate(); err != nil {
		return err
	}
	return cfg.ValidateCapture()
}

func (cfg Config) ValidateCapture() error {
	if cfg.Format.SampleRate == 0 {
		return fmt.Errorf("the sample rate must be positive")
	}
	if cfg.Format.Channels == 0 {
		return fmt.Errorf("the amount of channels must be positive")
	}
	frameSize := cfg.Format.FrameSize()
	if frameSize == 0 {
		return fmt.Errorf("the sample format '%s' is not supported", cfg.Format.PCMFormat)
	}
	if cfg.ChunkSize == 0 || cfg.ChunkSize%frameSize != 0 {
		return fmt.Errorf("the chunk size (%d) must be a positive multiple of the frame size (%d)", cfg.ChunkSize, frameSize)
	}
	switch cfg.Capture {
	case CaptureFFmpeg, CaptureDevice:
	default:
		return fmt.Errorf("unknown capture method '%s'", cfg.Capture)
	}
	return nil
}

func (cfg Config) SessionConfig() session.Config {
	return session.Config{
		Endpoint:     cfg.Endpoint,
		DialTimeout:  cfg.DialTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

func (cfg Config) DeviceConfig() device.Config {
	return device.Config{
		Backend:   cfg.Backend,
		Device:    cfg.Device,
		Format:    cfg.Format,
		ChunkSize: cfg.ChunkSize,
	}
}

func (cfg Config) FFmpegCommand() (process.Command, error) {
	cmd, err := process.FFmpegCommand(cfg.FFmpegInputFormat, cfg.Device, cfg.Format)
	if err != nil {
		return process.Command{}, err
	}
	cmd.Path = cfg.FFmpegPath
	return cmd, nil
}

// SourceOpener returns the way to acquire a capture handle for a session.
func (cfg Config) SourceOpener() (session.SourceOpener, error) {
	switch cfg.Capture {
	case CaptureFFmpeg:
		cmd, err := cfg.FFmpegCommand()
		if err != nil {
			return nil, err
		}
		return session.ProcessSourceOpener(cmd, cfg.ChunkSize), nil
	case CaptureDevice:
		return session.DeviceSourceOpener(cfg.DeviceConfig()), nil
	default:
		return nil, fmt.Errorf("unknown capture method '%s'", cfg.Capture)
	}
}
