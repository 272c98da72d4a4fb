package forwarder

import (
	"time"
)

type Config struct {
	// WriteTimeout limits the time one chunk may take to be written, if the
	// connection supports write deadlines. Zero means no limit.
	WriteTimeout time.Duration

	// MaxStalledWrites is the amount of consecutive writes accepting zero
	// bytes without an error after which the connection is considered broken.
	MaxStalledWrites uint
}

type Option interface {
	apply(*Config)
}

type Options []Option

func (s Options) config() Config {
	cfg := Config{
		MaxStalledWrites: DefaultMaxStalledWrites,
	}
	for _, opt := range s {
		opt.apply(&cfg)
	}
	return cfg
}

type OptionWriteTimeout time.Duration

func (opt OptionWriteTimeout) apply(cfg *Config) {
	cfg.WriteTimeout = time.Duration(opt)
}

type OptionMaxStalledWrites uint

func (opt OptionMaxStalledWrites) apply(cfg *Config) {
	if opt == 0 {
		opt = DefaultMaxStalledWrites
	}
	cfg.MaxStalledWrites = uint(opt)
}
