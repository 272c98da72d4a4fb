package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/spf13/pflag"
	_ "github.com/xaionaro-go/audiosender/pkg/audio/backends/portaudio"
	_ "github.com/xaionaro-go/audiosender/pkg/audio/backends/pulseaudio"
	"github.com/xaionaro-go/audiosender/pkg/config"
	"github.com/xaionaro-go/audiosender/pkg/forwarder"
	"github.com/xaionaro-go/datacounter"
	"github.com/xaionaro-go/observability"
)

func main() {
	config.AddFlags(pflag.CommandLine)
	duration := pflag.Duration("duration", 0, "stop after this long (0 means until interrupted or the end of the stream)")
	pflag.Parse()

	cfg, err := config.LoadCapture(pflag.CommandLine)
	assertNoError(err)

	l := logrus.Default().WithLevel(cfg.LogLevel)
	ctx := logger.CtxWithLogger(context.Background(), l)
	logger.Default = func() logger.Logger {
		return l
	}

	if err := record(ctx, cfg, *duration); err != nil {
		logger.Errorf(ctx, "%v", err)
		belt.Flush(ctx)
		os.Exit(1)
	}
	belt.Flush(ctx)
}

func record(
	ctx context.Context,
	cfg config.Config,
	duration time.Duration,
) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	openSource, err := cfg.SourceOpener()
	if err != nil {
		return err
	}

	logger.Infof(ctx, "starting %s capture of %s...", cfg.Capture, cfg.Format)
	src, err := openSource(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := src.Close(); err != nil {
			logger.Warnf(ctx, "unable to close the capture source: %v", err)
		}
	}()

	wc := datacounter.NewWriterCounter(os.Stdout)
	observability.Go(ctx, func() {
		logger.Tracef(ctx, "started the traffic count printer loop")
		t := time.NewTicker(time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				logger.Debugf(ctx, "written: %d", wc.Count())
				if stats, ok := src.(interface{ Stats() (uint64, uint64) }); ok {
					chunks, bytes := stats.Stats()
					logger.Debugf(ctx, "captured: %d chunks, %d bytes", chunks, bytes)
				}
			}
		}
	})

	result, err := forwarder.New().Run(ctx, src, wc)
	logger.Infof(ctx, "%s: written %d bytes", result.Reason, wc.Count())
	return err
}

func assertNoError(err error) {
	if err != nil {
		panic(err)
	}
}
