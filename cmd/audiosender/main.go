package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
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
	"github.com/xaionaro-go/audiosender/pkg/session"
	"github.com/xaionaro-go/observability"
)

func main() {
	config.AddFlags(pflag.CommandLine)
	netPprofAddr := pflag.String("net-pprof-listen-addr", "", "an address to listen for incoming net/pprof connections")
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] host[:port]\n", os.Args[0])
		pflag.PrintDefaults()
	}
	pflag.Parse()

	cfg, err := config.Load(pflag.CommandLine, pflag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n\n", err)
		pflag.Usage()
		os.Exit(2)
	}

	l := logrus.Default().WithLevel(cfg.LogLevel)
	ctx := logger.CtxWithLogger(context.Background(), l)
	logger.Default = func() logger.Logger {
		return l
	}

	if *netPprofAddr != "" {
		observability.Go(ctx, func() { l.Error(http.ListenAndServe(*netPprofAddr, nil)) })
	}

	if err := run(ctx, cfg); err != nil {
		logger.Errorf(ctx, "%v", err)
		belt.Flush(ctx)
		os.Exit(1)
	}
	belt.Flush(ctx)
}

func run(ctx context.Context, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	openSource, err := cfg.SourceOpener()
	if err != nil {
		return err
	}

	s, err := session.New(cfg.SessionConfig(), openSource)
	if err != nil {
		return err
	}

	observability.Go(ctx, func() {
		logger.Tracef(ctx, "started the traffic count printer loop")
		t := time.NewTicker(time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				logger.Debugf(ctx, "sent: %d", s.BytesSent())
			}
		}
	})

	logger.Infof(ctx, "streaming %s from '%s' to %s", cfg.Format, cfg.Capture, cfg.Endpoint)
	result, err := s.Run(ctx)
	if result.Reason == forwarder.ReasonCancelled {
		logger.Infof(ctx, "Stopping...")
	}
	logger.Infof(ctx, "%s: sent %d chunks (%d bytes)", result.Reason, result.Chunks, result.Bytes)
	return err
}
