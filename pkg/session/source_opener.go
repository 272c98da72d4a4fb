package session

import (
	"context"

	"github.com/xaionaro-go/audiosender/pkg/capture"
	"github.com/xaionaro-go/audiosender/pkg/capture/device"
	"github.com/xaionaro-go/audiosender/pkg/capture/process"
)

// SourceOpener acquires a fresh capture handle for a session.
type SourceOpener func(ctx context.Context) (capture.Source, error)

func ProcessSourceOpener(
	command process.Command,
	chunkSize uint,
) SourceOpener {
	return func(ctx context.Context) (capture.Source, error) {
		return process.New(ctx, command, chunkSize)
	}
}

func DeviceSourceOpener(
	cfg device.Config,
) SourceOpener {
	return func(ctx context.Context) (capture.Source, error) {
		return device.New(ctx, cfg)
	}
}
