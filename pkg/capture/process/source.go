// Package process implements capture.Source on top of a helper process
// (ffmpeg by default) which writes raw PCM to its stdout.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/audiosender/pkg/capture"
	"github.com/xaionaro-go/observability"
)

const (
	DefaultGracePeriod = 2 * time.Second
)

type Source struct {
	*capture.ReaderSource
	Command     Command
	GracePeriod time.Duration

	cmd         *exec.Cmd
	stdout      io.ReadCloser
	waitOnce    sync.Once
	waitDone    chan struct{}
	waitErr     error
	terminalErr error
	closeOnce   sync.Once
}

var _ capture.Source = (*Source)(nil)

// New starts the command and returns a source reading its stdout.
func New(
	ctx context.Context,
	command Command,
	chunkSize uint,
) (_ *Source, _err error) {
	logger.Debugf(ctx, "process.New(%s, %d)", command, chunkSize)
	defer func() { logger.Debugf(ctx, "/process.New(%s, %d): %v", command, chunkSize, _err) }()

	path, err := exec.LookPath(command.Path)
	if err != nil {
		return nil, &capture.CaptureError{Err: fmt.Errorf("'%s' is not found: %w", command.Path, err)}
	}

	cmd := exec.Command(path, command.Args...)
	detachProcessGroup(cmd)
	cmd.Stderr = &stderrLogger{ctx: ctx, name: command.Path}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &capture.CaptureError{Err: fmt.Errorf("unable to get the stdout of '%s': %w", command.Path, err)}
	}

	readerSource, err := capture.NewReaderSource(stdout, chunkSize)
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, &capture.CaptureError{Err: fmt.Errorf("unable to start '%s': %w", command.Path, err)}
	}
	logger.Debugf(ctx, "started '%s' with PID %d", command.Path, cmd.Process.Pid)

	return &Source{
		ReaderSource: readerSource,
		Command:      command,
		GracePeriod:  DefaultGracePeriod,
		cmd:          cmd,
		stdout:       stdout,
		waitDone:     make(chan struct{}),
	}, nil
}

func (s *Source) NextChunk(ctx context.Context) (capture.Chunk, error) {
	if s.terminalErr != nil {
		return nil, s.terminalErr
	}

	chunk, err := s.ReaderSource.NextChunk(ctx)
	if !errors.Is(err, capture.ErrEndOfStream) {
		return chunk, err
	}

	// the stdout is exhausted, the exit status tells if it was a failure
	<-s.wait(ctx)
	if s.waitErr != nil {
		s.terminalErr = &capture.CaptureError{Err: fmt.Errorf("'%s' exited: %w", s.Command.Path, s.waitErr)}
	} else {
		s.terminalErr = capture.ErrEndOfStream
	}
	logger.Debugf(ctx, "the capture process ended: %v", s.waitErr)
	return nil, s.terminalErr
}

func (s *Source) wait(ctx context.Context) <-chan struct{} {
	s.waitOnce.Do(func() {
		observability.Go(ctx, func() {
			defer close(s.waitDone)
			s.waitErr = s.cmd.Wait()
		})
	})
	return s.waitDone
}

func (s *Source) exited() bool {
	select {
	case <-s.waitDone:
		return true
	default:
		return false
	}
}

// Close asks the process to stop, kills it if it does not within
// GracePeriod, and reaps it.
func (s *Source) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.close()
	})
	return err
}

func (s *Source) close() error {
	ctx := context.Background()
	waitDone := s.wait(ctx)
	gracePeriod := s.GracePeriod
	if !s.exited() {
		if err := s.cmd.Process.Signal(os.Interrupt); err != nil {
			// e.g. interrupts are not supported on windows
			logger.Debugf(ctx, "unable to interrupt PID %d: %v", s.cmd.Process.Pid, err)
			gracePeriod = 0
		}
	}
	s.ReaderSource.Close()

	t := time.NewTimer(gracePeriod)
	defer t.Stop()
	select {
	case <-waitDone:
		return nil
	case <-t.C:
	}

	logger.Debugf(ctx, "PID %d did not exit in %v, killing it", s.cmd.Process.Pid, s.GracePeriod)
	if err := s.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("unable to kill PID %d: %w", s.cmd.Process.Pid, err)
	}
	<-waitDone
	return nil
}

type stderrLogger struct {
	ctx  context.Context
	name string
}

func (l *stderrLogger) Write(p []byte) (int, error) {
	for _, line := range bytes.Split(bytes.TrimSpace(p), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		logger.Debugf(l.ctx, "%s: %s", l.name, line)
	}
	return len(p), nil
}
