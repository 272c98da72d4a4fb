// Package session runs one capture-to-socket streaming session: one fresh
// connection and one fresh capture handle, both released on every exit path.
package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/audiosender/pkg/capture"
	"github.com/xaionaro-go/audiosender/pkg/forwarder"
	"github.com/xaionaro-go/datacounter"
)

const (
	DefaultDialTimeout = 10 * time.Second
)

var ErrSessionUsed = errors.New("the session was already run; a new session is required")

type Config struct {
	Endpoint     Endpoint
	DialTimeout  time.Duration
	WriteTimeout time.Duration
}

type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

type Session struct {
	ID     string
	Config Config

	dialer     Dialer
	openSource SourceOpener
	used       atomic.Bool
	counter    atomic.Pointer[datacounter.WriterCounter]
}

func New(
	cfg Config,
	openSource SourceOpener,
	opts ...Option,
) (*Session, error) {
	if err := cfg.Endpoint.Validate(); err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	if openSource == nil {
		return nil, fmt.Errorf("no capture source is configured")
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}

	s := &Session{
		ID:         uuid.NewString(),
		Config:     cfg,
		dialer:     &net.Dialer{Timeout: cfg.DialTimeout},
		openSource: openSource,
	}
	for _, opt := range opts {
		opt.apply(s)
	}
	return s, nil
}

// BytesSent returns the amount of bytes written to the connection so far.
func (s *Session) BytesSent() uint64 {
	counter := s.counter.Load()
	if counter == nil {
		return 0
	}
	return counter.Count()
}

// Run connects to the endpoint, opens the capture source and forwards the
// audio until the stream ends, something fails, or ctx is cancelled.
// Cancellation is not an error.
func (s *Session) Run(ctx context.Context) (_ret forwarder.Result, _err error) {
	if !s.used.CompareAndSwap(false, true) {
		return forwarder.Result{}, ErrSessionUsed
	}

	ctx = belt.WithField(ctx, "session_id", s.ID)
	logger.Debugf(ctx, "Run")
	defer func() { logger.Debugf(ctx, "/Run: %#+v %v", _ret, _err) }()

	conn, err := s.dial(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return forwarder.Result{Reason: forwarder.ReasonCancelled}, nil
		}
		return forwarder.Result{Reason: forwarder.ReasonTransportFailed}, err
	}
	logger.Infof(ctx, "connected to %s", s.Config.Endpoint)

	var src capture.Source
	defer func() {
		var mErr *multierror.Error
		if src != nil {
			if err := src.Close(); err != nil {
				mErr = multierror.Append(mErr, fmt.Errorf("unable to close the capture source: %w", err))
			}
		}
		if err := conn.Close(); err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("unable to close the connection: %w", err))
		}
		if cleanupErr := mErr.ErrorOrNil(); cleanupErr != nil {
			logger.Warnf(ctx, "cleanup: %v", cleanupErr)
			if _err == nil {
				_err = cleanupErr
			}
		}
	}()

	logger.Tracef(ctx, "openSource")
	src, err = s.openSource(ctx)
	logger.Tracef(ctx, "/openSource: %v", err)
	if err != nil {
		if !capture.IsCaptureError(err) {
			err = &capture.CaptureError{Err: err}
		}
		return forwarder.Result{Reason: forwarder.ReasonCaptureFailed}, fmt.Errorf("unable to open the capture source: %w", err)
	}

	counter := datacounter.NewWriterCounter(conn)
	s.counter.Store(counter)

	f := forwarder.New(forwarder.OptionWriteTimeout(s.Config.WriteTimeout))
	return f.Run(ctx, src, countingConn{WriterCounter: counter, conn: conn})
}

func (s *Session) dial(ctx context.Context) (net.Conn, error) {
	endpoint := s.Config.Endpoint.String()
	logger.Tracef(ctx, "DialContext(%s)", endpoint)
	conn, err := s.dialer.DialContext(ctx, "tcp", endpoint)
	logger.Tracef(ctx, "/DialContext(%s): %v", endpoint, err)
	if err != nil {
		return nil, &forwarder.TransportError{Op: forwarder.OpDial, Err: fmt.Errorf("unable to connect to %s: %w", endpoint, err)}
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if err := tcpConn.SetNoDelay(true); err != nil {
			logger.Debugf(ctx, "unable to set TCP_NODELAY: %v", err)
		}
	}
	return conn, nil
}

// countingConn counts written bytes and keeps write deadlines reachable.
type countingConn struct {
	*datacounter.WriterCounter
	conn net.Conn
}

func (c countingConn) SetWriteDeadline(t time.Time) error {
	return c.conn.SetWriteDeadline(t)
}
