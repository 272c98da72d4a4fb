//go:build unix

package process

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/audiosender/pkg/forwarder"
)

func TestSourceOwnProcessGroup(t *testing.T) {
	ctx := context.Background()
	s, err := New(ctx, shellCommand(t, "while :; do printf 0000; sleep 0.01; done"), 4)
	require.NoError(t, err)
	defer s.Close()

	pid := s.cmd.Process.Pid
	pgid, err := syscall.Getpgid(pid)
	require.NoError(t, err)
	assert.Equal(t, pid, pgid)
	assert.NotEqual(t, syscall.Getpgrp(), pgid)
}

// An interrupt reaching the helper together with the cancellation (e.g. a
// signal sent to it by something else than Close) ends the run as
// cancelled, not as a capture failure.
func TestSourceInterruptedWhileCancelled(t *testing.T) {
	ctx, cancelFn := context.WithCancel(context.Background())
	defer cancelFn()

	s, err := New(ctx, shellCommand(t, "trap 'exit 255' INT; while :; do head -c 4096 /dev/zero; sleep 0.05; done"), 4096)
	require.NoError(t, err)
	defer s.Close()

	type runResult struct {
		result forwarder.Result
		err    error
	}
	done := make(chan runResult, 1)
	go func() {
		result, err := forwarder.New().Run(ctx, s, discard{})
		done <- runResult{result: result, err: err}
	}()

	require.Eventually(t, func() bool {
		chunks, _ := s.Stats()
		return chunks >= 2
	}, 5*time.Second, 10*time.Millisecond)

	cancelFn()
	require.NoError(t, s.cmd.Process.Signal(os.Interrupt))

	var r runResult
	select {
	case r = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("the run did not end")
	}
	require.NoError(t, r.err)
	assert.Equal(t, forwarder.ReasonCancelled, r.result.Reason)
}

type discard struct{}

func (discard) Write(b []byte) (int, error) {
	return len(b), nil
}
