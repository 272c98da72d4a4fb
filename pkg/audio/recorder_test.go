package audio

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRecorderByNameSilence(t *testing.T) {
	ctx := context.Background()

	recorder, err := NewRecorderByName(ctx, SilenceBackendName)
	require.NoError(t, err)
	defer recorder.Close()

	r, w := io.Pipe()
	stream, err := recorder.RecordPCM(ctx, 8000, 2, PCMFormatS16LE, w)
	require.NoError(t, err)

	buf := make([]byte, 4096)
	_, err = io.ReadFull(r, buf)
	require.NoError(t, err)
	require.Equal(t, make([]byte, len(buf)), buf)

	r.Close()
	require.NoError(t, stream.Close())
	require.ErrorIs(t, stream.Error(), io.ErrClosedPipe)
}

func TestSilenceRejectsInvalidFormat(t *testing.T) {
	_, err := RecorderPCMSilence{}.RecordPCM(context.Background(), 8000, 2, PCMFormatUndefined, &bytes.Buffer{})
	require.Error(t, err)
}

func TestNewRecorderByNameUnknown(t *testing.T) {
	_, err := NewRecorderByName(context.Background(), "no-such-backend")
	require.Error(t, err)
}
