package resampler

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/audiosender/pkg/audio/types"
)

func TestResampler(t *testing.T) {
	t.Run("Identity_S16LE_Mono_44100", func(t *testing.T) {
		inFmt := Format{
			Channels:   1,
			SampleRate: 44100,
			PCMFormat:  types.PCMFormatS16LE,
		}
		// S16 is 2 bytes per sample. 100 samples = 200 bytes.
		data := make([]byte, 200)
		for i := 0; i < 100; i++ {
			binary.LittleEndian.PutUint16(data[i*2:], uint16(i*100))
		}
		r, err := NewResampler(inFmt, bytes.NewReader(data), inFmt)
		require.NoError(t, err)

		out := make([]byte, 200)
		n, err := io.ReadFull(r, out)
		assert.NoError(t, err)
		assert.Equal(t, 200, n)
		assert.Equal(t, data, out)

		_, err = r.Read(out)
		assert.ErrorIs(t, err, io.EOF)
	})

	t.Run("Conversion_U8_to_Float32LE_Mono", func(t *testing.T) {
		inFmt := Format{
			Channels:   1,
			SampleRate: 44100,
			PCMFormat:  types.PCMFormatU8,
		}
		outFmt := Format{
			Channels:   1,
			SampleRate: 44100,
			PCMFormat:  types.PCMFormatFloat32LE,
		}
		// 128 in U8 is approx 0.0 in Float32
		data := []byte{0, 128, 255}
		r, err := NewResampler(inFmt, bytes.NewReader(data), outFmt)
		require.NoError(t, err)

		out := make([]byte, 3*4)
		n, err := r.Read(out)
		assert.NoError(t, err)
		assert.Equal(t, 12, n)

		v0 := math.Float32frombits(binary.LittleEndian.Uint32(out[0:4]))
		v1 := math.Float32frombits(binary.LittleEndian.Uint32(out[4:8]))
		v2 := math.Float32frombits(binary.LittleEndian.Uint32(out[8:12]))

		assert.InDelta(t, -1.0, v0, 0.01)
		assert.InDelta(t, 0.0, v1, 0.01)
		assert.InDelta(t, 1.0, v2, 0.01)
	})

	t.Run("Conversion_Float32LE_to_S16LE_Saturates", func(t *testing.T) {
		inFmt := Format{
			Channels:   1,
			SampleRate: 22050,
			PCMFormat:  types.PCMFormatFloat32LE,
		}
		outFmt := Format{
			Channels:   1,
			SampleRate: 22050,
			PCMFormat:  types.PCMFormatS16LE,
		}
		data := make([]byte, 4*4)
		for i, v := range []float32{1.0, -1.0, 1.5, 0} {
			binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
		}
		r, err := NewResampler(inFmt, bytes.NewReader(data), outFmt)
		require.NoError(t, err)

		out := make([]byte, 4*2)
		_, err = io.ReadFull(r, out)
		require.NoError(t, err)
		assert.Equal(t, int16(math.MaxInt16), int16(binary.LittleEndian.Uint16(out[0:])))
		assert.Equal(t, int16(math.MinInt16), int16(binary.LittleEndian.Uint16(out[2:])))
		assert.Equal(t, int16(math.MaxInt16), int16(binary.LittleEndian.Uint16(out[4:])))
		assert.Equal(t, int16(0), int16(binary.LittleEndian.Uint16(out[6:])))
	})

	t.Run("Resampling_44100_to_22050", func(t *testing.T) {
		inFmt := Format{
			Channels:   1,
			SampleRate: 44100,
			PCMFormat:  types.PCMFormatU8,
		}
		outFmt := Format{
			Channels:   1,
			SampleRate: 22050,
			PCMFormat:  types.PCMFormatU8,
		}
		data := make([]byte, 100)
		for i := range data {
			data[i] = byte(i)
		}
		r, err := NewResampler(inFmt, bytes.NewReader(data), outFmt)
		require.NoError(t, err)

		out := make([]byte, 50)
		n, err := io.ReadFull(r, out)
		assert.NoError(t, err)
		assert.Equal(t, 50, n)
		for i := range out {
			assert.Equal(t, data[i*2], out[i], "index %d", i)
		}
	})

	t.Run("Resampling_Stereo_Keeps_Channels_Apart", func(t *testing.T) {
		inFmt := Format{
			Channels:   2,
			SampleRate: 48000,
			PCMFormat:  types.PCMFormatU8,
		}
		outFmt := Format{
			Channels:   2,
			SampleRate: 24000,
			PCMFormat:  types.PCMFormatU8,
		}
		data := make([]byte, 2*10)
		for i := 0; i < 10; i++ {
			data[i*2] = byte(i)
			data[i*2+1] = byte(100 + i)
		}
		r, err := NewResampler(inFmt, bytes.NewReader(data), outFmt)
		require.NoError(t, err)

		out := make([]byte, 2*5)
		_, err = io.ReadFull(r, out)
		require.NoError(t, err)
		assert.Equal(t, []byte{0, 100, 2, 102, 4, 104, 6, 106, 8, 108}, out)
	})

	t.Run("Resampling_22050_to_44100", func(t *testing.T) {
		inFmt := Format{
			Channels:   1,
			SampleRate: 22050,
			PCMFormat:  types.PCMFormatU8,
		}
		outFmt := Format{
			Channels:   1,
			SampleRate: 44100,
			PCMFormat:  types.PCMFormatU8,
		}
		r, err := NewResampler(inFmt, bytes.NewReader([]byte{1, 2, 3}), outFmt)
		require.NoError(t, err)

		out := make([]byte, 6)
		_, err = io.ReadFull(r, out)
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 1, 2, 2, 3, 3}, out)
	})

	t.Run("Channels_Mono_to_Stereo", func(t *testing.T) {
		inFmt := Format{
			Channels:   1,
			SampleRate: 44100,
			PCMFormat:  types.PCMFormatU8,
		}
		outFmt := Format{
			Channels:   2,
			SampleRate: 44100,
			PCMFormat:  types.PCMFormatU8,
		}
		data := []byte{10, 20, 30}
		r, err := NewResampler(inFmt, bytes.NewReader(data), outFmt)
		require.NoError(t, err)

		out := make([]byte, 6)
		n, err := r.Read(out)
		assert.NoError(t, err)
		assert.Equal(t, 6, n)
		assert.Equal(t, []byte{10, 10, 20, 20, 30, 30}, out)
	})

	t.Run("Channels_Stereo_to_Mono", func(t *testing.T) {
		inFmt := Format{
			Channels:   2,
			SampleRate: 44100,
			PCMFormat:  types.PCMFormatU8,
		}
		outFmt := Format{
			Channels:   1,
			SampleRate: 44100,
			PCMFormat:  types.PCMFormatU8,
		}
		data := []byte{100, 200, 50, 150}
		r, err := NewResampler(inFmt, bytes.NewReader(data), outFmt)
		require.NoError(t, err)

		out := make([]byte, 2)
		n, err := r.Read(out)
		assert.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, byte(150), out[0]) // (100+200)/2
		assert.Equal(t, byte(100), out[1]) // (50+150)/2
	})

	t.Run("Unsupported_Channels", func(t *testing.T) {
		_, err := NewResampler(
			Format{Channels: 2, SampleRate: 44100, PCMFormat: types.PCMFormatU8},
			bytes.NewReader(nil),
			Format{Channels: 3, SampleRate: 44100, PCMFormat: types.PCMFormatU8},
		)
		assert.Error(t, err)
	})

	t.Run("Short_Buffer", func(t *testing.T) {
		f := Format{Channels: 2, SampleRate: 44100, PCMFormat: types.PCMFormatS16LE}
		r, err := NewResampler(f, bytes.NewReader(make([]byte, 8)), f)
		require.NoError(t, err)
		_, err = r.Read(make([]byte, 3))
		assert.ErrorIs(t, err, io.ErrShortBuffer)
	})
}
