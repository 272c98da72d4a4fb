package resampler

import (
	"fmt"
	"io"
	"sync"

	"github.com/xaionaro-go/audiosender/pkg/audio/types"
)

type Format = types.Format

// Resampler converts an interleaved PCM stream from one Format to another.
//
// Sample rate conversion is nearest-neighbour on whole frames: frames are
// dropped or repeated, channels are never mixed up. Channel conversion
// supports mono to N (replication), N to mono (averaging) and identity.
type Resampler struct {
	inReader  io.Reader
	inFormat  Format
	outFormat Format
	locker    sync.Mutex

	inFrameSize  uint
	outFrameSize uint

	inBuf    []byte
	inBufPos int

	// frameValues is the last decoded input frame, already mapped to the
	// output channels.
	frameValues   []float64
	framesDecoded uint64
	framesEmitted uint64
	pendingErr    error
}

var _ io.Reader = (*Resampler)(nil)

func NewResampler(
	inFormat Format,
	inReader io.Reader,
	outFormat Format,
) (*Resampler, error) {
	r := &Resampler{
		inReader:  inReader,
		inFormat:  inFormat,
		outFormat: outFormat,
	}
	err := r.init()
	if err != nil {
		return nil, fmt.Errorf("unable to initialize a resampler from %s to %s: %w", inFormat, outFormat, err)
	}
	return r, nil
}

func (r *Resampler) init() error {
	for _, f := range []Format{r.inFormat, r.outFormat} {
		if f.PCMFormat.Size() == 0 {
			return fmt.Errorf("unsupported PCM format %s", f.PCMFormat)
		}
		if f.Channels == 0 {
			return fmt.Errorf("the amount of channels is zero")
		}
		if f.SampleRate == 0 {
			return fmt.Errorf("the sample rate is zero")
		}
	}
	if r.inFormat.Channels != r.outFormat.Channels && r.inFormat.Channels != 1 && r.outFormat.Channels != 1 {
		return fmt.Errorf("do not know how to convert %d channels to %d", r.inFormat.Channels, r.outFormat.Channels)
	}

	r.inFrameSize = r.inFormat.FrameSize()
	r.outFrameSize = r.outFormat.FrameSize()
	r.frameValues = make([]float64, r.outFormat.Channels)
	return nil
}

// Read fills p with whole output frames. It blocks only if not a single
// output frame can be produced from the data already received.
func (r *Resampler) Read(p []byte) (int, error) {
	r.locker.Lock()
	defer r.locker.Unlock()

	maxOutFrames := uint64(len(p)) / uint64(r.outFrameSize)
	if maxOutFrames == 0 {
		return 0, io.ErrShortBuffer
	}

	var produced uint64
	for produced < maxOutFrames {
		needInFrame := r.framesEmitted * uint64(r.inFormat.SampleRate) / uint64(r.outFormat.SampleRate)
		for r.framesDecoded <= needInFrame {
			if !r.haveInFrame() {
				if produced > 0 {
					return int(produced * uint64(r.outFrameSize)), nil
				}
				if err := r.fill(); err != nil {
					return 0, err
				}
			}
			r.decodeFrame()
		}

		dst := p[produced*uint64(r.outFrameSize):]
		for ch, v := range r.frameValues {
			setFloat64(r.outFormat.PCMFormat, dst[uint(ch)*r.outFormat.PCMFormat.Size():], v)
		}
		produced++
		r.framesEmitted++
	}
	return int(produced * uint64(r.outFrameSize)), nil
}

func (r *Resampler) haveInFrame() bool {
	return len(r.inBuf)-r.inBufPos >= int(r.inFrameSize)
}

// fill reads from the backend until at least one whole input frame is buffered.
func (r *Resampler) fill() error {
	if r.pendingErr != nil {
		return r.pendingErr
	}

	leftover := copy(r.inBuf[:cap(r.inBuf)], r.inBuf[r.inBufPos:])
	r.inBuf = r.inBuf[:leftover]
	r.inBufPos = 0

	wantSize := 64 * int(r.inFrameSize)
	if cap(r.inBuf) < wantSize {
		newBuf := make([]byte, leftover, wantSize)
		copy(newBuf, r.inBuf)
		r.inBuf = newBuf
	}

	for !r.haveInFrame() {
		n, err := r.inReader.Read(r.inBuf[len(r.inBuf):cap(r.inBuf)])
		r.inBuf = r.inBuf[:len(r.inBuf)+n]
		if err != nil {
			if r.haveInFrame() {
				r.pendingErr = err
				return nil
			}
			return err
		}
	}
	return nil
}

func (r *Resampler) decodeFrame() {
	frame := r.inBuf[r.inBufPos : r.inBufPos+int(r.inFrameSize)]
	r.inBufPos += int(r.inFrameSize)
	r.framesDecoded++

	sampleSize := r.inFormat.PCMFormat.Size()
	inChannels := uint(r.inFormat.Channels)
	outChannels := uint(r.outFormat.Channels)
	switch {
	case inChannels == outChannels:
		for ch := uint(0); ch < inChannels; ch++ {
			r.frameValues[ch] = getFloat64(r.inFormat.PCMFormat, frame[ch*sampleSize:])
		}
	case inChannels == 1:
		v := getFloat64(r.inFormat.PCMFormat, frame)
		for ch := range r.frameValues {
			r.frameValues[ch] = v
		}
	default:
		var sum float64
		for ch := uint(0); ch < inChannels; ch++ {
			sum += getFloat64(r.inFormat.PCMFormat, frame[ch*sampleSize:])
		}
		r.frameValues[0] = sum / float64(inChannels)
	}
}
