// Package stretch adjusts playback tempo without changing pitch.
//
// The stretcher is a windowed overlap-add resynthesizer: input audio is cut
// into Hann-windowed grains, and grains are laid down at a fixed synthesis
// hop while the analysis position advances by hop ÷ ratio. The ratio is
// targetBPM / trackBPM: one output second covers 1/ratio seconds of input,
// which is exactly how far the deck advances its playhead per block. A
// unity ratio takes a straight pass-through path.
//
// All working buffers are preallocated in New; Process never allocates and
// is safe on the audio thread. The reported input/output latencies are
// fixed for the life of the stretcher and are folded into the stem path's
// total latency for compensation.
package stretch

import (
	"math"

	"mesh-engine/internal/types"
)

const (
	// grainSize is the analysis/synthesis window length.
	grainSize = 512
	// hopSize is the synthesis hop (75% overlap).
	hopSize = grainSize / 4
	// windowNorm compensates the constant overlap sum of a Hann window at
	// 75% overlap (which is 2).
	windowNorm = 0.5

	// MinRatio and MaxRatio bound the stretch ratio; commands outside the
	// range are clamped.
	MinRatio = 0.5
	MaxRatio = 2.0
)

// hannWindow is shared by every stretcher instance.
var hannWindow [grainSize]float32

func init() {
	for i := range hannWindow {
		hannWindow[i] = float32(0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(grainSize))))
	}
}

// TimeStretcher stretches one stem's stereo stream.
type TimeStretcher struct {
	ratio float64

	// fifo buffers input awaiting analysis; readPos is the fractional
	// analysis position within it.
	fifo    types.StereoBuffer
	fifoLen int
	readPos float64

	// acc is the overlap-add accumulator; ready holds synthesized frames
	// not yet emitted.
	acc      [grainSize]types.StereoSample
	ready    [hopSize]types.StereoSample
	readyLen int
	readyPos int
}

// New creates a stretcher at unity ratio. The fifo is sized for the worst
// case of a maximum block at the minimum ratio, where each output frame
// consumes the most input.
func New() *TimeStretcher {
	return &TimeStretcher{
		ratio: 1.0,
		fifo:  types.NewStereoBuffer(4*types.MaxBlockFrames + grainSize),
	}
}

// RatioFromBPM derives the stretch ratio playing a trackBPM track at
// targetBPM.
func RatioFromBPM(trackBPM, targetBPM float64) float64 {
	if trackBPM <= 0 {
		return 1.0
	}
	return targetBPM / trackBPM
}

// SetRatio sets the stretch ratio, clamped to [MinRatio, MaxRatio].
func (t *TimeStretcher) SetRatio(ratio float64) {
	if ratio < MinRatio {
		ratio = MinRatio
	}
	if ratio > MaxRatio {
		ratio = MaxRatio
	}
	t.ratio = ratio
}

// Ratio returns the current stretch ratio.
func (t *TimeStretcher) Ratio() float64 {
	return t.ratio
}

// SetBPM sets the ratio from track and target tempo.
func (t *TimeStretcher) SetBPM(trackBPM, targetBPM float64) {
	t.SetRatio(RatioFromBPM(trackBPM, targetBPM))
}

// InputLatency is the number of input samples buffered before the first
// output emerges.
func (t *TimeStretcher) InputLatency() int { return grainSize }

// OutputLatency is the synthesis-side delay.
func (t *TimeStretcher) OutputLatency() int { return hopSize }

// TotalLatency is the figure latency compensation uses for this stem.
func (t *TimeStretcher) TotalLatency() int {
	return t.InputLatency() + t.OutputLatency()
}

// Reset discards all buffered audio. Called on track load and on every
// discontinuous playhead move (seek, cue, hot-cue jump), but not on loop
// wraps, which are continuous audio.
func (t *TimeStretcher) Reset() {
	t.fifoLen = 0
	t.readPos = 0
	t.readyLen = 0
	t.readyPos = 0
	for i := range t.acc {
		t.acc[i] = types.Silence
	}
}

// Process consumes input and writes exactly len(output) frames. When the
// ratio is unity the input is copied straight through. Otherwise the OLA
// pipeline runs; if buffered input runs dry the remainder of the output is
// silence (the deck treats an exhausted source the same way).
func (t *TimeStretcher) Process(input, output types.StereoBuffer) {
	if t.ratio == 1.0 {
		n := copy(output, input)
		for i := n; i < len(output); i++ {
			output[i] = types.Silence
		}
		return
	}

	t.push(input)

	for i := range output {
		if t.readyLen == 0 && !t.synthesize() {
			for ; i < len(output); i++ {
				output[i] = types.Silence
			}
			break
		}
		output[i] = t.ready[t.readyPos]
		t.readyPos++
		t.readyLen--
		if t.readyLen == 0 {
			t.readyPos = 0
		}
	}

	t.compact()
}

// Flush drains residual synthesis state into output, padding with silence,
// then resets the stretcher. The deck does not call it: Pause keeps the
// stretcher state so resume is seamless.
func (t *TimeStretcher) Flush(output types.StereoBuffer) {
	for i := range output {
		if t.readyLen == 0 && !t.synthesize() {
			output[i] = types.Silence
			continue
		}
		output[i] = t.ready[t.readyPos]
		t.readyPos++
		t.readyLen--
		if t.readyLen == 0 {
			t.readyPos = 0
		}
	}
	t.Reset()
}

// push appends input to the fifo, dropping the oldest audio on overflow.
// Overflow cannot happen with engine-sized blocks; the guard is there for
// hostile callers only.
func (t *TimeStretcher) push(input types.StereoBuffer) {
	n := len(input)
	if n > len(t.fifo) {
		input = input[n-len(t.fifo):]
		n = len(input)
	}
	if t.fifoLen+n > len(t.fifo) {
		drop := t.fifoLen + n - len(t.fifo)
		copy(t.fifo, t.fifo[drop:t.fifoLen])
		t.fifoLen -= drop
		t.readPos -= float64(drop)
		if t.readPos < 0 {
			t.readPos = 0
		}
	}
	copy(t.fifo[t.fifoLen:], input)
	t.fifoLen += n
}

// synthesize overlap-adds one grain and moves hopSize frames into the ready
// buffer. Returns false when not enough input is buffered.
func (t *TimeStretcher) synthesize() bool {
	base := int(t.readPos)
	if base+grainSize > t.fifoLen {
		return false
	}

	for i := 0; i < grainSize; i++ {
		s := t.fifo[base+i]
		w := hannWindow[i] * windowNorm
		t.acc[i].Left += s.Left * w
		t.acc[i].Right += s.Right * w
	}

	copy(t.ready[:], t.acc[:hopSize])
	t.readyLen = hopSize
	t.readyPos = 0

	copy(t.acc[:], t.acc[hopSize:])
	for i := grainSize - hopSize; i < grainSize; i++ {
		t.acc[i] = types.Silence
	}

	t.readPos += float64(hopSize) / t.ratio
	return true
}

// compact discards fully consumed fifo history, keeping the fractional
// read remainder.
func (t *TimeStretcher) compact() {
	base := int(t.readPos)
	if base == 0 {
		return
	}
	if base > t.fifoLen {
		base = t.fifoLen
	}
	copy(t.fifo, t.fifo[base:t.fifoLen])
	t.fifoLen -= base
	t.readPos -= float64(base)
}
