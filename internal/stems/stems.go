// Package stems holds the decoded audio for a loaded track: four
// equal-length stereo stem buffers. A StemBuffers value can run to hundreds
// of megabytes, so decks hold them only through reclaim-tracked handles;
// replacing a track on the audio thread releases the old handle and the
// reclaim goroutine absorbs the teardown.
package stems

import (
	"fmt"

	"mesh-engine/internal/reclaim"
	"mesh-engine/internal/types"
)

// StemBuffers is the immutable audio payload of one track. Built off the
// audio thread; never mutated after publication to a deck.
type StemBuffers struct {
	// Stems holds one buffer per stem, all of equal length.
	Stems [types.NumStems]types.StereoBuffer
	// TotalFrames is the length of every stem buffer.
	TotalFrames uint64
	// SampleRate is the rate the audio was decoded at. The engine does not
	// resample; a mismatch with the engine rate is the loader's bug.
	SampleRate int
}

// Handle is a reclaim-tracked reference to a StemBuffers.
type Handle = reclaim.Handle[StemBuffers]

// New validates the four stem buffers and wraps them. All stems must have
// the same length.
func New(stemBufs [types.NumStems]types.StereoBuffer, sampleRate int) (*StemBuffers, error) {
	n := len(stemBufs[0])
	for i := 1; i < types.NumStems; i++ {
		if len(stemBufs[i]) != n {
			return nil, fmt.Errorf("stem %v length %d does not match stem %v length %d",
				types.Stem(i), len(stemBufs[i]), types.Stem(0), n)
		}
	}
	return &StemBuffers{
		Stems:       stemBufs,
		TotalFrames: uint64(n),
		SampleRate:  sampleRate,
	}, nil
}

// NewSilent returns stem buffers of the given length filled with silence.
// Used by tests and by the demo player before a real track is loaded.
func NewSilent(frames uint64, sampleRate int) *StemBuffers {
	var bufs [types.NumStems]types.StereoBuffer
	for i := range bufs {
		bufs[i] = types.NewStereoBuffer(int(frames))
	}
	return &StemBuffers{Stems: bufs, TotalFrames: frames, SampleRate: sampleRate}
}

// Track wraps the buffers in a reclaim handle for publication to a deck.
func Track(sb *StemBuffers) Handle {
	return reclaim.New(sb)
}

// Sample returns the frame at pos for one stem, or silence when pos is out
// of range. The bounds check is the "missing data means silence" policy.
func (sb *StemBuffers) Sample(stem types.Stem, pos uint64) types.StereoSample {
	if sb == nil || pos >= sb.TotalFrames {
		return types.Silence
	}
	return sb.Stems[stem][pos]
}

// SampleLerp returns the linearly interpolated frame at a fractional
// position. Out-of-range positions produce silence.
func (sb *StemBuffers) SampleLerp(stem types.Stem, pos float64) types.StereoSample {
	if sb == nil || pos < 0 {
		return types.Silence
	}
	i := uint64(pos)
	if i >= sb.TotalFrames {
		return types.Silence
	}
	a := sb.Stems[stem][i]
	if i+1 >= sb.TotalFrames {
		return a
	}
	b := sb.Stems[stem][i+1]
	frac := float32(pos - float64(i))
	return types.StereoSample{
		Left:  a.Left + (b.Left-a.Left)*frac,
		Right: a.Right + (b.Right-a.Right)*frac,
	}
}
