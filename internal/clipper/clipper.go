// Package clipper is the master-bus safety clipper.
//
// The algorithm is a ClipOnly2-style stateful soft clip: below the threshold
// the signal passes through untouched; on overshoot a per-channel state
// machine interpolates into and out of the ceiling using the fixed point of
// cos(x) = x (~0.739) as the blending weight, which sounds far smoother than
// a hard clamp. A sample-rate-aware spacing delay (one sample at 48 kHz)
// gives the state machine the slight lookback it needs for smooth exits.
package clipper

import (
	"math"
	"sync/atomic"

	"mesh-engine/internal/types"
)

// hardness is the fixed point of cos(x) = x, the interpolation weight
// favoring the ceiling value.
const hardness = 0.73908513

// softness is the complementary weight favoring the signal value.
const softness = 1 - hardness

// maxSpacing supports sample rates up to ~352.8 kHz.
const maxSpacing = 8

// DefaultThresholdDB is the default clip ceiling.
const DefaultThresholdDB = -0.3

// Clipper processes the master bus in place, left and right independently.
type Clipper struct {
	threshold  float32
	threshHard float32
	threshSoft float32

	lastSample [2]float32
	wasPosClip [2]bool
	wasNegClip [2]bool

	intermediate [2][maxSpacing]float32
	spacing      int

	// clipActive is set whenever clipping engages during a block; the UI
	// reads and clears it.
	clipActive atomic.Bool
	clippedNow bool
}

// New creates a clipper with the default -0.3 dBFS threshold.
func New(sampleRate int) *Clipper {
	return NewWithThresholdDB(sampleRate, DefaultThresholdDB)
}

// NewWithThresholdDB creates a clipper with a custom ceiling in dBFS.
func NewWithThresholdDB(sampleRate int, db float64) *Clipper {
	threshold := float32(math.Pow(10, db/20))
	spacing := sampleRate / 44100
	if spacing < 1 {
		spacing = 1
	}
	if spacing > maxSpacing {
		spacing = maxSpacing
	}
	return &Clipper{
		threshold:  threshold,
		threshHard: threshold * hardness,
		threshSoft: threshold * softness,
		spacing:    spacing,
	}
}

// Threshold returns the ceiling in linear amplitude.
func (c *Clipper) Threshold() float32 {
	return c.threshold
}

// LatencySamples is the spacing delay the clipper introduces.
func (c *Clipper) LatencySamples() int {
	return c.spacing
}

// Indicator returns the clip flag. The audio thread sets it; the UI may
// read and clear it at will.
func (c *Clipper) Indicator() *atomic.Bool {
	return &c.clipActive
}

// Process clips the buffer in place and raises the indicator if any sample
// engaged the ceiling.
func (c *Clipper) Process(buf types.StereoBuffer) {
	c.clippedNow = false
	for i := range buf {
		buf[i].Left = c.processSample(buf[i].Left, 0)
		buf[i].Right = c.processSample(buf[i].Right, 1)
	}
	if c.clippedNow {
		c.clipActive.Store(true)
	}
}

func (c *Clipper) processSample(input float32, ch int) float32 {
	// Bound runaway inputs so the interpolation math stays sane.
	sample := input
	if sample > 4 {
		sample = 4
	}
	if sample < -4 {
		sample = -4
	}

	// Positive clip state machine.
	if c.wasPosClip[ch] {
		if sample < c.lastSample[ch] {
			// Falling away from the ceiling: smooth exit.
			c.lastSample[ch] = c.threshHard + sample*softness
		} else {
			// Still at or rising toward the clip: hold near the ceiling.
			c.lastSample[ch] = c.threshSoft + c.lastSample[ch]*hardness
		}
	}
	c.wasPosClip[ch] = false
	if sample > c.threshold {
		c.wasPosClip[ch] = true
		c.clippedNow = true
		sample = c.threshHard + c.lastSample[ch]*softness
	}

	// Negative clip state machine.
	if c.wasNegClip[ch] {
		if sample > c.lastSample[ch] {
			c.lastSample[ch] = -c.threshHard + sample*softness
		} else {
			c.lastSample[ch] = -c.threshSoft + c.lastSample[ch]*hardness
		}
	}
	c.wasNegClip[ch] = false
	if sample < -c.threshold {
		c.wasNegClip[ch] = true
		c.clippedNow = true
		sample = -c.threshHard + c.lastSample[ch]*softness
	}

	// Spacing delay: the output trails the input by `spacing` samples.
	c.intermediate[ch][c.spacing-1] = sample
	output := c.lastSample[ch]
	c.lastSample[ch] = c.intermediate[ch][0]
	for x := 0; x < c.spacing-1; x++ {
		c.intermediate[ch][x] = c.intermediate[ch][x+1]
	}

	return output
}
