// Package dsp holds the small stateful filter kernels shared by the mixer
// and the native effects. Coefficients are cached and recomputed only on
// parameter change; the per-sample paths are branch-light and
// allocation-free.
package dsp

import "math"

// SVF is a two-pole (12 dB/octave) state-variable filter processing both
// channels of a stereo signal. Topology and coefficient derivation follow
// the Andrew Simper "linear trapezoidal" SVF.
type SVF struct {
	sampleRate float64

	// Integrator state per channel.
	ic1eqL, ic2eqL float32
	ic1eqR, ic2eqR float32

	// Cached coefficients.
	g, k, a1, a2, a3 float32
}

// NewSVF creates a filter at the given sample rate with a neutral setting.
func NewSVF(sampleRate int) *SVF {
	f := &SVF{sampleRate: float64(sampleRate)}
	f.SetParams(1000, 0.707)
	return f
}

// SetParams updates cutoff (Hz) and resonance (Q), recomputing the cached
// coefficients. Cutoff is clamped to [20, 20000], Q to [0.1, 10].
func (f *SVF) SetParams(cutoff, q float64) {
	cutoff = math.Min(math.Max(cutoff, 20), 20000)
	q = math.Min(math.Max(q, 0.1), 10)

	g := float32(math.Tan(math.Pi * cutoff / f.sampleRate))
	k := float32(1.0 / q)
	f.g = g
	f.k = k
	f.a1 = 1.0 / (1.0 + g*(g+k))
	f.a2 = g * f.a1
	f.a3 = g * f.a2
}

// Outputs holds one channel pair for each filter response.
type Outputs struct {
	LowL, LowR   float32
	HighL, HighR float32
	BandL, BandR float32
}

// Process advances the filter by one stereo frame and returns the lowpass,
// highpass, and bandpass outputs.
func (f *SVF) Process(left, right float32) Outputs {
	v3l := left - f.ic2eqL
	v1l := f.a1*f.ic1eqL + f.a2*v3l
	v2l := f.ic2eqL + f.a2*f.ic1eqL + f.a3*v3l
	f.ic1eqL = 2*v1l - f.ic1eqL
	f.ic2eqL = 2*v2l - f.ic2eqL

	v3r := right - f.ic2eqR
	v1r := f.a1*f.ic1eqR + f.a2*v3r
	v2r := f.ic2eqR + f.a2*f.ic1eqR + f.a3*v3r
	f.ic1eqR = 2*v1r - f.ic1eqR
	f.ic2eqR = 2*v2r - f.ic2eqR

	return Outputs{
		LowL: v2l, LowR: v2r,
		BandL: v1l, BandR: v1r,
		HighL: left - f.k*v1l - v2l,
		HighR: right - f.k*v1r - v2r,
	}
}

// Reset clears the integrator state (call on seeks and track changes to
// avoid smearing old audio into the new position).
func (f *SVF) Reset() {
	f.ic1eqL, f.ic2eqL = 0, 0
	f.ic1eqR, f.ic2eqR = 0, 0
}

// DJFilterCutoff maps a one-knob filter position in [-1, 1] to a cutoff
// frequency: the negative half sweeps a low-pass down from 20 kHz to
// 100 Hz, the positive half sweeps a high-pass up from 20 Hz to 5 kHz.
// Both sweeps are exponential.
func DJFilterCutoff(position float64) float64 {
	if position < 0 {
		t := 1 + position
		return 100 * math.Pow(200, t)
	}
	return 20 * math.Pow(250, position)
}
