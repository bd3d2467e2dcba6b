package dsp

import "math"

// BiquadKind selects the response shape of a Biquad.
type BiquadKind int

const (
	// LowShelf boosts or cuts below the corner frequency.
	LowShelf BiquadKind = iota
	// HighShelf boosts or cuts above the corner frequency.
	HighShelf
	// Peaking boosts or cuts a band around the center frequency.
	Peaking
)

// Biquad is a stereo direct-form-I biquad with RBJ cookbook coefficients.
// Used for the mixer's three EQ bands.
type Biquad struct {
	sampleRate float64
	kind       BiquadKind

	b0, b1, b2, a1, a2 float32

	// History per channel.
	x1L, x2L, y1L, y2L float32
	x1R, x2R, y1R, y2R float32
}

// NewBiquad creates a flat (0 dB) filter of the given kind.
func NewBiquad(kind BiquadKind, freq float64, sampleRate int) *Biquad {
	b := &Biquad{sampleRate: float64(sampleRate), kind: kind}
	b.SetGain(freq, 0)
	return b
}

// SetGain recomputes coefficients for the given corner/center frequency and
// gain in dB. Called on parameter change only, never per sample.
func (b *Biquad) SetGain(freq, gainDB float64) {
	a := math.Pow(10, gainDB/40)
	w0 := 2 * math.Pi * freq / b.sampleRate
	cosW0 := math.Cos(w0)
	sinW0 := math.Sin(w0)
	// Fixed shelf slope / peak width.
	const q = 0.707
	alpha := sinW0 / (2 * q)

	var b0, b1, b2, a0, a1, a2 float64
	switch b.kind {
	case LowShelf:
		sqrtA2Alpha := 2 * math.Sqrt(a) * alpha
		b0 = a * ((a + 1) - (a-1)*cosW0 + sqrtA2Alpha)
		b1 = 2 * a * ((a - 1) - (a+1)*cosW0)
		b2 = a * ((a + 1) - (a-1)*cosW0 - sqrtA2Alpha)
		a0 = (a + 1) + (a-1)*cosW0 + sqrtA2Alpha
		a1 = -2 * ((a - 1) + (a+1)*cosW0)
		a2 = (a + 1) + (a-1)*cosW0 - sqrtA2Alpha
	case HighShelf:
		sqrtA2Alpha := 2 * math.Sqrt(a) * alpha
		b0 = a * ((a + 1) + (a-1)*cosW0 + sqrtA2Alpha)
		b1 = -2 * a * ((a - 1) + (a+1)*cosW0)
		b2 = a * ((a + 1) + (a-1)*cosW0 - sqrtA2Alpha)
		a0 = (a + 1) - (a-1)*cosW0 + sqrtA2Alpha
		a1 = 2 * ((a - 1) - (a+1)*cosW0)
		a2 = (a + 1) - (a-1)*cosW0 - sqrtA2Alpha
	default: // Peaking
		b0 = 1 + alpha*a
		b1 = -2 * cosW0
		b2 = 1 - alpha*a
		a0 = 1 + alpha/a
		a1 = -2 * cosW0
		a2 = 1 - alpha/a
	}

	b.b0 = float32(b0 / a0)
	b.b1 = float32(b1 / a0)
	b.b2 = float32(b2 / a0)
	b.a1 = float32(a1 / a0)
	b.a2 = float32(a2 / a0)
}

// Process advances the filter by one stereo frame.
func (b *Biquad) Process(left, right float32) (float32, float32) {
	outL := b.b0*left + b.b1*b.x1L + b.b2*b.x2L - b.a1*b.y1L - b.a2*b.y2L
	b.x2L, b.x1L = b.x1L, left
	b.y2L, b.y1L = b.y1L, outL

	outR := b.b0*right + b.b1*b.x1R + b.b2*b.x2R - b.a1*b.y1R - b.a2*b.y2R
	b.x2R, b.x1R = b.x1R, right
	b.y2R, b.y1R = b.y1R, outR

	return outL, outR
}

// Reset clears the filter history.
func (b *Biquad) Reset() {
	b.x1L, b.x2L, b.y1L, b.y2L = 0, 0, 0, 0
	b.x1R, b.x2R, b.y1R, b.y2R = 0, 0, 0, 0
}
