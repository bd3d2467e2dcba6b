// Package effects defines the effect surface the engine understands and the
// chain that applies effects to a stem.
//
// Effects are opaque to the engine: it only ever calls Process,
// LatencySamples, SetParam, SetBypass, and Reset. Hosted (foreign) effects
// that need internal cross-thread coordination additionally implement
// TryLocker; when their try-lock fails during a block the chain passes audio
// through unchanged rather than stall the audio thread.
package effects

import "mesh-engine/internal/types"

// Effect is the capability set the engine requires of every effect. All
// methods are called on the audio thread only.
type Effect interface {
	// Process applies the effect to the buffer in place.
	Process(buf types.StereoBuffer)
	// LatencySamples reports the fixed processing delay this effect
	// introduces. The chain sums these for latency compensation.
	LatencySamples() int
	// SetParam sets parameter idx to value. Unknown indices are ignored.
	SetParam(idx int, value float32)
	// SetBypass toggles the effect. A bypassed effect must not touch audio
	// and must report zero latency.
	SetBypass(bypass bool)
	// Bypassed reports the current bypass state.
	Bypassed() bool
	// Reset clears internal audio state (on seeks and track changes).
	Reset()
}

// TryLocker is implemented by hosted effects whose Process may contend with
// a non-audio thread. TryLock must never block; a false return means the
// chain skips the effect for the current block.
type TryLocker interface {
	TryLock() bool
	Unlock()
}

// base carries the param/bypass bookkeeping shared by the native effects.
type base struct {
	params   []float32
	bypassed bool
}

func newBase(defaults ...float32) base {
	p := make([]float32, len(defaults))
	copy(p, defaults)
	return base{params: p}
}

func (b *base) SetParam(idx int, value float32) {
	if idx >= 0 && idx < len(b.params) {
		b.params[idx] = value
	}
}

func (b *base) param(idx int) float32 {
	return b.params[idx]
}

func (b *base) SetBypass(bypass bool) { b.bypassed = bypass }
func (b *base) Bypassed() bool        { return b.bypassed }
