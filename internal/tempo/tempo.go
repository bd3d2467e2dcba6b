// Package tempo is the sync coordinator: the global BPM cell, the master
// deck designation, and the beat-phase alignment math used when a deck
// syncs to the master.
//
// The BPM and master-deck cells are ordinary atomics: commands set them,
// the engine recomputes each deck's stretch ratio from the BPM when it or a
// deck's track changes, and the UI may read them at will.
package tempo

import (
	"math"
	"sync/atomic"

	"mesh-engine/internal/beatgrid"
	"mesh-engine/internal/stretch"
)

// DefaultBPM is the global tempo before any command sets one.
const DefaultBPM = 120.0

// Coordinator holds the global sync state.
type Coordinator struct {
	// bpmBits stores the global BPM as float64 bits.
	bpmBits    atomic.Uint64
	masterDeck atomic.Int32
	enabled    atomic.Bool
}

// New creates a coordinator at the default tempo with deck 0 as master and
// phase sync enabled.
func New() *Coordinator {
	c := &Coordinator{}
	c.SetGlobalBPM(DefaultBPM)
	c.enabled.Store(true)
	return c
}

// SetGlobalBPM installs a new global tempo. Non-positive values are
// ignored.
func (c *Coordinator) SetGlobalBPM(bpm float64) {
	if bpm <= 0 {
		return
	}
	c.bpmBits.Store(math.Float64bits(bpm))
}

// GlobalBPM returns the global tempo.
func (c *Coordinator) GlobalBPM() float64 {
	return math.Float64frombits(c.bpmBits.Load())
}

// SetMasterDeck designates the phase reference deck.
func (c *Coordinator) SetMasterDeck(idx int) {
	c.masterDeck.Store(int32(idx))
}

// MasterDeck returns the phase reference deck index.
func (c *Coordinator) MasterDeck() int {
	return int(c.masterDeck.Load())
}

// SetEnabled toggles phase sync.
func (c *Coordinator) SetEnabled(on bool) {
	c.enabled.Store(on)
}

// Enabled reports whether phase sync is on.
func (c *Coordinator) Enabled() bool {
	return c.enabled.Load()
}

// RatioFor computes the time-stretch ratio a deck needs to play a trackBPM
// track at the global tempo, clamped to the stretcher's range.
func (c *Coordinator) RatioFor(trackBPM float64) float64 {
	r := stretch.RatioFromBPM(trackBPM, c.GlobalBPM())
	if r < stretch.MinRatio {
		r = stretch.MinRatio
	}
	if r > stretch.MaxRatio {
		r = stretch.MaxRatio
	}
	return r
}

// AlignPhase returns the position a syncing deck's playhead should jump to
// so its beat phase matches the master's. The master's fraction through its
// current beat is reproduced on the slave's grid, choosing the candidate
// beat that minimizes the jump from the slave's current position.
func AlignPhase(slave *beatgrid.Grid, slavePos uint64, master *beatgrid.Grid, masterPos uint64, sampleRate int) uint64 {
	if slave.Empty() || master.Empty() {
		return slavePos
	}
	spbM := master.SamplesPerBeat(sampleRate)
	spbS := slave.SamplesPerBeat(sampleRate)
	if spbM <= 0 || spbS <= 0 {
		return slavePos
	}

	mBeat := master.LastBeatAt(masterPos)
	frac := 0.0
	if masterPos > mBeat {
		frac = float64(masterPos-mBeat) / spbM
	}

	sBeat := slave.LastBeatAt(slavePos)
	base := float64(sBeat) + frac*spbS

	// The same phase recurs every beat; take the occurrence closest to
	// where the slave already is.
	best := base
	bestDist := math.Abs(base - float64(slavePos))
	for _, cand := range [...]float64{base - spbS, base + spbS} {
		if cand < 0 {
			continue
		}
		if d := math.Abs(cand - float64(slavePos)); d < bestDist {
			best, bestDist = cand, d
		}
	}
	return uint64(best)
}
