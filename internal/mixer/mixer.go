// Package mixer sums the four deck outputs into the master and cue buses.
//
// Each channel strip runs filter → EQ → volume; the result feeds the master
// bus through the crossfader curve and, when the channel's cue button is
// lit, the cue (PFL) bus at unity. Filter and EQ coefficients are cached
// and recomputed only when a parameter changes, never per sample.
package mixer

import (
	"math"

	"mesh-engine/internal/dsp"
	"mesh-engine/internal/types"
)

// filterDeadZone matches the one-knob filter's flat region around center.
const filterDeadZone = 0.02

// EQ band corner frequencies.
const (
	eqLowFreq  = 250
	eqMidFreq  = 1000
	eqHighFreq = 4000
)

// eqRangeDB is the boost/cut at the ends of an EQ knob's travel.
const eqRangeDB = 12.0

// channelStrip is the per-deck DSP state.
type channelStrip struct {
	volume    float32
	filterPos float64
	eq        [3]float64 // low, mid, high in [0,1], 0.5 neutral
	cuePFL    bool

	filter *dsp.SVF
	eqLow  *dsp.Biquad
	eqMid  *dsp.Biquad
	eqHigh *dsp.Biquad
}

// Mixer owns the channel strips and the crossfader.
type Mixer struct {
	channels [types.NumDecks]channelStrip

	// crossfader position in [-1, 1]: -1 full A (decks 0 and 1),
	// +1 full B (decks 2 and 3).
	crossfader float64
	gainA      float32
	gainB      float32
}

// New creates a mixer with all channels at unity, EQs flat, filters
// centered, crossfader centered.
func New(sampleRate int) *Mixer {
	m := &Mixer{}
	for i := range m.channels {
		ch := &m.channels[i]
		ch.volume = 1
		ch.eq = [3]float64{0.5, 0.5, 0.5}
		ch.filter = dsp.NewSVF(sampleRate)
		ch.eqLow = dsp.NewBiquad(dsp.LowShelf, eqLowFreq, sampleRate)
		ch.eqMid = dsp.NewBiquad(dsp.Peaking, eqMidFreq, sampleRate)
		ch.eqHigh = dsp.NewBiquad(dsp.HighShelf, eqHighFreq, sampleRate)
	}
	m.SetCrossfader(0)
	return m
}

// SetVolume sets a channel's linear volume, clamped to [0, 1].
func (m *Mixer) SetVolume(channel int, v float64) {
	if channel < 0 || channel >= types.NumDecks {
		return
	}
	m.channels[channel].volume = float32(clamp(v, 0, 1))
}

// SetFilter sets a channel's one-knob filter position in [-1, 1].
func (m *Mixer) SetFilter(channel int, pos float64) {
	if channel < 0 || channel >= types.NumDecks {
		return
	}
	ch := &m.channels[channel]
	ch.filterPos = clamp(pos, -1, 1)
	if math.Abs(ch.filterPos) >= filterDeadZone {
		ch.filter.SetParams(dsp.DJFilterCutoff(ch.filterPos), 0.707)
	}
}

// EQ band indices for SetEQ.
const (
	BandLow = iota
	BandMid
	BandHigh
)

// SetEQ sets one EQ band in [0, 1] (0.5 neutral, ends are +-12 dB).
func (m *Mixer) SetEQ(channel, band int, v float64) {
	if channel < 0 || channel >= types.NumDecks || band < BandLow || band > BandHigh {
		return
	}
	ch := &m.channels[channel]
	v = clamp(v, 0, 1)
	ch.eq[band] = v
	gainDB := (v - 0.5) * 2 * eqRangeDB
	switch band {
	case BandLow:
		ch.eqLow.SetGain(eqLowFreq, gainDB)
	case BandMid:
		ch.eqMid.SetGain(eqMidFreq, gainDB)
	default:
		ch.eqHigh.SetGain(eqHighFreq, gainDB)
	}
}

// SetCuePFL routes a channel to the cue bus.
func (m *Mixer) SetCuePFL(channel int, on bool) {
	if channel < 0 || channel >= types.NumDecks {
		return
	}
	m.channels[channel].cuePFL = on
}

// SetCrossfader sets the crossfader position in [-1, 1] and recomputes the
// constant-power side gains.
func (m *Mixer) SetCrossfader(pos float64) {
	m.crossfader = clamp(pos, -1, 1)
	t := (m.crossfader + 1) / 2
	m.gainA = float32(math.Cos(t * math.Pi / 2))
	m.gainB = float32(math.Sin(t * math.Pi / 2))
}

// Crossfader returns the current position.
func (m *Mixer) Crossfader() float64 {
	return m.crossfader
}

// sideGain returns the crossfader gain applied to a channel: decks 0 and 1
// ride side A, decks 2 and 3 side B.
func (m *Mixer) sideGain(channel int) float32 {
	if channel < 2 {
		return m.gainA
	}
	return m.gainB
}

// MixChannel runs one deck's block through its strip and accumulates it
// into the buses. Called once per deck per block on the audio thread.
func (m *Mixer) MixChannel(channel int, in types.StereoBuffer, master, cue types.StereoBuffer) {
	if channel < 0 || channel >= types.NumDecks {
		return
	}
	ch := &m.channels[channel]

	useFilter := math.Abs(ch.filterPos) >= filterDeadZone
	lowpass := ch.filterPos < 0
	sideGain := m.sideGain(channel)

	for i := range in {
		l, r := in[i].Left, in[i].Right

		if useFilter {
			out := ch.filter.Process(l, r)
			if lowpass {
				l, r = out.LowL, out.LowR
			} else {
				l, r = out.HighL, out.HighR
			}
		}

		l, r = ch.eqLow.Process(l, r)
		l, r = ch.eqMid.Process(l, r)
		l, r = ch.eqHigh.Process(l, r)

		l *= ch.volume
		r *= ch.volume

		master[i].Left += l * sideGain
		master[i].Right += r * sideGain

		if ch.cuePFL {
			cue[i].Left += l
			cue[i].Right += r
		}
	}
}

// Reset clears the filter and EQ state of every channel (engine reset).
func (m *Mixer) Reset() {
	for i := range m.channels {
		ch := &m.channels[i]
		ch.filter.Reset()
		ch.eqLow.Reset()
		ch.eqMid.Reset()
		ch.eqHigh.Reset()
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
