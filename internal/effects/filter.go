package effects

import (
	"math"

	"mesh-engine/internal/dsp"
	"mesh-engine/internal/types"
)

// DJFilter parameter indices.
const (
	FilterParamPosition  = 0 // -1 full LP .. 0 flat .. +1 full HP
	FilterParamResonance = 1 // Q
)

// filterDeadZone is the flat region around center where the filter is
// effectively bypassed.
const filterDeadZone = 0.02

// DJFilter is the one-knob DJ filter: the left half of its travel sweeps a
// low-pass down from 20 kHz to 100 Hz, the right half sweeps a high-pass up
// from 20 Hz to 5 kHz, and a dead zone around center leaves the signal
// untouched.
type DJFilter struct {
	base
	filter *dsp.SVF
}

// NewDJFilter creates a filter at the given sample rate, centered (flat).
func NewDJFilter(sampleRate int) *DJFilter {
	return &DJFilter{
		base:   newBase(0, 0.707),
		filter: dsp.NewSVF(sampleRate),
	}
}

func (f *DJFilter) Process(buf types.StereoBuffer) {
	position := float64(f.param(FilterParamPosition))
	if math.Abs(position) < filterDeadZone {
		return
	}

	q := float64(f.param(FilterParamResonance))
	if q < 0.5 {
		q = 0.5
	}
	f.filter.SetParams(dsp.DJFilterCutoff(position), q)

	lowpass := position < 0
	for i := range buf {
		out := f.filter.Process(buf[i].Left, buf[i].Right)
		if lowpass {
			buf[i].Left = out.LowL
			buf[i].Right = out.LowR
		} else {
			buf[i].Left = out.HighL
			buf[i].Right = out.HighR
		}
	}
}

func (f *DJFilter) SetParam(idx int, value float32) {
	if idx == FilterParamPosition {
		if value < -1 {
			value = -1
		}
		if value > 1 {
			value = 1
		}
	}
	f.base.SetParam(idx, value)
}

func (f *DJFilter) LatencySamples() int { return 0 }
func (f *DJFilter) Reset()              { f.filter.Reset() }
