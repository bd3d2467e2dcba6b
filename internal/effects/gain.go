package effects

import (
	"math"

	"mesh-engine/internal/types"
)

// Gain parameter indices.
const (
	GainParamDB = 0
)

// Gain is a plain level effect: one parameter, gain in dB over [-24, +24].
type Gain struct {
	base
	// cached linear gain, recomputed on SetParam
	linear float32
}

// NewGain creates a unity-gain effect.
func NewGain() *Gain {
	g := &Gain{base: newBase(0)}
	g.linear = 1
	return g
}

func (g *Gain) SetParam(idx int, value float32) {
	if idx == GainParamDB {
		if value < -24 {
			value = -24
		}
		if value > 24 {
			value = 24
		}
		g.linear = float32(math.Pow(10, float64(value)/20))
	}
	g.base.SetParam(idx, value)
}

func (g *Gain) Process(buf types.StereoBuffer) {
	if g.linear == 1 {
		return
	}
	for i := range buf {
		buf[i].Left *= g.linear
		buf[i].Right *= g.linear
	}
}

func (g *Gain) LatencySamples() int { return 0 }
func (g *Gain) Reset()              {}
