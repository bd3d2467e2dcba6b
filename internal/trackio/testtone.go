package trackio

import (
	"math"

	"mesh-engine/internal/stems"
	"mesh-engine/internal/types"
)

// TestTrack synthesizes stem material for demos without audio files: a
// different waveform per stem so each path is audibly distinct: sine
// "vocals", noise-burst "drums" on the beat, square sub "bass", and a saw
// pad for "other".
func TestTrack(bpm float64, seconds int, sampleRate int) *stems.StemBuffers {
	frames := uint64(seconds * sampleRate)
	sb := stems.NewSilent(frames, sampleRate)

	samplesPerBeat := float64(sampleRate) * 60.0 / bpm

	// Vocals: 440 Hz sine.
	phase := 0.0
	inc := 440.0 / float64(sampleRate) * 2 * math.Pi
	for i := range sb.Stems[types.StemVocals] {
		v := float32(math.Sin(phase)) * 0.25
		sb.Stems[types.StemVocals][i] = types.StereoSample{Left: v, Right: v}
		phase += inc
		if phase >= 2*math.Pi {
			phase -= 2 * math.Pi
		}
	}

	// Drums: decaying noise burst at each beat, LFSR noise like a chip
	// tone generator.
	lfsr := uint16(1)
	for i := range sb.Stems[types.StemDrums] {
		posInBeat := math.Mod(float64(i), samplesPerBeat)
		if posInBeat < float64(sampleRate)/20 { // 50 ms burst
			feedback := (lfsr & 1) ^ ((lfsr >> 14) & 1)
			lfsr = (lfsr >> 1) | (feedback << 14)
			if lfsr == 0 {
				lfsr = 1
			}
			v := float32(0.4) * float32(1-posInBeat/(float64(sampleRate)/20))
			if lfsr&1 == 0 {
				v = -v
			}
			sb.Stems[types.StemDrums][i] = types.StereoSample{Left: v, Right: v}
		}
	}

	// Bass: 55 Hz square.
	phase = 0
	inc = 55.0 / float64(sampleRate) * 2 * math.Pi
	for i := range sb.Stems[types.StemBass] {
		v := float32(0.3)
		if phase >= math.Pi {
			v = -v
		}
		sb.Stems[types.StemBass][i] = types.StereoSample{Left: v, Right: v}
		phase += inc
		if phase >= 2*math.Pi {
			phase -= 2 * math.Pi
		}
	}

	// Other: 220 Hz sawtooth pad.
	phase = 0
	inc = 220.0 / float64(sampleRate) * 2 * math.Pi
	for i := range sb.Stems[types.StemOther] {
		v := float32(phase/(2*math.Pi))*0.3 - 0.15
		sb.Stems[types.StemOther][i] = types.StereoSample{Left: v, Right: v}
		phase += inc
		if phase >= 2*math.Pi {
			phase -= 2 * math.Pi
		}
	}

	return sb
}
