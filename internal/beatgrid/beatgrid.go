// Package beatgrid holds the beat grid installed on a deck: an ordered list
// of sample positions marking beat boundaries, plus the arithmetic the deck
// needs for snapping, loops, and beat jumps.
//
// Grids are computed off the audio thread (by the analysis pipeline feeding
// the engine) and are immutable once installed; a track change replaces the
// grid wholesale.
package beatgrid

import "sort"

// Grid is an immutable beat grid for one track.
type Grid struct {
	// Beats are beat positions as sample indices, strictly increasing,
	// all less than the track length.
	Beats []uint64
	// BPM is the tempo the grid was generated from.
	BPM float64
	// FirstBeat is the sample position of the first beat.
	FirstBeat uint64
}

// Generate builds a fixed-interval grid from a detected BPM and first-beat
// position. A uniform grid is preferred over raw detected beats: it keeps
// tempo sync exact in the player and tolerates slight detection jitter.
func Generate(bpm float64, firstBeat, totalFrames uint64, sampleRate int) *Grid {
	if bpm <= 0 || totalFrames == 0 || firstBeat >= totalFrames {
		return &Grid{BPM: bpm, FirstBeat: firstBeat}
	}

	samplesPerBeat := uint64(float64(sampleRate) * 60.0 / bpm)
	if samplesPerBeat == 0 {
		return &Grid{BPM: bpm, FirstBeat: firstBeat}
	}

	numBeats := (totalFrames - firstBeat) / samplesPerBeat
	beats := make([]uint64, 0, numBeats+1)
	for i := uint64(0); i <= numBeats; i++ {
		pos := firstBeat + i*samplesPerBeat
		if pos >= totalFrames {
			break
		}
		beats = append(beats, pos)
	}
	return &Grid{Beats: beats, BPM: bpm, FirstBeat: firstBeat}
}

// Nudge returns a copy of the grid shifted by offset samples (positive or
// negative), saturating at zero. Used when the downbeat is adjusted by hand.
func (g *Grid) Nudge(offset int64) *Grid {
	beats := make([]uint64, len(g.Beats))
	for i, pos := range g.Beats {
		if offset >= 0 {
			beats[i] = pos + uint64(offset)
		} else {
			neg := uint64(-offset)
			if neg > pos {
				beats[i] = 0
			} else {
				beats[i] = pos - neg
			}
		}
	}
	first := g.FirstBeat
	if len(beats) > 0 {
		first = beats[0]
	}
	return &Grid{Beats: beats, BPM: g.BPM, FirstBeat: first}
}

// Valid reports whether the grid satisfies its invariants against the given
// track length: entries strictly increasing and all < totalFrames.
func (g *Grid) Valid(totalFrames uint64) bool {
	for i, pos := range g.Beats {
		if pos >= totalFrames {
			return false
		}
		if i > 0 && pos <= g.Beats[i-1] {
			return false
		}
	}
	return true
}

// Empty reports whether the grid carries no beats.
func (g *Grid) Empty() bool {
	return g == nil || len(g.Beats) == 0
}

// SamplesPerBeat returns the beat interval in samples at the grid's BPM.
func (g *Grid) SamplesPerBeat(sampleRate int) float64 {
	if g == nil || g.BPM <= 0 {
		return 0
	}
	return float64(sampleRate) * 60.0 / g.BPM
}

// NearestIndex returns the index of the beat nearest to pos. Binary search;
// ties go to the earlier beat. Returns -1 for an empty grid.
func (g *Grid) NearestIndex(pos uint64) int {
	if g.Empty() {
		return -1
	}
	// First beat at or after pos.
	i := sort.Search(len(g.Beats), func(i int) bool { return g.Beats[i] >= pos })
	if i == 0 {
		return 0
	}
	if i == len(g.Beats) {
		return len(g.Beats) - 1
	}
	before := g.Beats[i-1]
	after := g.Beats[i]
	// Tie goes to the earlier beat.
	if pos-before <= after-pos {
		return i - 1
	}
	return i
}

// Snap returns the position of the beat nearest to pos, or pos itself when
// the grid is empty.
func (g *Grid) Snap(pos uint64) uint64 {
	i := g.NearestIndex(pos)
	if i < 0 {
		return pos
	}
	return g.Beats[i]
}

// LastBeatAt returns the position of the last beat at or before pos, or the
// first beat when pos precedes the grid.
func (g *Grid) LastBeatAt(pos uint64) uint64 {
	if g.Empty() {
		return pos
	}
	i := sort.Search(len(g.Beats), func(i int) bool { return g.Beats[i] > pos })
	if i == 0 {
		return g.Beats[0]
	}
	return g.Beats[i-1]
}

// Jump returns the position n beats away from the beat nearest pos,
// clamping at the grid edges.
func (g *Grid) Jump(pos uint64, n int) uint64 {
	i := g.NearestIndex(pos)
	if i < 0 {
		return pos
	}
	i += n
	if i < 0 {
		i = 0
	}
	if i >= len(g.Beats) {
		i = len(g.Beats) - 1
	}
	return g.Beats[i]
}

// Advance returns the position lengthBeats beats after start, computed from
// the grid's BPM alone; the beat entries are not consulted, so the result
// may lie past the last beat.
func (g *Grid) Advance(start uint64, lengthBeats float64, sampleRate int) uint64 {
	spb := g.SamplesPerBeat(sampleRate)
	if spb <= 0 {
		return start
	}
	return start + uint64(lengthBeats*spb)
}
