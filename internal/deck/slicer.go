package deck

import (
	"mesh-engine/internal/beatgrid"
	"mesh-engine/internal/types"
)

// beatsPerBar is fixed 4/4; everything upstream assumes common time
// throughout.
const beatsPerBar = 4

// defaultBufferBars is the slicer window length when nothing is configured.
const defaultBufferBars = 4

// slicerState is the live slicer for one stem: the programmed sequence plus
// the current beat-aligned buffer window.
type slicerState struct {
	enabled    bool
	seq        types.SlicerSequence
	bufferBars int

	// Window derived from the beat grid; recomputed whenever the playhead
	// leaves it.
	bufStart     uint64
	bufEnd       uint64
	currentSlice int
}

func newSlicerState() slicerState {
	return slicerState{
		seq:        types.IdentitySequence(),
		bufferBars: defaultBufferBars,
	}
}

// SetSlicerSequence replaces the pattern for one stem.
func (d *Deck) SetSlicerSequence(stem types.Stem, seq types.SlicerSequence) {
	if stem < 0 || stem >= types.NumStems {
		return
	}
	d.slicer[stem].seq = seq
}

// EnableSlicer turns the slicer on or off for one stem. Enabling snaps a
// fresh buffer window to the current beat.
func (d *Deck) EnableSlicer(stem types.Stem, on bool) {
	if stem < 0 || stem >= types.NumStems {
		return
	}
	sl := &d.slicer[stem]
	sl.enabled = on
	if on {
		sl.alignWindow(d.grid, uint64(d.playhead), d.sampleRate, d.totalFrames())
	}
}

// SetSlicerBufferBars sets the window length in bars for one stem.
func (d *Deck) SetSlicerBufferBars(stem types.Stem, bars int) {
	if stem < 0 || stem >= types.NumStems || bars < 1 || bars > 32 {
		return
	}
	d.slicer[stem].bufferBars = bars
}

// alignWindow places the buffer window at the last beat at or before pos.
func (sl *slicerState) alignWindow(grid *beatgrid.Grid, pos uint64, sampleRate int, total uint64) {
	if grid.Empty() || total == 0 {
		sl.bufStart, sl.bufEnd = 0, 0
		return
	}
	start := grid.LastBeatAt(pos)
	end := grid.Advance(start, float64(sl.bufferBars*beatsPerBar), sampleRate)
	if end > total {
		end = total
	}
	sl.bufStart, sl.bufEnd = start, end
}

// sliceLen returns the length of one slice, 0 for a degenerate window.
func (sl *slicerState) sliceLen() uint64 {
	if sl.bufEnd <= sl.bufStart {
		return 0
	}
	return (sl.bufEnd - sl.bufStart) / types.SlicerSteps
}
