// Package state is the lock-free publication surface between the audio
// thread and the UI.
//
// Every value the UI renders lives in its own atomic cell. The audio thread
// is the only writer and stores after each block; UI threads read whenever
// they like. Individual fields are always consistent, but readers must not
// expect a consistent snapshot across fields. Only eventual per-field
// visibility is promised, so plain atomic loads/stores suffice and no field
// ever synchronizes other memory.
package state

import (
	"sync/atomic"

	"mesh-engine/internal/types"
)

// DeckAtomics publishes one deck's transport state.
type DeckAtomics struct {
	// Position is the playhead as a whole frame index; the fractional
	// remainder stays inside the deck.
	Position atomic.Uint64
	// PlayState holds a types.PlayState tag.
	PlayState atomic.Uint32
	// CuePoint is the stored cue position in frames.
	CuePoint atomic.Uint64
	// TotalFrames is the loaded track length (0 = no track).
	TotalFrames atomic.Uint64

	LoopActive      atomic.Bool
	LoopStart       atomic.Uint64
	LoopEnd         atomic.Uint64
	LoopLengthIndex atomic.Uint32
}

// State returns the published play state as its enum type.
func (d *DeckAtomics) State() types.PlayState {
	return types.PlayState(d.PlayState.Load())
}

// SlicerAtomics publishes one stem's slicer status on one deck.
type SlicerAtomics struct {
	Active       atomic.Bool
	BufferStart  atomic.Uint64
	BufferEnd    atomic.Uint64
	CurrentSlice atomic.Uint32
}

// LinkedStemAtomics publishes the linked-stem slots of one deck: whether a
// linked source is installed and whether it is the one being mixed.
type LinkedStemAtomics struct {
	Has    [types.NumStems]atomic.Bool
	Active [types.NumStems]atomic.Bool
}
