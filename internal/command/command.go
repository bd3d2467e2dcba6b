// Package command defines the typed commands the UI sends to the audio
// thread and the single-producer sender handed to the UI.
//
// The UI never calls into decks or the mixer directly: every externally
// initiated mutation crosses this boundary as a value on a bounded SPSC
// ring and is applied by the engine at the top of the next block. Commands
// are plain values; the only pointer payloads are reclaim-tracked handles
// (track loads, linked stems), beat grids, and effect objects built
// off-thread, all of which are safe to drop on the audio side.
package command

import (
	"mesh-engine/internal/beatgrid"
	"mesh-engine/internal/effects"
	"mesh-engine/internal/ring"
	"mesh-engine/internal/stems"
	"mesh-engine/internal/types"
)

// Type tags the command union.
type Type uint8

const (
	// Transport.
	LoadTrack Type = iota
	Play
	Pause
	Seek
	ScratchStart
	ScratchMove
	ScratchEnd

	// Cues.
	SetCuePoint
	CuePress
	CueRelease
	HotCuePress
	HotCueRelease
	SetDropMarker

	// Loops.
	ToggleLoop
	AdjustLoopLength
	BeatJump
	StoreLoop
	RecallLoop

	// Slicer.
	SetSlicerSequence
	EnableSlicer
	SetSlicerBufferBars

	// Linked stems.
	LinkStem
	UnlinkStem
	ToggleLinkedActive

	// Effects.
	SetEffectChain
	InsertEffect
	RemoveEffect
	MoveEffect
	SetEffectParam
	SetEffectBypass

	// Global.
	SetGlobalBPM
	SetMasterDeck
	SetSyncEnabled
	SetMixerParam
)

// MixerParam selects which mixer control a SetMixerParam command targets.
type MixerParam uint8

const (
	MixerVolume MixerParam = iota
	MixerFilter
	MixerEQLow
	MixerEQMid
	MixerEQHigh
	MixerCuePFL
	MixerCrossfader
)

// Command is the tagged union carried on the ring. Only the fields relevant
// to Type are meaningful; the rest stay zero. The struct is sized so the
// ring holds it by value, with no per-command allocation on either side.
type Command struct {
	Type Type

	Deck int
	Stem types.Stem
	Slot int

	Frame uint64
	// Beats carries beat-jump distances and slicer buffer-bar counts.
	Beats int
	// Delta carries loop-length adjustment direction (+-1).
	Delta int
	Value float64
	Flag  bool

	// Seq is the slicer pattern payload.
	Seq types.SlicerSequence

	// LoadTrack / LinkStem payloads.
	Stems      stems.Handle
	Grid       *beatgrid.Grid
	BPM        float64
	TrackGain  float32
	DropMarker uint64

	// Effect payloads.
	Chain     *effects.Chain
	Effect    effects.Effect
	EffectIdx int
	ParamIdx  int

	Mixer MixerParam
}

// Sender is the UI-side handle to the command ring. A single goroutine may
// use it; sends are non-blocking.
type Sender struct {
	ring *ring.SPSC[Command]
}

// Consumer is the audio-side handle.
type Consumer struct {
	ring *ring.SPSC[Command]
}

// NewChannel creates the SPSC command ring with the given capacity and
// returns its two endpoints.
func NewChannel(capacity int) (*Sender, *Consumer) {
	r := ring.New[Command](capacity)
	return &Sender{ring: r}, &Consumer{ring: r}
}

// Send enqueues cmd. When the ring is full the command is not enqueued and
// Send reports false; the caller keeps ownership and may retry or drop.
func (s *Sender) Send(cmd Command) bool {
	return s.ring.Push(cmd)
}

// Drain pops every pending command, invoking apply on each in FIFO order.
// Called by the engine at the top of each block, before any audio is
// produced.
func (c *Consumer) Drain(apply func(Command)) {
	for {
		cmd, ok := c.ring.Pop()
		if !ok {
			return
		}
		apply(cmd)
	}
}
