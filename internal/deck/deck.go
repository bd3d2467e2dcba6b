// Package deck implements one playback deck: the transport state machine
// and the per-stem playback path (source selection, time-stretch, effects,
// latency compensation) plus the features layered on top of it: loops,
// hot cues, saved loops, the per-stem slicer, and linked-stem substitution.
//
// A deck is owned exclusively by the audio thread. Command methods mutate
// state; Process produces one block. Nothing here locks or allocates.
package deck

import (
	"mesh-engine/internal/beatgrid"
	"mesh-engine/internal/effects"
	"mesh-engine/internal/rtlog"
	"mesh-engine/internal/state"
	"mesh-engine/internal/stems"
	"mesh-engine/internal/stretch"
	"mesh-engine/internal/types"
)

// HotCue is one stored cue slot.
type HotCue struct {
	Set   bool
	Frame uint64
}

// SavedLoop is one stored loop region.
type SavedLoop struct {
	Set   bool
	Start uint64
	End   uint64
}

// LoopState is the live loop region.
type LoopState struct {
	Active      bool
	Start       uint64
	End         uint64
	LengthIndex int
}

// linkedSlot holds an alternate source for one stem, aligned by drop
// markers.
type linkedSlot struct {
	has        bool
	active     bool
	buffers    stems.Handle
	sourceDrop uint64
}

// Deck is one playback slot.
type Deck struct {
	index      int
	sampleRate int

	track     stems.Handle
	grid      *beatgrid.Grid
	trackBPM  float64
	trackGain float32

	playState types.PlayState
	playhead  float64
	ratio     float64

	cuePoint      uint64
	hotCues       [types.NumHotCues]HotCue
	savedLoops    [types.NumSavedLoops]SavedLoop
	loop          LoopState
	dropMarker    uint64
	hasDropMarker bool

	linked [types.NumStems]linkedSlot
	slicer [types.NumStems]slicerState

	stretchers [types.NumStems]*stretch.TimeStretcher
	chains     [types.NumStems]*effects.Chain

	// Scratch state: the playhead chases scratchTarget while scratching;
	// returnState is restored on scratch end.
	scratchTarget float64
	returnState   types.PlayState
	scratchCubic  bool

	// Hot-cue preview bookkeeping.
	previewActive bool
	previewSlot   int

	// Preallocated per-block scratch buffers, sized in New.
	inBuf  types.StereoBuffer
	outBuf types.StereoBuffer

	log *rtlog.Ring
}

// Config carries deck construction parameters.
type Config struct {
	Index      int
	SampleRate int
	// ScratchCubic selects 4-point interpolation while scratching instead
	// of linear.
	ScratchCubic bool
	Log          *rtlog.Ring
}

// New creates an empty deck. All buffers the block path needs are
// preallocated here.
func New(cfg Config) *Deck {
	d := &Deck{
		index:        cfg.Index,
		sampleRate:   cfg.SampleRate,
		ratio:        1.0,
		trackGain:    1.0,
		scratchCubic: cfg.ScratchCubic,
		log:          cfg.Log,
		// Input worst case: max block at the minimum ratio (two input
		// frames per output frame), plus one frame of fractional slack.
		inBuf:  types.NewStereoBuffer(types.MaxBlockFrames*2 + 1),
		outBuf: types.NewStereoBuffer(types.MaxBlockFrames),
	}
	for s := range d.stretchers {
		d.stretchers[s] = stretch.New()
		d.chains[s] = effects.NewChain()
	}
	for s := range d.slicer {
		d.slicer[s] = newSlicerState()
	}
	d.loop.LengthIndex = types.DefaultLoopLengthIndex
	return d
}

// Index returns the deck's position in the engine.
func (d *Deck) Index() int { return d.index }

// State returns the current transport state.
func (d *Deck) State() types.PlayState { return d.playState }

// Playhead returns the fractional playhead position.
func (d *Deck) Playhead() float64 { return d.playhead }

// TrackBPM returns the loaded track's tempo (0 when empty).
func (d *Deck) TrackBPM() float64 { return d.trackBPM }

// Ratio returns the current time-stretch ratio.
func (d *Deck) Ratio() float64 { return d.ratio }

// Grid returns the installed beat grid (possibly nil).
func (d *Deck) Grid() *beatgrid.Grid { return d.grid }

// Loop returns the live loop state.
func (d *Deck) Loop() LoopState { return d.loop }

// Chain returns the effect chain of one stem.
func (d *Deck) Chain(stem types.Stem) *effects.Chain { return d.chains[stem] }

// Stretcher returns the time-stretcher of one stem.
func (d *Deck) Stretcher(stem types.Stem) *stretch.TimeStretcher { return d.stretchers[stem] }

// StemLatency is the total fixed latency of one stem path: the stretcher's
// buffering plus the effect chain's aggregate.
func (d *Deck) StemLatency(stem types.Stem) int {
	return d.stretchers[stem].TotalLatency() + d.chains[stem].LatencySamples()
}

// totalFrames returns the loaded track length, 0 when empty.
func (d *Deck) totalFrames() uint64 {
	if sb := d.track.Get(); sb != nil {
		return sb.TotalFrames
	}
	return 0
}

// LoadTrack replaces the deck's track. The previous handle is released and
// the reclaimer absorbs the actual teardown off the audio thread. Playhead,
// stretchers, slicer, loop, cues, and linked slots all reset.
func (d *Deck) LoadTrack(track stems.Handle, grid *beatgrid.Grid, bpm float64, gain float32) {
	d.track.Release()
	d.track = track
	d.grid = grid
	d.trackBPM = bpm
	if grid.Empty() && d.log != nil {
		// Loops, cues, and the slicer all degrade without a grid.
		d.log.Push(rtlog.LevelWarn, "track loaded without beat grid", int64(d.index), 0)
	}
	if gain > 0 {
		d.trackGain = gain
	} else {
		d.trackGain = 1.0
	}

	d.playhead = 0
	d.playState = types.StateStopped
	d.cuePoint = 0
	d.loop = LoopState{LengthIndex: d.loop.LengthIndex}
	d.hotCues = [types.NumHotCues]HotCue{}
	d.savedLoops = [types.NumSavedLoops]SavedLoop{}
	d.hasDropMarker = false
	d.previewActive = false

	for s := range d.linked {
		d.linked[s].buffers.Release()
		d.linked[s] = linkedSlot{}
	}
	for s := range d.slicer {
		d.slicer[s] = newSlicerState()
	}
	d.resetStretchers()
}

// SetRatio installs a new time-stretch ratio (targetBPM/trackBPM; the
// stretchers clamp it to their supported range).
func (d *Deck) SetRatio(ratio float64) {
	d.ratio = ratio
	for _, s := range d.stretchers {
		s.SetRatio(ratio)
	}
	// The stretchers clamp; read back the effective value.
	d.ratio = d.stretchers[0].Ratio()
}

// Play starts playback from Stopped. A no-op in any other state.
func (d *Deck) Play() {
	if d.playState == types.StateStopped && !d.track.IsZero() {
		d.playState = types.StatePlaying
	}
}

// Pause stops playback, flushing nothing; the stretchers keep their state
// so resume is seamless.
func (d *Deck) Pause() {
	if d.playState == types.StateScratching {
		return
	}
	d.playState = types.StateStopped
	d.previewActive = false
}

// Seek moves the playhead. Positions past the end clamp to the last frame
// and stop the transport. Discontinuous, so the stretchers reset.
func (d *Deck) Seek(frame uint64) {
	total := d.totalFrames()
	if total == 0 {
		return
	}
	if frame >= total {
		frame = total - 1
		d.playState = types.StateStopped
	}
	d.playhead = float64(frame)
	d.resetStretchers()
}

// SetCuePoint stores the current playhead as the cue point.
func (d *Deck) SetCuePoint() {
	d.cuePoint = uint64(d.playhead)
}

// CuePress snaps the cue point to the nearest beat and starts preview
// playback from it.
func (d *Deck) CuePress() {
	if d.track.IsZero() {
		return
	}
	d.cuePoint = d.snap(uint64(d.playhead))
	d.Seek(d.cuePoint)
	d.playState = types.StateCueing
}

// CueRelease ends a cue preview: back to the cue point, stopped.
func (d *Deck) CueRelease() {
	if d.playState != types.StateCueing {
		return
	}
	d.Seek(d.cuePoint)
	d.playState = types.StateStopped
}

// HotCuePress stores the current position in an empty slot, or, from
// Stopped, begins preview playback at a set slot.
func (d *Deck) HotCuePress(slot int) {
	if slot < 0 || slot >= types.NumHotCues || d.track.IsZero() {
		return
	}
	hc := &d.hotCues[slot]
	if !hc.Set {
		hc.Set = true
		hc.Frame = uint64(d.playhead)
		return
	}
	if d.playState == types.StateStopped {
		d.Seek(hc.Frame)
		d.playState = types.StateCueing
		d.previewActive = true
		d.previewSlot = slot
	}
}

// HotCueRelease ends a hot-cue preview: stopped, back at the slot.
func (d *Deck) HotCueRelease(slot int) {
	if !d.previewActive || slot != d.previewSlot {
		return
	}
	d.previewActive = false
	if d.playState == types.StateCueing {
		d.playState = types.StateStopped
		if slot >= 0 && slot < types.NumHotCues && d.hotCues[slot].Set {
			d.Seek(d.hotCues[slot].Frame)
		}
	}
}

// ClearHotCue empties a slot.
func (d *Deck) ClearHotCue(slot int) {
	if slot >= 0 && slot < types.NumHotCues {
		d.hotCues[slot] = HotCue{}
	}
}

// SetDropMarker stores the alignment marker used by linked stems.
func (d *Deck) SetDropMarker(frame uint64) {
	d.dropMarker = frame
	d.hasDropMarker = true
}

// ToggleLoop activates a loop of the selected length starting at the last
// beat, or deactivates the running loop.
func (d *Deck) ToggleLoop() {
	if d.loop.Active {
		d.loop.Active = false
		return
	}
	if d.grid.Empty() || d.track.IsZero() {
		return
	}
	start := d.grid.LastBeatAt(uint64(d.playhead))
	length := types.LoopLengths[d.loop.LengthIndex]
	end := d.grid.Advance(start, length, d.sampleRate)
	total := d.totalFrames()
	if end > total {
		end = total
	}
	if end <= start {
		return
	}
	d.loop.Start = start
	d.loop.End = end
	d.loop.Active = true
}

// AdjustLoopLength doubles (delta > 0) or halves (delta < 0) the loop
// length, moving one index through the fixed length table. An active loop's
// end is recomputed; its start is fixed.
func (d *Deck) AdjustLoopLength(delta int) {
	idx := d.loop.LengthIndex
	if delta > 0 {
		idx++
	} else if delta < 0 {
		idx--
	}
	if idx < 0 {
		idx = 0
	}
	if idx >= len(types.LoopLengths) {
		idx = len(types.LoopLengths) - 1
	}
	d.loop.LengthIndex = idx

	if d.loop.Active && !d.grid.Empty() {
		end := d.grid.Advance(d.loop.Start, types.LoopLengths[idx], d.sampleRate)
		if total := d.totalFrames(); end > total {
			end = total
		}
		if end > d.loop.Start {
			d.loop.End = end
		}
	}
}

// StoreLoop saves the live loop region into a slot.
func (d *Deck) StoreLoop(slot int) {
	if slot < 0 || slot >= types.NumSavedLoops || !d.loop.Active {
		return
	}
	d.savedLoops[slot] = SavedLoop{Set: true, Start: d.loop.Start, End: d.loop.End}
}

// RecallLoop activates a previously saved loop.
func (d *Deck) RecallLoop(slot int) {
	if slot < 0 || slot >= types.NumSavedLoops || !d.savedLoops[slot].Set {
		return
	}
	sl := d.savedLoops[slot]
	d.loop.Start = sl.Start
	d.loop.End = sl.End
	d.loop.Active = true
}

// BeatJump moves the playhead n beats relative to the nearest beat.
// Discontinuous, so the stretchers reset.
func (d *Deck) BeatJump(n int) {
	if d.grid.Empty() || d.track.IsZero() {
		return
	}
	d.Seek(d.grid.Jump(uint64(d.playhead), n))
}

// ScratchStart enters scratching; the playhead is driven by ScratchMove
// until ScratchEnd restores the previous transport state.
func (d *Deck) ScratchStart() {
	if d.playState == types.StateScratching {
		return
	}
	d.returnState = d.playState
	d.playState = types.StateScratching
	d.scratchTarget = d.playhead
}

// ScratchMove sets the scrub target position.
func (d *Deck) ScratchMove(frame uint64) {
	if d.playState != types.StateScratching {
		return
	}
	d.scratchTarget = float64(frame)
}

// ScratchEnd leaves scratching. The stretchers reset because the playhead
// moved discontinuously.
func (d *Deck) ScratchEnd() {
	if d.playState != types.StateScratching {
		return
	}
	d.playState = d.returnState
	d.resetStretchers()
}

// LinkStem installs an alternate source for one stem, aligned by matching
// this deck's drop marker to sourceDrop. Any previous linked buffers are
// released to the reclaimer.
func (d *Deck) LinkStem(stem types.Stem, buffers stems.Handle, sourceDrop uint64) {
	if stem < 0 || stem >= types.NumStems {
		buffers.Release()
		return
	}
	d.linked[stem].buffers.Release()
	d.linked[stem] = linkedSlot{has: true, buffers: buffers, sourceDrop: sourceDrop}
}

// UnlinkStem removes a linked source.
func (d *Deck) UnlinkStem(stem types.Stem) {
	if stem < 0 || stem >= types.NumStems {
		return
	}
	d.linked[stem].buffers.Release()
	d.linked[stem] = linkedSlot{}
}

// ToggleLinkedActive flips which source (original or linked) is mixed for
// one stem. A no-op when no linked source is installed.
func (d *Deck) ToggleLinkedActive(stem types.Stem) {
	if stem < 0 || stem >= types.NumStems || !d.linked[stem].has {
		return
	}
	d.linked[stem].active = !d.linked[stem].active
}

// SetChain replaces the effect chain of one stem.
func (d *Deck) SetChain(stem types.Stem, chain *effects.Chain) {
	if stem < 0 || stem >= types.NumStems || chain == nil {
		return
	}
	d.chains[stem] = chain
}

// snap returns pos snapped to the nearest beat, or pos unchanged with no
// grid.
func (d *Deck) snap(pos uint64) uint64 {
	if d.grid.Empty() {
		return pos
	}
	return d.grid.Snap(pos)
}

func (d *Deck) resetStretchers() {
	for _, s := range d.stretchers {
		s.Reset()
	}
}

// Publish stores the deck's state into its atomics. Called by the engine
// after each block; the UI reads the cells at will.
func (d *Deck) Publish(da *state.DeckAtomics, sa *[types.NumStems]state.SlicerAtomics, la *state.LinkedStemAtomics) {
	da.Position.Store(uint64(d.playhead))
	da.PlayState.Store(uint32(d.playState))
	da.CuePoint.Store(d.cuePoint)
	da.TotalFrames.Store(d.totalFrames())
	da.LoopActive.Store(d.loop.Active)
	da.LoopStart.Store(d.loop.Start)
	da.LoopEnd.Store(d.loop.End)
	da.LoopLengthIndex.Store(uint32(d.loop.LengthIndex))

	for s := 0; s < types.NumStems; s++ {
		sl := &d.slicer[s]
		sa[s].Active.Store(sl.enabled)
		sa[s].BufferStart.Store(sl.bufStart)
		sa[s].BufferEnd.Store(sl.bufEnd)
		sa[s].CurrentSlice.Store(uint32(sl.currentSlice))

		la.Has[s].Store(d.linked[s].has)
		la.Active[s].Store(d.linked[s].active)
	}
}
