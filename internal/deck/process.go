package deck

import (
	"math"

	"mesh-engine/internal/latency"
	"mesh-engine/internal/stems"
	"mesh-engine/internal/types"
)

// Process renders one block of frames into out. The four stem paths run
// read → time-stretch → effects → latency compensation and are summed into
// the deck output. Missing data (no track, exhausted source, empty grid
// where one is needed) produces silence on the affected path; the deck
// never blocks and never allocates here.
func (d *Deck) Process(out types.StereoBuffer, frames int, comp *latency.Compensator) {
	out = out[:frames]
	out.FillSilence()
	if frames == 0 {
		return
	}

	switch d.playState {
	case types.StatePlaying, types.StateCueing:
		d.processPlaying(out, frames, comp)
	case types.StateScratching:
		d.processScratching(out, frames, comp)
	default:
		// Stopped: the playhead is frozen and the deck contributes
		// silence.
	}
}

func (d *Deck) processPlaying(out types.StereoBuffer, frames int, comp *latency.Compensator) {
	src := d.track.Get()
	if src == nil {
		return
	}

	// The stretch ratio is targetBPM/trackBPM; one block of output covers
	// frames/ratio input frames of the track.
	advance := float64(frames) / d.ratio
	inputStart := uint64(d.playhead)
	inputCount := int(uint64(d.playhead+advance) - inputStart)
	if d.ratio == 1.0 {
		// The unity fast path is a straight copy; feed exactly one input
		// frame per output frame.
		inputCount = frames
	}
	if inputCount > len(d.inBuf) {
		inputCount = len(d.inBuf)
	}

	for s := types.Stem(0); s < types.NumStems; s++ {
		in := d.inBuf[:inputCount]
		d.readStemInput(s, src, inputStart, in)

		stretched := d.outBuf[:frames]
		d.stretchers[s].Process(in, stretched)
		d.chains[s].Process(stretched)
		comp.Process(d.index, s, stretched)

		out.AccumulateScaled(stretched, d.trackGain)
	}

	d.advancePlayhead(advance, src.TotalFrames)
}

// processScratching drives the playhead from the scrub target, producing
// audio by direct interpolation from the source; the time-stretchers are
// suspended. Effects and latency compensation still run so the stem paths
// stay aligned.
func (d *Deck) processScratching(out types.StereoBuffer, frames int, comp *latency.Compensator) {
	src := d.track.Get()
	if src == nil {
		return
	}

	start := d.playhead
	step := (d.scratchTarget - start) / float64(frames)

	for s := types.Stem(0); s < types.NumStems; s++ {
		stretched := d.outBuf[:frames]
		for k := 0; k < frames; k++ {
			pos := start + step*float64(k)
			stretched[k] = d.scratchSample(s, src, pos)
		}
		d.chains[s].Process(stretched)
		comp.Process(d.index, s, stretched)
		out.AccumulateScaled(stretched, d.trackGain)
	}

	d.playhead = d.scratchTarget
	if total := float64(src.TotalFrames); d.playhead > total {
		d.playhead = total
	}
	if d.playhead < 0 {
		d.playhead = 0
	}
}

// scratchSample reads one interpolated frame for scratching, honoring the
// linked-stem source selection.
func (d *Deck) scratchSample(s types.Stem, src *stems.StemBuffers, pos float64) types.StereoSample {
	src, pos, ok := d.resolveSourceFrac(s, src, pos)
	if !ok {
		return types.Silence
	}
	if d.scratchCubic {
		return cubicSample(src, s, pos)
	}
	return src.SampleLerp(s, pos)
}

// cubicSample is 4-point Catmull-Rom interpolation around pos.
func cubicSample(src *stems.StemBuffers, s types.Stem, pos float64) types.StereoSample {
	if pos < 1 {
		return src.SampleLerp(s, pos)
	}
	i := uint64(pos)
	frac := float32(pos - float64(i))

	p0 := src.Sample(s, i-1)
	p1 := src.Sample(s, i)
	p2 := src.Sample(s, i+1)
	p3 := src.Sample(s, i+2)

	interp := func(a, b, c, e float32) float32 {
		return b + 0.5*frac*(c-a+frac*(2*a-5*b+4*c-e+frac*(3*(b-c)+e-a)))
	}
	return types.StereoSample{
		Left:  interp(p0.Left, p1.Left, p2.Left, p3.Left),
		Right: interp(p0.Right, p1.Right, p2.Right, p3.Right),
	}
}

// readStemInput fills in with source frames for one stem starting at
// startPos, applying the slicer window when enabled and loop wrapping
// otherwise.
func (d *Deck) readStemInput(s types.Stem, src *stems.StemBuffers, startPos uint64, in types.StereoBuffer) {
	sl := &d.slicer[s]
	if sl.enabled {
		d.readSliced(s, src, sl, startPos, in)
		return
	}

	for k := range in {
		pos := d.wrapLoop(startPos + uint64(k))
		in[k] = d.sourceSample(s, src, pos)
	}
}

// readSliced reads through the slicer: the playhead position maps onto a
// step of the buffer window, and the step's programmed slices (offset by
// the position within the step) are summed. Muted steps are silent.
func (d *Deck) readSliced(s types.Stem, src *stems.StemBuffers, sl *slicerState, startPos uint64, in types.StereoBuffer) {
	for k := range in {
		pos := startPos + uint64(k)
		if pos < sl.bufStart || pos >= sl.bufEnd {
			sl.alignWindow(d.grid, pos, d.sampleRate, src.TotalFrames)
		}
		sliceLen := sl.sliceLen()
		if sliceLen == 0 {
			in[k] = types.Silence
			continue
		}

		offset := pos - sl.bufStart
		step := int(offset / sliceLen)
		if step >= types.SlicerSteps {
			step = types.SlicerSteps - 1
		}
		sl.currentSlice = step

		cfg := sl.seq.Steps[step]
		if cfg.Mute {
			in[k] = types.Silence
			continue
		}
		slices := cfg.Slices
		if slices == 0 {
			// An empty selection plays the step's own slice.
			slices = 1 << uint(step)
		}

		within := offset % sliceLen
		var sum types.StereoSample
		for j := 0; j < types.SlicerSteps; j++ {
			if slices&(1<<uint(j)) == 0 {
				continue
			}
			p := sl.bufStart + uint64(j)*sliceLen + within
			sum = sum.Add(d.sourceSample(s, src, p))
		}
		in[k] = sum
	}
}

// sourceSample reads one frame for a stem, substituting the linked source
// when its slot is active. Out-of-range linked positions produce silence.
func (d *Deck) sourceSample(s types.Stem, src *stems.StemBuffers, pos uint64) types.StereoSample {
	resolved, fpos, ok := d.resolveSourceFrac(s, src, float64(pos))
	if !ok {
		return types.Silence
	}
	return resolved.Sample(s, uint64(fpos))
}

// resolveSourceFrac maps a host-timeline position to the buffers it should
// be read from: the original track, or the linked source shifted by the
// drop-marker alignment. A false return means silence.
func (d *Deck) resolveSourceFrac(s types.Stem, src *stems.StemBuffers, pos float64) (*stems.StemBuffers, float64, bool) {
	slot := &d.linked[s]
	if !slot.has || !slot.active {
		return src, pos, true
	}
	linked := slot.buffers.Get()
	if linked == nil || !d.hasDropMarker {
		return nil, 0, false
	}
	// linked position = host position - host drop + source drop
	lp := pos - float64(d.dropMarker) + float64(slot.sourceDrop)
	if lp < 0 || lp >= float64(linked.TotalFrames) {
		return nil, 0, false
	}
	return linked, lp, true
}

// wrapLoop folds pos back into the loop region when the loop is active.
// Handles loops shorter than a block (multiple wraps) via the modulo.
func (d *Deck) wrapLoop(pos uint64) uint64 {
	if !d.loop.Active || d.loop.End <= d.loop.Start {
		return pos
	}
	if pos < d.loop.End {
		return pos
	}
	span := d.loop.End - d.loop.Start
	return d.loop.Start + (pos-d.loop.Start)%span
}

// advancePlayhead moves the playhead by advance input frames, wrapping in
// an active loop and clamping (and stopping) at track end.
func (d *Deck) advancePlayhead(advance float64, total uint64) {
	np := d.playhead + advance

	if d.loop.Active && d.loop.End > d.loop.Start {
		if np >= float64(d.loop.End) {
			// A loop shorter than the block can wrap several times; the
			// modulo folds them all at once.
			span := float64(d.loop.End - d.loop.Start)
			start := float64(d.loop.Start)
			np = start + math.Mod(np-start, span)
		}
	} else if np >= float64(total) {
		np = float64(total)
		d.playState = types.StateStopped
	}

	d.playhead = np
}
