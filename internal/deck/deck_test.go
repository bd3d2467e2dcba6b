package deck

import (
	"math"
	"testing"

	"mesh-engine/internal/beatgrid"
	"mesh-engine/internal/latency"
	"mesh-engine/internal/stems"
	"mesh-engine/internal/types"
)

const testRate = 48000

// loadTestTrack loads a 10-second track whose every stem sample equals
// value, with a 120 BPM grid.
func loadTestTrack(d *Deck, value float32) *beatgrid.Grid {
	const frames = 480000
	var bufs [types.NumStems]types.StereoBuffer
	for i := range bufs {
		bufs[i] = types.NewStereoBuffer(frames)
		for k := range bufs[i] {
			bufs[i][k] = types.StereoSample{Left: value, Right: value}
		}
	}
	sb, _ := stems.New(bufs, testRate)
	grid := beatgrid.Generate(120, 0, frames, testRate)
	d.LoadTrack(stems.Track(sb), grid, 120, 1.0)
	return grid
}

func newTestDeck() (*Deck, *latency.Compensator) {
	d := New(Config{Index: 0, SampleRate: testRate})
	comp := latency.New(types.MaxLatencySamples, nil)
	return d, comp
}

func TestPlaybackAdvancesPlayhead(t *testing.T) {
	d, comp := newTestDeck()
	loadTestTrack(d, 0.1)

	d.Play()
	if d.State() != types.StatePlaying {
		t.Fatalf("state = %v, want playing", d.State())
	}

	out := types.NewStereoBuffer(256)
	for block := 0; block < 100; block++ {
		d.Process(out, 256, comp)
	}

	if got := d.Playhead(); math.Abs(got-25600) > 1 {
		t.Errorf("playhead = %v, want 25600 +-1", got)
	}
	if out.IsSilent() {
		t.Error("output silent for a non-silent track")
	}
}

func TestUnityRatioOutputSumsStems(t *testing.T) {
	d, comp := newTestDeck()
	loadTestTrack(d, 0.1)
	d.Play()

	out := types.NewStereoBuffer(64)
	d.Process(out, 64, comp)

	// Four stems at 0.1 each sum to 0.4.
	if diff := out[10].Left - 0.4; diff > 1e-5 || diff < -1e-5 {
		t.Errorf("summed output = %v, want 0.4", out[10].Left)
	}
}

func TestStretchRatioAdvance(t *testing.T) {
	d, comp := newTestDeck()
	loadTestTrack(d, 0.1)

	// Track at 120, global at 128: ratio is target/track.
	d.SetRatio(128.0 / 120.0)
	d.Play()

	out := types.NewStereoBuffer(256)
	for block := 0; block < 188; block++ {
		d.Process(out, 256, comp)
	}

	want := 188.0 * 256.0 * (120.0 / 128.0)
	if got := d.Playhead(); math.Abs(got-want) > 1 {
		t.Errorf("playhead = %v, want %v +-1", got, want)
	}
}

func TestStoppedDeckIsFrozenAndSilent(t *testing.T) {
	d, comp := newTestDeck()
	loadTestTrack(d, 0.5)

	out := types.NewStereoBuffer(256)
	d.Process(out, 256, comp)

	if !out.IsSilent() {
		t.Error("stopped deck produced audio")
	}
	if d.Playhead() != 0 {
		t.Error("stopped deck advanced")
	}
}

func TestSeekPastEndClampsAndStops(t *testing.T) {
	d, _ := newTestDeck()
	loadTestTrack(d, 0.1)
	d.Play()

	d.Seek(5_000_000)

	if d.Playhead() != 479999 {
		t.Errorf("playhead = %v, want clamp at 479999", d.Playhead())
	}
	if d.State() != types.StateStopped {
		t.Errorf("state = %v, want stopped after clamped seek", d.State())
	}
}

func TestHotCuePreviewRelease(t *testing.T) {
	d, comp := newTestDeck()
	loadTestTrack(d, 0.1)

	// Store slot 2 at 200000, then park at 100000.
	d.Seek(200000)
	d.HotCuePress(2)
	d.HotCueRelease(2)
	d.Seek(100000)

	// Press again: preview playback from the stored frame.
	d.HotCuePress(2)
	if d.State() != types.StateCueing {
		t.Fatalf("state = %v, want cueing", d.State())
	}

	out := types.NewStereoBuffer(256)
	for block := 0; block < 10; block++ {
		d.Process(out, 256, comp)
	}
	if got := d.Playhead(); math.Abs(got-202560) > 1 {
		t.Errorf("preview playhead = %v, want 202560", got)
	}

	d.HotCueRelease(2)
	if d.State() != types.StateStopped {
		t.Errorf("state = %v, want stopped after release", d.State())
	}
	if d.Playhead() != 200000 {
		t.Errorf("playhead = %v, want back at 200000", d.Playhead())
	}
}

func TestCuePressSnapsToBeat(t *testing.T) {
	d, _ := newTestDeck()
	loadTestTrack(d, 0.1)

	// 120 BPM at 48k: beats every 24000. 25000 snaps to 24000.
	d.Seek(25000)
	d.CuePress()

	if d.State() != types.StateCueing {
		t.Fatalf("state = %v, want cueing", d.State())
	}
	if d.Playhead() != 24000 {
		t.Errorf("playhead = %v, want snapped 24000", d.Playhead())
	}

	d.CueRelease()
	if d.State() != types.StateStopped || d.Playhead() != 24000 {
		t.Errorf("release: state %v playhead %v", d.State(), d.Playhead())
	}
}

func TestToggleLoopAndAdjust(t *testing.T) {
	d, _ := newTestDeck()
	loadTestTrack(d, 0.1)
	d.Play()

	// Default length index selects 4 beats = 96000 frames.
	d.Seek(50000)
	d.Play()
	d.ToggleLoop()

	lp := d.Loop()
	if !lp.Active {
		t.Fatal("loop not active")
	}
	if lp.Start != 48000 {
		t.Errorf("loop start = %d, want last beat 48000", lp.Start)
	}
	if lp.End-lp.Start != 96000 {
		t.Errorf("loop span = %d, want 96000", lp.End-lp.Start)
	}

	d.AdjustLoopLength(1)
	lp = d.Loop()
	if lp.End-lp.Start != 192000 {
		t.Errorf("doubled span = %d, want 192000", lp.End-lp.Start)
	}

	// Double twice then halve twice returns the original region.
	d.AdjustLoopLength(1)
	d.AdjustLoopLength(-1)
	d.AdjustLoopLength(-1)
	lp2 := d.Loop()
	if lp2.Start != lp.Start || lp2.End-lp2.Start != 96000 {
		t.Errorf("loop did not round-trip: %+v", lp2)
	}

	d.ToggleLoop()
	if d.Loop().Active {
		t.Error("loop still active after toggle off")
	}
}

func TestLoopWrapDuringBlock(t *testing.T) {
	d, comp := newTestDeck()
	loadTestTrack(d, 0.1)

	// Tiny loop, much shorter than a block: multiple wraps inside one
	// Process call.
	d.Seek(24000)
	d.Play()
	d.loop = LoopState{Active: true, Start: 24000, End: 24100, LengthIndex: 2}

	out := types.NewStereoBuffer(256)
	d.Process(out, 256, comp)

	ph := d.Playhead()
	if ph < 24000 || ph >= 24100 {
		t.Errorf("playhead %v escaped loop [24000,24100)", ph)
	}
}

func TestToggleLinkedActiveRoundTrip(t *testing.T) {
	d, _ := newTestDeck()
	loadTestTrack(d, 0.1)
	d.SetDropMarker(1000)

	linked := stems.Track(stems.NewSilent(480000, testRate))
	d.LinkStem(1, linked, 5000)

	if d.linked[1].active {
		t.Fatal("fresh link must start inactive")
	}
	d.ToggleLinkedActive(1)
	if !d.linked[1].active {
		t.Fatal("toggle on failed")
	}
	d.ToggleLinkedActive(1)
	if d.linked[1].active {
		t.Fatal("toggle off failed")
	}
}

func TestLinkedStemSubstitutesAudio(t *testing.T) {
	d, comp := newTestDeck()
	loadTestTrack(d, 0.1)
	d.SetDropMarker(0)

	// Linked source is silent; activating it on stem 0 removes that
	// stem's 0.1 contribution.
	linked := stems.Track(stems.NewSilent(480000, testRate))
	d.LinkStem(0, linked, 0)
	d.ToggleLinkedActive(0)
	d.Play()

	out := types.NewStereoBuffer(64)
	d.Process(out, 64, comp)

	if diff := out[10].Left - 0.3; diff > 1e-5 || diff < -1e-5 {
		t.Errorf("output with silent linked stem = %v, want 0.3", out[10].Left)
	}
}

func TestScratchDrivesPlayhead(t *testing.T) {
	d, comp := newTestDeck()
	loadTestTrack(d, 0.1)
	d.Play()

	d.ScratchStart()
	if d.State() != types.StateScratching {
		t.Fatalf("state = %v, want scratching", d.State())
	}
	d.ScratchMove(4800)

	out := types.NewStereoBuffer(256)
	d.Process(out, 256, comp)
	if d.Playhead() != 4800 {
		t.Errorf("playhead = %v, want scrub target 4800", d.Playhead())
	}
	if out.IsSilent() {
		t.Error("scratching over audible material should produce audio")
	}

	d.ScratchEnd()
	if d.State() != types.StatePlaying {
		t.Errorf("state = %v, want playing restored", d.State())
	}
}

func TestBeatJump(t *testing.T) {
	d, _ := newTestDeck()
	loadTestTrack(d, 0.1)

	d.Seek(48000)
	d.BeatJump(2)
	if d.Playhead() != 96000 {
		t.Errorf("playhead = %v, want 96000", d.Playhead())
	}
	d.BeatJump(-4)
	if d.Playhead() != 0 {
		t.Errorf("playhead = %v, want 0", d.Playhead())
	}
}

func TestEmptyDeckIsSilent(t *testing.T) {
	d, comp := newTestDeck()
	d.Play() // ignored without a track

	out := types.NewStereoBuffer(128)
	d.Process(out, 128, comp)
	if !out.IsSilent() {
		t.Error("empty deck produced audio")
	}
	if d.State() != types.StateStopped {
		t.Error("empty deck must not enter playing")
	}
}

func TestSlicerMutesConfiguredSteps(t *testing.T) {
	d, comp := newTestDeck()
	loadTestTrack(d, 0.25)

	// Mute every step on stem 0: the stem goes silent, the others keep
	// playing.
	var seq = types.IdentitySequence()
	for i := range seq.Steps {
		seq.Steps[i].Mute = true
	}
	d.SetSlicerSequence(0, seq)
	d.EnableSlicer(0, true)
	d.Play()

	out := types.NewStereoBuffer(64)
	d.Process(out, 64, comp)

	if diff := out[10].Left - 0.75; diff > 1e-5 || diff < -1e-5 {
		t.Errorf("output with muted stem = %v, want 0.75", out[10].Left)
	}
}

func TestSlicerIdentityIsTransparent(t *testing.T) {
	d, comp := newTestDeck()
	loadTestTrack(d, 0.25)

	d.EnableSlicer(0, true) // identity sequence by default
	d.Play()

	out := types.NewStereoBuffer(64)
	d.Process(out, 64, comp)

	// Identity slicing plays each step's own slice: indistinguishable
	// from normal playback on constant material.
	if diff := out[10].Left - 1.0; diff > 1e-5 || diff < -1e-5 {
		t.Errorf("identity slicer output = %v, want 1.0", out[10].Left)
	}
}

func TestSavedLoops(t *testing.T) {
	d, _ := newTestDeck()
	loadTestTrack(d, 0.1)
	d.Seek(48000)
	d.Play()
	d.ToggleLoop()
	orig := d.Loop()

	d.StoreLoop(3)
	d.ToggleLoop()
	d.RecallLoop(3)

	got := d.Loop()
	if !got.Active || got.Start != orig.Start || got.End != orig.End {
		t.Errorf("recalled loop %+v, want %+v", got, orig)
	}
}

func TestLoadTrackResetsState(t *testing.T) {
	d, _ := newTestDeck()
	loadTestTrack(d, 0.1)
	d.Play()
	d.Seek(1000)
	d.HotCuePress(0)

	loadTestTrack(d, 0.2)

	if d.Playhead() != 0 || d.State() != types.StateStopped {
		t.Error("load must reset playhead and stop")
	}
	if d.hotCues[0].Set {
		t.Error("hot cues must clear on load")
	}
}
