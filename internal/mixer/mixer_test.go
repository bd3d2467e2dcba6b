package mixer

import (
	"math"
	"testing"

	"mesh-engine/internal/types"
)

func constantBlock(n int, v float32) types.StereoBuffer {
	buf := types.NewStereoBuffer(n)
	for i := range buf {
		buf[i] = types.StereoSample{Left: v, Right: v}
	}
	return buf
}

func TestUnityPassAtDefaults(t *testing.T) {
	m := New(48000)

	in := constantBlock(64, 0.5)
	master := types.NewStereoBuffer(64)
	cue := types.NewStereoBuffer(64)

	m.MixChannel(0, in, master, cue)

	// Crossfader centered: constant-power gain is cos(pi/4) ~= 0.7071.
	want := 0.5 * float32(math.Cos(math.Pi/4))
	if diff := master[32].Left - want; diff > 0.01 || diff < -0.01 {
		t.Errorf("master = %v, want %v", master[32].Left, want)
	}
	if !cue.IsSilent() {
		t.Error("cue bus should be silent without PFL")
	}
}

func TestVolumeScales(t *testing.T) {
	m := New(48000)
	m.SetVolume(0, 0.5)
	m.SetCrossfader(-1) // full side A: gain 1 for deck 0

	in := constantBlock(16, 0.8)
	master := types.NewStereoBuffer(16)
	cue := types.NewStereoBuffer(16)
	m.MixChannel(0, in, master, cue)

	if diff := master[8].Left - 0.4; diff > 0.01 || diff < -0.01 {
		t.Errorf("volume 0.5: master = %v, want 0.4", master[8].Left)
	}
}

func TestCrossfaderSides(t *testing.T) {
	m := New(48000)
	m.SetCrossfader(-1)

	in := constantBlock(16, 1)

	// Deck 0 (side A) passes at full level.
	master := types.NewStereoBuffer(16)
	cue := types.NewStereoBuffer(16)
	m.MixChannel(0, in, master, cue)
	if master[8].Left < 0.99 {
		t.Errorf("side A at full-A crossfade: %v, want ~1", master[8].Left)
	}

	// Deck 2 (side B) is killed.
	master2 := types.NewStereoBuffer(16)
	m.MixChannel(2, in, master2, cue)
	if math.Abs(float64(master2[8].Left)) > 1e-6 {
		t.Errorf("side B at full-A crossfade: %v, want 0", master2[8].Left)
	}
}

func TestCuePFLIndependentOfCrossfader(t *testing.T) {
	m := New(48000)
	m.SetCrossfader(-1)
	m.SetCuePFL(2, true)

	in := constantBlock(16, 0.5)
	master := types.NewStereoBuffer(16)
	cue := types.NewStereoBuffer(16)
	m.MixChannel(2, in, master, cue)

	// Channel is killed on master but audible at unity on cue.
	if math.Abs(float64(master[8].Left)) > 1e-6 {
		t.Errorf("master leak: %v", master[8].Left)
	}
	if diff := cue[8].Left - 0.5; diff > 0.01 || diff < -0.01 {
		t.Errorf("cue = %v, want 0.5", cue[8].Left)
	}
}

func TestEQLowCutAttenuatesDC(t *testing.T) {
	m := New(48000)
	m.SetCrossfader(-1)
	m.SetEQ(0, BandLow, 0) // full cut: -12 dB below 250 Hz

	in := constantBlock(2048, 0.5)
	master := types.NewStereoBuffer(2048)
	cue := types.NewStereoBuffer(2048)
	m.MixChannel(0, in, master, cue)

	// DC through a -12 dB low shelf settles near 0.5/4.
	tail := master[2000].Left
	if tail > 0.2 {
		t.Errorf("low-cut DC tail = %v, want well under input", tail)
	}
}

func TestFilterDeadZoneIsTransparent(t *testing.T) {
	m := New(48000)
	m.SetCrossfader(-1)
	m.SetFilter(0, 0.01) // inside dead zone

	in := constantBlock(64, 0.5)
	master := types.NewStereoBuffer(64)
	cue := types.NewStereoBuffer(64)
	m.MixChannel(0, in, master, cue)

	if diff := master[32].Left - 0.5; diff > 0.001 || diff < -0.001 {
		t.Errorf("dead-zone filter altered signal: %v", master[32].Left)
	}
}

func TestFullHighpassKillsDC(t *testing.T) {
	m := New(48000)
	m.SetCrossfader(-1)
	m.SetFilter(0, 1) // full HP at 5 kHz

	in := constantBlock(2048, 0.5)
	master := types.NewStereoBuffer(2048)
	cue := types.NewStereoBuffer(2048)
	m.MixChannel(0, in, master, cue)

	if v := math.Abs(float64(master[2000].Left)); v > 0.05 {
		t.Errorf("HP should remove DC, tail = %v", v)
	}
}
