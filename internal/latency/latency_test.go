package latency

import (
	"testing"

	"mesh-engine/internal/types"
)

func TestDelayLine(t *testing.T) {
	d := newDelayLine(10)
	d.setDelay(3)

	in := []types.StereoSample{
		{Left: 1, Right: 1}, {Left: 2, Right: 2}, {Left: 3, Right: 3}, {Left: 4, Right: 4},
	}

	// The first three outputs are the delay filling with silence.
	for i := 0; i < 3; i++ {
		if out := d.process(in[i]); out != types.Silence {
			t.Errorf("sample %d: expected silence, got %v", i, out)
		}
	}
	if out := d.process(in[3]); out.Left != 1 {
		t.Errorf("expected first input after delay, got %v", out.Left)
	}
}

func TestGlobalMaxTracksLatencies(t *testing.T) {
	c := New(types.MaxLatencySamples, nil)

	c.SetStemLatency(0, 0, 100)
	c.SetStemLatency(0, 1, 200)
	c.SetStemLatency(1, 0, 150)

	if c.GlobalMax() != 200 {
		t.Errorf("global max = %d, want 200", c.GlobalMax())
	}
}

// Scenario from the alignment contract: after every mutation,
// delay + latency == globalMax for all sixteen paths.
func TestCompensationInvariant(t *testing.T) {
	c := New(types.MaxLatencySamples, nil)

	// Effect on deck 0 stem 0 reporting 512.
	c.SetStemLatency(0, 0, 512)
	if c.Delay(0, 0) != 0 {
		t.Errorf("delay(0,0) = %d, want 0", c.Delay(0, 0))
	}
	for s := types.Stem(1); s < types.NumStems; s++ {
		if c.Delay(0, s) != 512 {
			t.Errorf("delay(0,%d) = %d, want 512", s, c.Delay(0, s))
		}
	}

	// Second effect on stem 1 with 1024.
	c.SetStemLatency(0, 1, 1024)
	if c.GlobalMax() != 1024 {
		t.Fatalf("global max = %d, want 1024", c.GlobalMax())
	}
	if c.Delay(0, 0) != 512 || c.Delay(0, 1) != 0 || c.Delay(0, 2) != 1024 || c.Delay(0, 3) != 1024 {
		t.Errorf("delays = %d,%d,%d,%d want 512,0,1024,1024",
			c.Delay(0, 0), c.Delay(0, 1), c.Delay(0, 2), c.Delay(0, 3))
	}

	// Invariant over all paths.
	for d := 0; d < types.NumDecks; d++ {
		for s := types.Stem(0); s < types.NumStems; s++ {
			if got := c.Delay(d, s) + c.latencies[d][s]; got != c.GlobalMax() {
				t.Errorf("deck %d stem %d: delay+latency = %d, want %d", d, s, got, c.GlobalMax())
			}
		}
	}
}

func TestClampAtCapacity(t *testing.T) {
	c := New(64, nil)

	// Latency far above what the ring can compensate elsewhere.
	c.SetStemLatency(0, 0, 1000)
	// Other stems need 1000 samples of delay but the ring caps at 63.
	if c.Delay(0, 1) != 63 {
		t.Errorf("delay clamped to %d, want 63", c.Delay(0, 1))
	}
}

func TestProcessDelaysBlock(t *testing.T) {
	c := New(256, nil)
	// Stem 1 is the slowest path, so stem 0 gets 4 samples of delay.
	c.SetStemLatency(0, 0, 0)
	c.SetStemLatency(0, 1, 4)

	buf := types.NewStereoBuffer(8)
	for i := range buf {
		buf[i] = types.StereoSample{Left: float32(i + 1), Right: float32(i + 1)}
	}
	c.Process(0, 0, buf)

	for i := 0; i < 4; i++ {
		if buf[i] != types.Silence {
			t.Errorf("frame %d should still be silence, got %v", i, buf[i])
		}
	}
	if buf[4].Left != 1 {
		t.Errorf("frame 4 = %v, want 1 (input delayed by 4)", buf[4].Left)
	}
}
