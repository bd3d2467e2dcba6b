package effects

import (
	"sync"
	"testing"

	"mesh-engine/internal/types"
)

// fixedLatency is a do-nothing effect with a configurable latency report.
type fixedLatency struct {
	base
	samples int
}

func (f *fixedLatency) Process(types.StereoBuffer) {}
func (f *fixedLatency) LatencySamples() int        { return f.samples }
func (f *fixedLatency) Reset()                     {}

// lockedEffect models a hosted plugin whose try-lock is held by another
// thread. It negates the buffer when it does run, so a skipped block is
// observable.
type lockedEffect struct {
	base
	mu sync.Mutex
}

func (l *lockedEffect) TryLock() bool { return l.mu.TryLock() }
func (l *lockedEffect) Unlock()       { l.mu.Unlock() }
func (l *lockedEffect) Process(buf types.StereoBuffer) {
	for i := range buf {
		buf[i].Left = -buf[i].Left
		buf[i].Right = -buf[i].Right
	}
}
func (l *lockedEffect) LatencySamples() int { return 0 }
func (l *lockedEffect) Reset()              {}

func TestChainAggregateLatency(t *testing.T) {
	c := NewChain()
	c.Append(&fixedLatency{samples: 512})
	c.Append(&fixedLatency{samples: 1024})

	if got := c.LatencySamples(); got != 1536 {
		t.Errorf("latency = %d, want 1536", got)
	}

	// Bypassed effects contribute zero.
	c.SetBypass(1, true)
	if got := c.LatencySamples(); got != 512 {
		t.Errorf("latency with bypass = %d, want 512", got)
	}

	c.Remove(0)
	if got := c.LatencySamples(); got != 0 {
		t.Errorf("latency after remove = %d, want 0", got)
	}
}

func TestChainInsertOrder(t *testing.T) {
	c := NewChain()
	a := &fixedLatency{samples: 1}
	b := &fixedLatency{samples: 2}
	d := &fixedLatency{samples: 3}
	c.Append(a)
	c.Append(d)
	c.Insert(1, b)

	if c.effects[0] != a || c.effects[1] != b || c.effects[2] != d {
		t.Error("insert did not preserve order")
	}

	c.Move(2, 0)
	if c.effects[0] != d || c.effects[1] != a || c.effects[2] != b {
		t.Error("move produced wrong order")
	}
}

func TestTryLockFailurePassesThrough(t *testing.T) {
	c := NewChain()
	eff := &lockedEffect{}
	c.Append(eff)

	buf := types.NewStereoBuffer(16)
	for i := range buf {
		buf[i] = types.StereoSample{Left: 0.5, Right: 0.5}
	}

	// Hold the lock from "another thread": the effect must be skipped.
	eff.mu.Lock()
	c.Process(buf)
	eff.mu.Unlock()

	if buf[0].Left != 0.5 {
		t.Errorf("locked effect mutated audio: %v", buf[0].Left)
	}

	// Lock free: the effect runs.
	c.Process(buf)
	if buf[0].Left != -0.5 {
		t.Errorf("unlocked effect did not run: %v", buf[0].Left)
	}
}

func TestGainEffect(t *testing.T) {
	g := NewGain()
	buf := types.NewStereoBuffer(8)
	for i := range buf {
		buf[i] = types.StereoSample{Left: 0.25, Right: 0.25}
	}

	// -6 dB is close to halving.
	g.SetParam(GainParamDB, -6)
	g.Process(buf)
	if buf[0].Left > 0.13 || buf[0].Left < 0.12 {
		t.Errorf("gain -6dB: got %v, want ~0.125", buf[0].Left)
	}
}

func TestDJFilterDeadZone(t *testing.T) {
	f := NewDJFilter(48000)
	buf := types.NewStereoBuffer(32)
	for i := range buf {
		buf[i] = types.StereoSample{Left: 1, Right: 1}
	}
	f.Process(buf)
	if buf[16].Left != 1 {
		t.Errorf("centered filter must be flat, got %v", buf[16].Left)
	}
}

func TestDJFilterLowpassAttenuatesNyquist(t *testing.T) {
	f := NewDJFilter(48000)
	f.SetParam(FilterParamPosition, -1) // full LP

	// Alternating +1/-1 is the highest representable frequency.
	buf := types.NewStereoBuffer(128)
	for i := range buf {
		v := float32(1)
		if i%2 == 1 {
			v = -1
		}
		buf[i] = types.StereoSample{Left: v, Right: v}
	}
	f.Process(buf)

	var sum float32
	for _, s := range buf {
		if s.Left < 0 {
			sum -= s.Left
		} else {
			sum += s.Left
		}
	}
	avg := sum / float32(len(buf))
	if avg > 0.5 {
		t.Errorf("full LP should kill Nyquist content, avg magnitude %v", avg)
	}
}
