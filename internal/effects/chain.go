package effects

import "mesh-engine/internal/types"

// Chain is the ordered effect list for one (deck, stem) path. Mutated only
// via commands on the audio thread, so it needs no locking of its own.
type Chain struct {
	effects []Effect

	// latency caches the aggregate latency of non-bypassed children; it is
	// recomputed on every composition or bypass change.
	latency int
}

// NewChain returns an empty chain.
func NewChain() *Chain {
	return &Chain{}
}

// Len returns the number of effects in the chain.
func (c *Chain) Len() int {
	return len(c.effects)
}

// Insert places e at index idx (clamped to the valid range) and recomputes
// the aggregate latency.
func (c *Chain) Insert(idx int, e Effect) {
	if idx < 0 {
		idx = 0
	}
	if idx > len(c.effects) {
		idx = len(c.effects)
	}
	c.effects = append(c.effects, nil)
	copy(c.effects[idx+1:], c.effects[idx:])
	c.effects[idx] = e
	c.recompute()
}

// Append adds e at the end of the chain.
func (c *Chain) Append(e Effect) {
	c.Insert(len(c.effects), e)
}

// Remove deletes the effect at idx. Out-of-range indices are ignored.
func (c *Chain) Remove(idx int) {
	if idx < 0 || idx >= len(c.effects) {
		return
	}
	c.effects = append(c.effects[:idx], c.effects[idx+1:]...)
	c.recompute()
}

// Move reorders the effect at from to position to. Out-of-range indices are
// ignored.
func (c *Chain) Move(from, to int) {
	if from < 0 || from >= len(c.effects) || to < 0 || to >= len(c.effects) || from == to {
		return
	}
	e := c.effects[from]
	c.effects = append(c.effects[:from], c.effects[from+1:]...)
	c.effects = append(c.effects, nil)
	copy(c.effects[to+1:], c.effects[to:])
	c.effects[to] = e
}

// SetParam forwards a parameter change to the effect at idx.
func (c *Chain) SetParam(idx, param int, value float32) {
	if idx < 0 || idx >= len(c.effects) {
		return
	}
	c.effects[idx].SetParam(param, value)
}

// SetBypass toggles the effect at idx and recomputes the aggregate latency
// (bypassed effects contribute zero).
func (c *Chain) SetBypass(idx int, bypass bool) {
	if idx < 0 || idx >= len(c.effects) {
		return
	}
	c.effects[idx].SetBypass(bypass)
	c.recompute()
}

// LatencySamples reports the sum of the non-bypassed children's latencies.
func (c *Chain) LatencySamples() int {
	return c.latency
}

func (c *Chain) recompute() {
	total := 0
	for _, e := range c.effects {
		if !e.Bypassed() {
			total += e.LatencySamples()
		}
	}
	c.latency = total
}

// Process runs the buffer through every effect in order. Bypassed effects
// are skipped. A hosted effect whose try-lock fails is skipped for this
// block; audio continues unprocessed through that slot.
func (c *Chain) Process(buf types.StereoBuffer) {
	for _, e := range c.effects {
		if e.Bypassed() {
			continue
		}
		if tl, ok := e.(TryLocker); ok {
			if !tl.TryLock() {
				continue
			}
			e.Process(buf)
			tl.Unlock()
			continue
		}
		e.Process(buf)
	}
}

// Reset clears audio state in every effect.
func (c *Chain) Reset() {
	for _, e := range c.effects {
		e.Reset()
	}
}
